package errorutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field       string
	Value       interface{}
	Rule        string
	Message     string
	Suggestions []string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with rule '%s'", e.Field, e.Rule)
}

// ValidationErrors collects several validation failures
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), e.Errors[0].Error())
}

// Add appends a failure to the collection
func (e *ValidationErrors) Add(field, rule, message string, value interface{}, suggestions ...string) {
	e.Errors = append(e.Errors, ValidationError{
		Field:       field,
		Value:       value,
		Rule:        rule,
		Message:     message,
		Suggestions: suggestions,
	})
}

// Append adds a non-nil ValidationError
func (e *ValidationErrors) Append(err *ValidationError) {
	if err != nil {
		e.Errors = append(e.Errors, *err)
	}
}

// HasErrors returns true if there are validation errors
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// LogValidationErrors logs each failure at warn level
func LogValidationErrors(logger *slog.Logger, valErr *ValidationErrors) *ValidationErrors {
	if logger == nil || !valErr.HasErrors() {
		return valErr
	}

	for _, err := range valErr.Errors {
		attrs := []slog.Attr{
			slog.String("field", err.Field),
			slog.String("rule", err.Rule),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		}
		if len(err.Suggestions) > 0 {
			attrs = append(attrs, slog.Any("suggestions", err.Suggestions))
		}
		logger.Warn("Validation error", toAny(attrs)...)
	}

	return valErr
}

// FromStructErrors converts the result of validator.Struct into ValidationErrors.
// Errors that are not field failures are returned as a single "struct" entry.
func FromStructErrors(err error) *ValidationErrors {
	result := &ValidationErrors{}
	if err == nil {
		return result
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.Add("struct", "invalid", err.Error(), nil)
		return result
	}

	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("failed '%s' check", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed '%s=%s' check", fe.Tag(), fe.Param())
		}
		result.Add(fieldPath(fe.Namespace()), fe.Tag(), msg, fe.Value())
	}
	return result
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// ValidateRequired checks if a field has a non-empty value
func ValidateRequired(field string, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "required",
			Message: "field is required and cannot be empty",
		}
	}
	return nil
}

// ValidateEnum checks a value case-insensitively against the allowed set
func ValidateEnum(field string, value string, allowedValues []string) *ValidationError {
	value = strings.TrimSpace(strings.ToLower(value))
	for _, allowed := range allowedValues {
		if strings.ToLower(allowed) == value {
			return nil
		}
	}

	return &ValidationError{
		Field:       field,
		Value:       value,
		Rule:        "enum",
		Message:     fmt.Sprintf("value must be one of: %s, got '%s'", strings.Join(allowedValues, ", "), value),
		Suggestions: allowedValues,
	}
}

// ValidateURL checks for an absolute http(s) URL
func ValidateURL(field string, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return ValidateRequired(field, value)
	}

	u, err := url.Parse(value)
	if err == nil && (u.Scheme != "http" && u.Scheme != "https" || u.Host == "") {
		err = errors.New("missing http(s) scheme or host")
	}
	if err != nil {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "url",
			Message: fmt.Sprintf("invalid URL format: %v", err),
			Suggestions: []string{
				"Ensure URL starts with http:// or https://",
				"Check for typos in the URL",
			},
		}
	}

	return nil
}

// ValidateCoordinate checks latitude against ±90 or longitude against ±180
func ValidateCoordinate(field string, value float64, isLatitude bool) *ValidationError {
	min, max, coordType := -180.0, 180.0, "longitude"
	if isLatitude {
		min, max, coordType = -90.0, 90.0, "latitude"
	}

	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "coordinate",
			Message: fmt.Sprintf("%s must be between %.1f and %.1f, got %.6f", coordType, min, max, value),
			Suggestions: []string{
				fmt.Sprintf("Valid %s range is %.1f to %.1f", coordType, min, max),
				"Check coordinate format (decimal degrees)",
			},
		}
	}

	return nil
}

// ValidateTimezone accepts "Local", "UTC" or any IANA zone name known to the host
func ValidateTimezone(field string, value string) *ValidationError {
	if value == "" || value == "Local" {
		return nil
	}
	if _, err := time.LoadLocation(value); err != nil {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "timezone",
			Message: fmt.Sprintf("unknown time zone %q", value),
			Suggestions: []string{
				"Use an IANA name such as Europe/London or America/New_York",
				"Use \"Local\" to follow the host clock",
			},
		}
	}
	return nil
}

var apiKeyPlaceholders = []string{
	"api-key-here",
	"key-here",
	"replace-with-your-key",
	"your_openweather_api_key",
	"xxx",
	"example",
}

// ValidateAPIKey checks if an API key has a reasonable format.
// The key itself never appears in the returned error.
func ValidateAPIKey(field string, value string, minLength int) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Value:   "[REDACTED]",
			Rule:    "required",
			Message: "API key is required",
			Suggestions: []string{
				"Obtain an API key from https://openweathermap.org/api",
				"Set OPENWEATHER_API_KEY or fill in the configuration file",
			},
		}
	}

	if len(value) < minLength {
		return &ValidationError{
			Field:   field,
			Value:   "[REDACTED]",
			Rule:    "min_length",
			Message: fmt.Sprintf("API key too short, expected at least %d characters", minLength),
			Suggestions: []string{
				"Verify complete API key was copied",
			},
		}
	}

	lowerValue := strings.ToLower(value)
	for _, placeholder := range apiKeyPlaceholders {
		if strings.Contains(lowerValue, placeholder) {
			return &ValidationError{
				Field:   field,
				Value:   "[REDACTED]",
				Rule:    "placeholder",
				Message: "API key appears to be a placeholder value",
				Suggestions: []string{
					"Replace placeholder with actual API key",
				},
			}
		}
	}

	return nil
}
