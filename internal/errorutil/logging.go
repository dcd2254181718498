package errorutil

import (
	"fmt"
	"log/slog"
	"time"
)

func toAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, attr := range attrs {
		out[i] = attr
	}
	return out
}

// LogAndWrap logs an error with structured context and returns it wrapped with the operation name
func LogAndWrap(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) error {
	if logger == nil || err == nil {
		return err
	}

	logAttrs := append([]slog.Attr{slog.String("error", err.Error())}, attrs...)
	logger.Error(operation+" failed", toAny(logAttrs)...)
	return fmt.Errorf("%s: %w", operation, err)
}

// LogWarning logs a recoverable error at warn level without wrapping it
func LogWarning(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) {
	if logger == nil || err == nil {
		return
	}

	logAttrs := append([]slog.Attr{slog.String("error", err.Error())}, attrs...)
	logger.Warn("Non-fatal error in "+operation, toAny(logAttrs)...)
}

// LogAndReturn logs an error and returns it unchanged
func LogAndReturn(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) error {
	if logger == nil || err == nil {
		return err
	}

	logAttrs := append([]slog.Attr{slog.String("error", err.Error())}, attrs...)
	logger.Error(operation+" failed", toAny(logAttrs)...)
	return err
}

// ExecuteWithLogging runs fn, logging start and completion with timing.
// A failure is logged and returned wrapped with the operation name.
func ExecuteWithLogging(logger *slog.Logger, operation string, fn func() error, attrs ...slog.Attr) error {
	if logger == nil {
		return fn()
	}

	start := time.Now()
	logger.Debug("Starting "+operation, toAny(attrs)...)

	err := fn()

	completion := make([]slog.Attr, 0, len(attrs)+2)
	completion = append(completion, attrs...)
	completion = append(completion, slog.Duration("duration", time.Since(start)))

	if err != nil {
		completion = append(completion, slog.String("error", err.Error()))
		logger.Error("Failed "+operation, toAny(completion)...)
		return fmt.Errorf("%s: %w", operation, err)
	}

	logger.Debug("Completed "+operation, toAny(completion)...)
	return nil
}

// Common context helpers for frequently used attributes

// GeoContext creates context attributes for coordinate-based lookups
func GeoContext(latitude, longitude float64) []slog.Attr {
	return []slog.Attr{
		slog.Float64("latitude", latitude),
		slog.Float64("longitude", longitude),
	}
}

// QueryContext creates context attributes for city-name lookups
func QueryContext(query string, limit int) []slog.Attr {
	attrs := []slog.Attr{slog.String("query", query)}
	if limit > 0 {
		attrs = append(attrs, slog.Int("limit", limit))
	}
	return attrs
}

// ConfigContext creates context attributes for configuration operations
func ConfigContext(configFile string) []slog.Attr {
	if configFile == "" {
		return nil
	}
	return []slog.Attr{slog.String("config_file", configFile)}
}

// FileContext creates context attributes for file operations
func FileContext(filePath string) []slog.Attr {
	if filePath == "" {
		return nil
	}
	return []slog.Attr{slog.String("file_path", filePath)}
}

// URLContext creates context attributes for URL/API operations
func URLContext(url string) []slog.Attr {
	if url == "" {
		return nil
	}
	return []slog.Attr{slog.String("url", url)}
}

// ProviderContext names the upstream service and endpoint being called
func ProviderContext(provider, endpoint string) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2)
	if provider != "" {
		attrs = append(attrs, slog.String("api_provider", provider))
	}
	if endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", endpoint))
	}
	return attrs
}
