package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

// Environment variables that override file settings
const (
	EnvOpenWeatherKey = "OPENWEATHER_API_KEY"
	EnvLogLevel       = "SKYDASH_LOG_LEVEL"
	EnvTimezone       = "SKYDASH_TIMEZONE"
)

// Location providers
const (
	ProviderIP     = "ip"
	ProviderStatic = "static"
	ProviderNone   = "none"
)

// APIs contains API key configurations
type APIs struct {
	OpenWeather string `toml:"openweather"`
}

// OpenWeather contains HTTP client settings for the OpenWeather endpoints
type OpenWeather struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=1,max=120"`
}

// Suggestions contains city search and cache settings
type Suggestions struct {
	Limit           int `toml:"limit" validate:"min=1,max=5"`
	MinQueryLength  int `toml:"min_query_length" validate:"min=1,max=10"`
	CacheTTLMinutes int `toml:"cache_ttl_minutes" validate:"min=1,max=10080"`
	CacheMaxEntries int `toml:"cache_max_entries" validate:"min=1,max=100000"`
}

// Location selects where the "current location" comes from.
// Latitude and Longitude are only read by the static provider.
type Location struct {
	Provider       string   `toml:"provider"`
	Latitude       *float64 `toml:"latitude"`
	Longitude      *float64 `toml:"longitude"`
	TimeoutSeconds int      `toml:"timeout_seconds" validate:"min=1,max=60"`
	IPLookupURL    string   `toml:"ip_lookup_url"`
}

// Display contains presentation settings
type Display struct {
	Timezone string `toml:"timezone"` // IANA name, or "Local"
}

// Logging contains logging configuration with rotation and cross-platform support
type Logging struct {
	Enabled         bool   `toml:"enabled"`
	Directory       string `toml:"directory"`
	FilenamePattern string `toml:"filename_pattern"`
	Level           string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxFiles        int    `toml:"max_files" validate:"min=0,max=365"`
	MaxSizeMB       int    `toml:"max_size_mb" validate:"min=0,max=1000"`
	ConsoleOutput   bool   `toml:"console_output"`
}

// Config represents the complete application configuration
type Config struct {
	APIs        APIs        `toml:"apis"`
	OpenWeather OpenWeather `toml:"openweather"`
	Suggestions Suggestions `toml:"suggestions"`
	Location    Location    `toml:"location"`
	Display     Display     `toml:"display"`
	Logging     Logging     `toml:"logging"`
}

// LoadConfig reads a TOML configuration file, applies defaults and then
// environment overrides. A .env file next to the config, or in the working
// directory, is loaded first; variables already set in the process win.
func LoadConfig(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if err := LoadDotEnv(filepath.Join(filepath.Dir(cleanPath), ".env"), ".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigNotFoundError{Path: cleanPath}
		}
		return nil, errorutil.LogAndReturn(logger.Get().Logger, "load configuration",
			fmt.Errorf("failed to read configuration file: %w", err), errorutil.ConfigContext(cleanPath)...)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errorutil.LogAndReturn(logger.Get().Logger, "load configuration",
			fmt.Errorf("failed to parse TOML configuration: %w", err), errorutil.ConfigContext(cleanPath)...)
	}

	config.ApplyDefaults()
	config.ApplyEnv()

	return &config, nil
}

// LoadDotEnv loads each existing file into the process environment.
// Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if err := godotenv.Load(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.OpenWeather.BaseURL) == "" {
		c.OpenWeather.BaseURL = "https://api.openweathermap.org"
	}
	c.OpenWeather.BaseURL = strings.TrimRight(c.OpenWeather.BaseURL, "/")
	if strings.TrimSpace(c.OpenWeather.UserAgent) == "" {
		c.OpenWeather.UserAgent = "Skydash/1.0"
	}
	if c.OpenWeather.TimeoutSeconds <= 0 {
		c.OpenWeather.TimeoutSeconds = 10
	}

	if c.Suggestions.Limit <= 0 {
		c.Suggestions.Limit = 5
	}
	if c.Suggestions.MinQueryLength <= 0 {
		c.Suggestions.MinQueryLength = 2
	}
	if c.Suggestions.CacheTTLMinutes <= 0 {
		c.Suggestions.CacheTTLMinutes = 60
	}
	if c.Suggestions.CacheMaxEntries <= 0 {
		c.Suggestions.CacheMaxEntries = 500
	}

	if strings.TrimSpace(c.Location.Provider) == "" {
		c.Location.Provider = ProviderIP
	}
	c.Location.Provider = strings.ToLower(strings.TrimSpace(c.Location.Provider))
	if c.Location.TimeoutSeconds <= 0 {
		c.Location.TimeoutSeconds = 10
	}
	if strings.TrimSpace(c.Location.IPLookupURL) == "" {
		c.Location.IPLookupURL = "http://ip-api.com/json/"
	}

	if strings.TrimSpace(c.Display.Timezone) == "" {
		c.Display.Timezone = "Local"
	}

	if strings.TrimSpace(c.Logging.Directory) == "" {
		c.Logging.Directory = "logs"
	}
	if strings.TrimSpace(c.Logging.FilenamePattern) == "" {
		c.Logging.FilenamePattern = "skydash-YYYYMMDD.log"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxFiles <= 0 {
		c.Logging.MaxFiles = 7
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// ApplyEnv overrides file settings with non-empty environment variables
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvOpenWeatherKey)); v != "" {
		c.APIs.OpenWeather = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimezone)); v != "" {
		c.Display.Timezone = v
	}
}

// HTTPTimeout returns the OpenWeather request timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.OpenWeather.TimeoutSeconds) * time.Second
}

// LocationTimeout bounds a single position request
func (c *Config) LocationTimeout() time.Duration {
	return time.Duration(c.Location.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a suggestion list stays cached
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Suggestions.CacheTTLMinutes) * time.Minute
}

// TimeLocation resolves the display time zone
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Display.Timezone == "" || c.Display.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}

// ConfigNotFoundError represents a missing configuration file
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s\n\nTo create a sample configuration file, run:\n  %s --generate-config", e.Path, filepath.Base(os.Args[0]))
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}

var structValidator = newStructValidator()

// newStructValidator reports field paths by their TOML names
func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for correctness and completeness.
// Numeric bounds come from struct tags; the remaining rules are checked by hand.
// Every failure is logged before the aggregated error is returned.
func (c *Config) Validate() error {
	verrs := errorutil.FromStructErrors(structValidator.Struct(c))
	for i := range verrs.Errors {
		verrs.Errors[i].Message = describeTagFailure(verrs.Errors[i])
	}

	c.validateAPIKeys(verrs)
	c.validateOpenWeather(verrs)
	c.validateLocation(verrs)
	c.validateDisplay(verrs)
	c.validateLogging(verrs)

	if !verrs.HasErrors() {
		return nil
	}

	errorutil.LogValidationErrors(logger.Get().Logger, verrs)
	errs := make([]ValidationError, 0, len(verrs.Errors))
	for _, fe := range verrs.Errors {
		errs = append(errs, ValidationError{Field: fe.Field, Message: fe.Message})
	}
	return &MultiValidationError{Errors: errs}
}

func describeTagFailure(fe errorutil.ValidationError) string {
	switch fe.Rule {
	case "min":
		return fmt.Sprintf("value %v is below the minimum (%s)", fe.Value, fe.Message)
	case "max":
		return fmt.Sprintf("value %v is above the maximum (%s)", fe.Value, fe.Message)
	case "oneof":
		return fmt.Sprintf("value %q is not allowed (%s)", fe.Value, fe.Message)
	}
	return fe.Message
}

// validateAPIKeys checks that the OpenWeather key is present and plausible
func (c *Config) validateAPIKeys(verrs *errorutil.ValidationErrors) {
	if strings.TrimSpace(c.APIs.OpenWeather) == "" {
		verrs.Add("apis.openweather", "required",
			fmt.Sprintf("OpenWeather API key is required. Get one at https://openweathermap.org/api or set %s", EnvOpenWeatherKey),
			"")
		return
	}
	verrs.Append(errorutil.ValidateAPIKey("apis.openweather", c.APIs.OpenWeather, 16))
}

func (c *Config) validateOpenWeather(verrs *errorutil.ValidationErrors) {
	verrs.Append(errorutil.ValidateURL("openweather.base_url", c.OpenWeather.BaseURL))
	verrs.Append(errorutil.ValidateRequired("openweather.user_agent", c.OpenWeather.UserAgent))
}

// validateLocation checks the provider and the settings it depends on
func (c *Config) validateLocation(verrs *errorutil.ValidationErrors) {
	if err := errorutil.ValidateEnum("location.provider", c.Location.Provider, []string{ProviderIP, ProviderStatic, ProviderNone}); err != nil {
		verrs.Append(err)
		return
	}

	if c.Location.Latitude != nil {
		verrs.Append(errorutil.ValidateCoordinate("location.latitude", *c.Location.Latitude, true))
	}
	if c.Location.Longitude != nil {
		verrs.Append(errorutil.ValidateCoordinate("location.longitude", *c.Location.Longitude, false))
	}

	switch c.Location.Provider {
	case ProviderStatic:
		if c.Location.Latitude == nil || c.Location.Longitude == nil {
			verrs.Add("location.latitude", "required_with",
				`latitude and longitude are required when provider is "static"`, nil)
		}
	case ProviderIP:
		verrs.Append(errorutil.ValidateURL("location.ip_lookup_url", c.Location.IPLookupURL))
	}
}

func (c *Config) validateDisplay(verrs *errorutil.ValidationErrors) {
	verrs.Append(errorutil.ValidateTimezone("display.timezone", c.Display.Timezone))
}

// validateLogging checks fields the struct tags cannot express
func (c *Config) validateLogging(verrs *errorutil.ValidationErrors) {
	if !c.Logging.Enabled {
		return
	}

	if strings.TrimSpace(c.Logging.Directory) == "" {
		verrs.Add("logging.directory", "required", "directory is required when logging is enabled", "")
	}

	pattern := strings.TrimSpace(c.Logging.FilenamePattern)
	if pattern == "" {
		verrs.Add("logging.filename_pattern", "required", "filename_pattern is required when logging is enabled", "")
		return
	}
	if err := logger.ValidateFilenamePattern(pattern); err != nil {
		verrs.Add("logging.filename_pattern", "filename", err.Error(), pattern, logger.GetSafeFilenamePatterns()...)
	}
}

const sampleConfig = `# Skydash Configuration File
# Weather dashboard data layer: city search, current location, forecasts

[apis]
# Get your OpenWeather API key at: https://openweathermap.org/api
# OPENWEATHER_API_KEY (environment or .env) takes precedence over this value
openweather = "your-openweather-api-key-here"

[openweather]
base_url = "https://api.openweathermap.org"
user_agent = "Skydash/1.0"
timeout_seconds = 10

[suggestions]
# Maximum suggestions per search (1-5)
limit = 5
# Shorter queries return no suggestions and make no request
min_query_length = 2
# Cached results are reused for this long, then refetched
cache_ttl_minutes = 60
# Oldest-expiring entry is evicted once the cache is full
cache_max_entries = 500

[location]
# "ip" (ip-api.com lookup), "static" (coordinates below) or "none"
provider = "ip"
# latitude = 51.5074
# longitude = -0.1278
timeout_seconds = 10
ip_lookup_url = "http://ip-api.com/json/"

[display]
# IANA time zone for dates and times, or "Local" for the host clock
timezone = "Local"

[logging]
enabled = true                             # Enable file logging
directory = "logs"                         # Relative to the working directory, absolute, or ~/...
filename_pattern = "skydash-YYYYMMDD.log"  # YYYY=year, MM=month, DD=day, HH=hour
level = "info"                             # debug, info, warn, error
max_files = 7                              # Keep 7 log files
max_size_mb = 10                           # Rotate when file exceeds 10MB
console_output = false                     # Mirror log lines to stderr
`

// GenerateSampleConfig writes a commented sample configuration to configPath
func GenerateSampleConfig(configPath string) error {
	log := logger.Get().Logger
	if err := errorutil.SafeFileWrite(log, configPath, []byte(sampleConfig), 0644); err != nil {
		return errorutil.LogAndWrap(log, "write sample config", err, errorutil.FileContext(configPath)...)
	}
	logger.LogFileOperation("generate_config", configPath, int64(len(sampleConfig)))
	return nil
}
