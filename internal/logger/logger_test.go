package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func initFileLogger(t *testing.T, pattern, level string) string {
	t.Helper()
	tmpDir := t.TempDir()

	config := Config{
		Enabled:         true,
		Directory:       tmpDir,
		FilenamePattern: pattern,
		Level:           level,
		ConsoleOutput:   false,
	}
	if err := Initialize(config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	t.Cleanup(func() { Get().Close() })

	return filepath.Join(tmpDir, pattern)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestLoggerInitialization(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantError bool
	}{
		{
			name:   "console only",
			config: Config{ConsoleOutput: true, Level: "info"},
		},
		{
			name: "file logging",
			config: Config{
				Enabled:         true,
				Directory:       t.TempDir(),
				FilenamePattern: "test-YYYYMMDD.log",
				Level:           "debug",
			},
		},
		{
			name: "invalid filename pattern",
			config: Config{
				Enabled:         true,
				Directory:       t.TempDir(),
				FilenamePattern: "test-MM/DD/YYYY.log",
			},
			wantError: true,
		},
		{
			name:   "unknown level falls back to info",
			config: Config{ConsoleOutput: true, Level: "loud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Initialize(tt.config)
			if (err != nil) != tt.wantError {
				t.Errorf("Initialize() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
	Get().Close()
}

func TestLogLevels(t *testing.T) {
	logFile := initFileLogger(t, "levels.log", "warn")

	Debug("debug message %d", 1)
	Info("info message %d", 2)
	Warn("warning should appear")
	Error("error should appear")

	logContent := readLog(t, logFile)

	if strings.Contains(logContent, "debug message") {
		t.Error("Debug message appeared when log level was warn")
	}
	if strings.Contains(logContent, "info message") {
		t.Error("Info message appeared when log level was warn")
	}
	if !strings.Contains(logContent, "warning should appear") {
		t.Error("Warning message did not appear")
	}
	if !strings.Contains(logContent, "error should appear") {
		t.Error("Error message did not appear")
	}
}

func TestLogRotation(t *testing.T) {
	tmpDir := t.TempDir()

	config := Config{
		Enabled:         true,
		Directory:       tmpDir,
		FilenamePattern: "rotation.log",
		Level:           "info",
		MaxFiles:        3,
		MaxSizeMB:       1,
	}
	if err := Initialize(config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	defer Get().Close()

	largeMessage := strings.Repeat("city suggestion cache filler ", 100)
	iterations := 1024*1024/len(largeMessage) + 100
	for i := 0; i < iterations; i++ {
		Get().Info(largeMessage)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "rotation.log"))
	if err != nil {
		t.Fatalf("Failed to stat log file: %v", err)
	}
	if info.Size() >= 1024*1024 {
		t.Errorf("Log file size %d bytes, expected less than 1MB after rotation", info.Size())
	}

	archives, _ := filepath.Glob(filepath.Join(tmpDir, "rotation-*.log"))
	if len(archives) == 0 {
		t.Error("Expected at least one archived log file")
	}
}

func TestFilenamePatternGeneration(t *testing.T) {
	now := time.Now()

	tests := []struct {
		pattern  string
		contains []string
	}{
		{"test-YYYYMMDD.log", []string{"test-", now.Format("20060102"), ".log"}},
		{"app-YYYY-MM-DD.log", []string{"app-", now.Format("2006-01-02"), ".log"}},
		{"log-YYYY.MM.DD-HH.log", []string{now.Format("2006.01.02"), now.Format("-15.log")}},
		{"", []string{"skydash-", now.Format("20060102")}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			result := generateLogFilename(tt.pattern)
			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("generateLogFilename(%s) = %s, expected to contain %s", tt.pattern, result, expected)
				}
			}
		})
	}
}

func TestExpandLogDirectory(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"logs", "logs"},
		{"", "logs"},
		{"./var", "./var"},
		{"var/log", "var/log"},
		{"/var/log/skydash", "/var/log/skydash"},
	}
	if home, err := os.UserHomeDir(); err == nil {
		tests = append(tests, struct {
			input    string
			expected string
		}{"~/.skydash/logs", filepath.Join(home, ".skydash", "logs")})
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandLogDirectory(tt.input); got != tt.expected {
				t.Errorf("expandLogDirectory(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStructuredLogging(t *testing.T) {
	logFile := initFileLogger(t, "structured.log", "debug")

	LogAPIRequest("GET", "https://api.example.com/geo/1.0/direct", map[string]string{"User-Agent": "Skydash/1.0"})
	LogAPIResponse("GET", "https://api.example.com/geo/1.0/direct", 200, "120ms", 512)
	LogFileOperation("write", "/tmp/config.toml", 2048)

	complete := LogOperationStart("city_suggestions", map[string]any{"query": "lon"})
	complete(nil)
	failed := LogOperationStart("reverse_geocode", nil)
	failed(errors.New("boom"))

	LogStructuredError(os.ErrPermission, map[string]any{"path": "/restricted"})
	LogWithFields(InfoLevel, "Suggestion cache hit", map[string]any{"cache_key": "london", "entries": 5})

	logContent := readLog(t, logFile)

	for _, expected := range []string{
		"api_request",
		"Skydash/1.0",
		"status_code=200",
		"file_operation",
		"operation_start",
		"operation_complete",
		"Operation failed",
		"error=boom",
		"structured_error",
		"cache_key=london",
	} {
		if !strings.Contains(logContent, expected) {
			t.Errorf("Log content missing expected string: %s", expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"invalid", InfoLevel, true},
		{"", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.hasError {
				t.Errorf("ParseLevel(%s) error = %v, hasError %v", tt.input, err, tt.hasError)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%s) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestLoggerCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	for i := 0; i < 5; i++ {
		oldDate := time.Now().AddDate(0, 0, -i-1)
		name := "test-" + oldDate.Format("20060102") + ".log"
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte("old log content"), 0644); err != nil {
			t.Fatalf("Failed to create old log file: %v", err)
		}
		os.Chtimes(path, oldDate, oldDate)
	}

	config := Config{
		Enabled:         true,
		Directory:       tmpDir,
		FilenamePattern: "test-YYYYMMDD.log",
		Level:           "info",
		MaxFiles:        3,
	}
	if err := Initialize(config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	defer Get().Close()

	l := Get()
	l.Info("New log entry")
	l.cleanOldFiles()

	files, err := filepath.Glob(filepath.Join(tmpDir, "test-*.log"))
	if err != nil {
		t.Fatalf("Failed to glob log files: %v", err)
	}
	if len(files) > 3 {
		t.Errorf("Expected max 3 log files, found %d", len(files))
	}
}
