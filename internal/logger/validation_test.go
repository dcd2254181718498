package logger

import (
	"runtime"
	"strings"
	"testing"
)

func TestValidateFilenamePattern(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		shouldError bool
		mention     string
	}{
		{name: "daily pattern", pattern: "app-YYYYMMDD.log"},
		{name: "dashes", pattern: "app-YYYY-MM-DD.log"},
		{name: "empty uses default", pattern: ""},
		{name: "forward slashes", pattern: "app-MM/DD/YYYY.log", shouldError: true, mention: "'/'"},
		{name: "backslashes", pattern: `app\YYYY\MM.log`, shouldError: true, mention: `'\'`},
		{name: "colon", pattern: "app-HH:MM.log", shouldError: runtime.GOOS == "windows", mention: "colon"},
		{name: "pipe", pattern: "app-YYYY|MM.log", shouldError: runtime.GOOS == "windows", mention: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilenamePattern(tt.pattern)
			if (err != nil) != tt.shouldError {
				t.Fatalf("ValidateFilenamePattern(%q) error = %v, shouldError %v", tt.pattern, err, tt.shouldError)
			}
			if err == nil {
				return
			}

			fnErr, ok := err.(*FilenameValidationError)
			if !ok {
				t.Fatalf("Expected *FilenameValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("Error message doesn't mention %s: %s", tt.mention, err)
			}
			if ValidateFilenamePattern(fnErr.Suggestion) != nil {
				t.Errorf("Suggestion %q does not validate", fnErr.Suggestion)
			}
		})
	}
}

func TestGetSafeFilenamePatterns(t *testing.T) {
	for _, pattern := range GetSafeFilenamePatterns() {
		if err := ValidateFilenamePattern(pattern); err != nil {
			t.Errorf("Safe pattern %s failed validation: %v", pattern, err)
		}
	}
}
