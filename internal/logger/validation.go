package logger

import (
	"fmt"
	"runtime"
	"strings"
)

// FilenameValidationError reports characters that cannot appear in a log filename
type FilenameValidationError struct {
	Pattern      string
	InvalidChars []rune
	Platform     string
	Suggestion   string
}

func (e *FilenameValidationError) Error() string {
	described := make([]string, 0, len(e.InvalidChars))
	for _, r := range e.InvalidChars {
		described = append(described, describeChar(r))
	}
	msg := fmt.Sprintf("invalid filename pattern %q: contains %s, not allowed on %s",
		e.Pattern, strings.Join(described, ", "), e.Platform)
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; try %q", e.Suggestion)
	}
	return msg
}

// windowsReserved are rejected only when running on Windows
var windowsReserved = map[rune]string{
	':': "colon",
	'|': "pipe",
	'*': "asterisk",
	'?': "question mark",
	'<': "angle brackets",
	'>': "angle brackets",
	'"': "quotes",
}

func describeChar(r rune) string {
	switch r {
	case '/', '\\':
		return fmt.Sprintf("'%c' (path separator)", r)
	case 0:
		return "NUL"
	}
	if name, ok := windowsReserved[r]; ok {
		return fmt.Sprintf("'%c' (%s)", r, name)
	}
	return fmt.Sprintf("'%c'", r)
}

// ValidateFilenamePattern checks that pattern is a bare filename usable on this platform.
// An empty pattern is valid and selects the default.
func ValidateFilenamePattern(pattern string) error {
	if pattern == "" {
		return nil
	}

	invalid := findInvalidCharsInFilename(pattern)
	if len(invalid) == 0 {
		return nil
	}

	platform := "all platforms"
	if runtime.GOOS == "windows" {
		platform = "Windows"
	}

	return &FilenameValidationError{
		Pattern:      pattern,
		InvalidChars: invalid,
		Platform:     platform,
		Suggestion:   suggestFilename(pattern, invalid),
	}
}

// findInvalidCharsInFilename returns the offending characters in order of appearance
func findInvalidCharsInFilename(name string) []rune {
	var invalid []rune
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r < 0x20:
			invalid = append(invalid, r)
		case runtime.GOOS == "windows":
			if _, ok := windowsReserved[r]; ok {
				invalid = append(invalid, r)
			}
		}
	}
	return invalid
}

func suggestFilename(pattern string, invalid []rune) string {
	return strings.Map(func(r rune) rune {
		for _, bad := range invalid {
			if r == bad {
				return '-'
			}
		}
		return r
	}, pattern)
}

// GetSafeFilenamePatterns lists patterns that validate on every platform
func GetSafeFilenamePatterns() []string {
	return []string{
		"skydash-YYYYMMDD.log",
		"skydash-YYYY-MM-DD.log",
		"skydash_YYYY_MM_DD.log",
		"skydash.YYYY.MM.DD-HH.log",
	}
}
