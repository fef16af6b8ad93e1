package errors

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// ValidateProblemPath validates the path of a problem file given on the
// command line.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 500 characters
//   - A .toml extension
func ValidateProblemPath(path string) error {
	if err := validatePathChars(path); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".toml") {
		return New(ErrCodeInvalidPath, "problem file must have a .toml extension: %q", path)
	}
	return nil
}

// ValidateOutputPath validates a path results are written to. Unlike
// problem paths any extension is allowed.
func ValidateOutputPath(path string) error {
	return validatePathChars(path)
}

func validatePathChars(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateFormats checks that every requested output format is allowed and
// that none is repeated.
func ValidateFormats(formats []string, allowed ...string) error {
	if len(formats) == 0 {
		return New(ErrCodeInvalidFormat, "no output format given")
	}
	seen := make(map[string]bool, len(formats))
	for _, f := range formats {
		if !slices.Contains(allowed, f) {
			return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", f, strings.Join(allowed, ", "))
		}
		if seen[f] {
			return New(ErrCodeInvalidFormat, "format %q given twice", f)
		}
		seen[f] = true
	}
	return nil
}

// ValidateRedisURL validates a Redis connection URL.
// It only checks the scheme; the client parses the rest.
func ValidateRedisURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "redis URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeInvalidInput, "redis URL must use redis or rediss scheme")
	}
	return nil
}
