package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// Alphanumeric, underscore, hyphen, dot - common in transit element IDs
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ValidateID validates that an element ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// SanitizeInput removes HTML tags and other potentially dangerous content
func SanitizeInput(input string) string {
	sanitized := htmlTagPattern.ReplaceAllString(input, "")
	sanitized = strings.TrimSpace(sanitized)

	return sanitized
}
