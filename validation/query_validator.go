// Package validation provides request input validation for the tabjson API.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okvist/tabjson-api/interfaces"
)

// Pre-compiled patterns, compiled once at package initialization.
var (
	// Published spreadsheet IDs are URL-safe tokens.
	sheetIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

	// Tab names as users type them: word characters, spaces, and the
	// punctuation spreadsheet UIs allow in tab titles.
	tabNameRegex = regexp.MustCompile(`^[\pL\pN\s\-_.():&+']+$`)
)

// Substring screens for obviously hostile input. strings.Contains is much
// cheaper than regex for these.
var dangerousPatterns = []string{
	"<script", "javascript:", "onload=", "onerror=",
	"../", "..\\", "%2e%2e", "file://",
	"' or ", "\" or ", "union select", "--", "/*",
	"`", "$(", "${",
}

const (
	maxSheetIDLength = 128
	maxTabNameLength = 100
)

// Compile-time check to ensure QueryValidatorImpl implements QueryValidator
var _ interfaces.QueryValidator = (*QueryValidatorImpl)(nil)

// QueryValidatorImpl implements the interfaces.QueryValidator interface
type QueryValidatorImpl struct{}

// NewQueryValidator creates a new query validator
func NewQueryValidator() interfaces.QueryValidator {
	return &QueryValidatorImpl{}
}

// ValidateSheetID checks a spreadsheet identifier.
func (v *QueryValidatorImpl) ValidateSheetID(id string) error {
	if id == "" {
		return fmt.Errorf("sheet id is empty")
	}
	if len(id) > maxSheetIDLength {
		return fmt.Errorf("sheet id too long: %d characters", len(id))
	}
	if !sheetIDRegex.MatchString(id) {
		return fmt.Errorf("sheet id contains invalid characters")
	}
	return nil
}

// ValidateTabName checks a tab name or gid locator.
func (v *QueryValidatorImpl) ValidateTabName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tab name is empty")
	}
	if len(name) > maxTabNameLength {
		return fmt.Errorf("tab name too long: %d characters", len(name))
	}

	lowered := strings.ToLower(name)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("tab name contains disallowed sequence")
		}
	}

	if !tabNameRegex.MatchString(name) {
		return fmt.Errorf("tab name contains invalid characters")
	}
	return nil
}

// ParsePositiveInt parses a positive integer query parameter. Empty input
// is not an error and returns zero, meaning unset.
func (v *QueryValidatorImpl) ParsePositiveInt(name, raw string, max int) (int, error) {
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if value < 1 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	if max > 0 && value > max {
		return 0, fmt.Errorf("%s must be at most %d", name, max)
	}
	return value, nil
}
