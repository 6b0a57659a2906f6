package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFieldLength is the longest artist, title or link the catalog accepts.
const MaxFieldLength = 512

// ValidateField validates a single trimmed text field of a song record.
//
// The rules:
//   - No empty values
//   - No control characters (tabs and newlines from spreadsheet cells included)
//   - Maximum length of MaxFieldLength runes
//
// field names the field in the returned message (e.g. "artist").
func ValidateField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return New(ErrCodeInvalidInput, "%s is required", field)
	}

	if utf8.RuneCountInString(value) > MaxFieldLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", field, MaxFieldLength)
	}

	for _, r := range value {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", field)
		}
	}

	return nil
}

// ValidateYear checks that a release year is plausible for a printed card.
// A nil year is always valid.
func ValidateYear(year *int) error {
	if year == nil {
		return nil
	}
	if *year < 0 || *year > 9999 {
		return New(ErrCodeInvalidInput, "year %d out of range (0-9999)", *year)
	}
	return nil
}
