package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the default limit on display name length, in characters.
const MaxNameLength = 16

// ValidateName checks the format of a display name. It does not check uniqueness.
func ValidateName(name string, maxLen int) error {
	if name == "" {
		return ErrEmptyName
	}
	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		return ErrInvalidName
	}
	if !IsAlnum(name) {
		return ErrInvalidName
	}
	return nil
}

// IsAlnum reports whether s is non-empty and consists of letters and digits only.
func IsAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
