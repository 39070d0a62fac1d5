package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Input limits.
const (
	MaxEmailLength    = 254
	MaxPasswordLength = 1024
	MaxNameLength     = 100
	MaxFieldLength    = 255
)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isValidEmail accepts a bare address (no display name, no angle brackets).
func isValidEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && addr.Name == "" && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func checkEmail(v *ValidationError, field, email string) {
	switch {
	case email == "":
		v.add(field, CodeRequired)
	case len(email) > MaxEmailLength:
		v.add(field, CodeTooLong)
	case !isValidEmail(email):
		v.add(field, CodeInvalidEmail)
	}
}

func checkRequired(v *ValidationError, field, value string, maxLen int) {
	switch {
	case strings.TrimSpace(value) == "":
		v.add(field, CodeRequired)
	case utf8.RuneCountInString(value) > maxLen:
		v.add(field, CodeTooLong)
	}
}

func checkOptional(v *ValidationError, field string, value *string, maxLen int) {
	if value == nil {
		return
	}
	checkRequired(v, field, *value, maxLen)
}

func checkMaxLen(v *ValidationError, field string, value *string, maxLen int) {
	if value != nil && utf8.RuneCountInString(*value) > maxLen {
		v.add(field, CodeTooLong)
	}
}
