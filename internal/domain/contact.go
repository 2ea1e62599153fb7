package domain

import (
	"regexp"
	"strings"
)

// emailPattern is a deliberately loose address check: something@something.tld.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactRecord is the minimum identity data required before any message
// leaves the client. Captured once via the contact gate and reused for the
// lifetime of the profile.
type ContactRecord struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Complete reports whether the record satisfies the contact gate.
// Email never blocks completion.
func (c ContactRecord) Complete() bool {
	return ValidateName(c.Name) == "" && ValidatePhone(c.Phone) == ""
}

// ValidateName returns a user-facing error string, or "" if valid.
func ValidateName(name string) string {
	if len(strings.TrimSpace(name)) < 2 {
		return "Please enter your name"
	}
	return ""
}

// ValidatePhone returns a user-facing error string, or "" if valid.
// Formatting characters are ignored; at least 10 digits are required.
func ValidatePhone(phone string) string {
	if len(DigitsOnly(phone)) < 10 {
		return "Please enter a valid phone number"
	}
	return ""
}

// ValidateEmail returns a user-facing error string, or "" if valid.
// An empty email is valid: the field is optional.
func ValidateEmail(email string) string {
	if email == "" {
		return ""
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return "Please enter a valid email address"
	}
	return ""
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
