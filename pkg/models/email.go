package models

import (
	"net/mail"
	"strings"
)

// maxEmailLen is the RFC 5321 path limit.
const maxEmailLen = 254

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Every lookup and insert goes through it so the unique index sees one form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports a ValidationError unless email is a bare, well-formed
// address. It expects an already normalized value.
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email is required")
	}
	if len(email) > maxEmailLen {
		return NewValidationError("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	// ParseAddress accepts "Name <a@b>"; only the bare form is allowed here.
	if err != nil || addr.Address != email {
		return NewValidationError("please provide a valid email address")
	}
	at := strings.LastIndexByte(email, '@')
	if !strings.Contains(email[at+1:], ".") {
		return NewValidationError("please provide a valid email address")
	}
	return nil
}
