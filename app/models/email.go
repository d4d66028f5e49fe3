package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shashiranjanraj/orderly/app/apperr"
)

// MaxEmailLength is the longest address accepted (RFC 5321 path limit).
const MaxEmailLength = 320

// Email is a validated e-mail address. The zero value is not valid; build one
// with NewEmail.
type Email struct {
	value string
}

// NewEmail validates s. The address must parse as a bare RFC 5322 address
// with no display name or surrounding whitespace.
func NewEmail(s string) (Email, error) {
	if strings.TrimSpace(s) == "" {
		return Email{}, apperr.Invalid("email", "Email cannot be null or empty.")
	}
	if len(s) > MaxEmailLength {
		return Email{}, apperr.Invalid("email", fmt.Sprintf("Email must not exceed %d characters.", MaxEmailLength))
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return Email{}, apperr.Invalid("email", "Invalid email format.")
	}
	return Email{value: s}, nil
}

func (e Email) String() string { return e.value }

func (e Email) IsZero() bool { return e.value == "" }

func (e Email) Value() (driver.Value, error) {
	return e.value, nil
}

func (e *Email) Scan(src any) error {
	switch v := src.(type) {
	case string:
		e.value = v
	case []byte:
		e.value = string(v)
	case nil:
		e.value = ""
	default:
		return fmt.Errorf("models: cannot scan %T into Email", src)
	}
	return nil
}

func (e Email) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.value)
}

func (e *Email) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
