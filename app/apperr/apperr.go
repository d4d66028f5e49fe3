// Package apperr defines the error kinds the application layer raises and the
// HTTP boundary translates. Handlers switch on Kind, never on concrete types.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBusinessRule
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the single error type produced by services.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field messages for KindValidation.
	Fields map[string][]string
	// Entity and Key are set for KindNotFound.
	Entity string
	Key    any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity, e.g. NotFound("Customer", id).
func NotFound(entity string, key any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Entity '%s' with key '%v' was not found.", entity, key),
		Entity:  entity,
		Key:     key,
	}
}

// BusinessRule reports a violated domain rule.
func BusinessRule(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Validation wraps a set of field errors.
func Validation(fields map[string][]string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "One or more validation errors occurred.",
		Fields:  fields,
	}
}

// Invalid is a single-field validation error.
func Invalid(field, msg string) *Error {
	return Validation(map[string][]string{field: {msg}})
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Internal wraps an unexpected failure. The message is never shown to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts *Error from err. Foreign errors are wrapped as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// FieldNames returns the sorted field keys of a validation error.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HTTPStatus is the status code the boundary answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Title is the short, kind-level summary shown to clients.
func (e *Error) Title() string {
	switch e.Kind {
	case KindNotFound:
		return "Resource Not Found"
	case KindValidation:
		return "Validation Error"
	case KindBusinessRule:
		return "Business Rule Violation"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "An error occurred while processing your request"
	}
}

// Detail is the client-facing message. Internal causes are never exposed.
func (e *Error) Detail() string {
	if e.Kind == KindInternal {
		return "An unexpected error occurred."
	}
	return e.Message
}

// FieldErrors returns the per-field messages of a validation error.
func (e *Error) FieldErrors() map[string][]string {
	return e.Fields
}
