// Package apperrors defines the error kinds shared by every layer of the app.
//
// Adapters translate provider and storage failures into one of the kinds
// below at the call site; everything above them only switches on Kind.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is a closed enumeration of failure kinds.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindMalformedEmail
	KindWeakPassword
	KindEmailTaken
	KindProviderUnavailable
	KindSessionMissing
	KindSessionInvalid
	KindNotFound
	KindValidation
	KindMethodNotAllowed
)

var kindNames = map[Kind]string{
	KindInternal:            "internal",
	KindInvalidCredentials:  "invalid_credentials",
	KindMalformedEmail:      "malformed_email",
	KindWeakPassword:        "weak_password",
	KindEmailTaken:          "email_taken",
	KindProviderUnavailable: "provider_unavailable",
	KindSessionMissing:      "session_missing",
	KindSessionInvalid:      "session_invalid",
	KindNotFound:            "not_found",
	KindValidation:          "validation",
	KindMethodNotAllowed:    "method_not_allowed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a wire name back to its Kind. Unknown names are internal.
func ParseKind(name string) Kind {
	name = strings.TrimSpace(name)
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindInternal
}

// Category groups kinds into the user-facing error taxonomy.
type Category string

const (
	CategoryAuth             Category = "auth"
	CategorySession          Category = "session"
	CategoryNotFound         Category = "not_found"
	CategoryValidation       Category = "validation"
	CategoryMethodNotAllowed Category = "method_not_allowed"
	CategoryInternal         Category = "internal"
)

// Category returns the taxonomy bucket for k.
func (k Kind) Category() Category {
	switch k {
	case KindInvalidCredentials, KindMalformedEmail, KindWeakPassword, KindEmailTaken, KindProviderUnavailable:
		return CategoryAuth
	case KindSessionMissing, KindSessionInvalid:
		return CategorySession
	case KindNotFound:
		return CategoryNotFound
	case KindValidation:
		return CategoryValidation
	case KindMethodNotAllowed:
		return CategoryMethodNotAllowed
	default:
		return CategoryInternal
	}
}

// Error is the concrete error carried across package boundaries.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Err   error
}

// E builds an *Error. The cause may be nil.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid builds a validation error for a single field.
func Invalid(op, field, reason string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Err: errors.New(reason)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, apperrors.E(KindNotFound, "", nil)) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CategoryOf is KindOf(err).Category().
func CategoryOf(err error) Category {
	return KindOf(err).Category()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the response status handlers should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidCredentials, KindSessionMissing, KindSessionInvalid:
		return http.StatusUnauthorized
	case KindMalformedEmail, KindWeakPassword:
		return http.StatusBadRequest
	case KindEmailTaken:
		return http.StatusConflict
	case KindProviderUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

var messages = map[Kind]string{
	KindInternal:            "Something went wrong. Please try again.",
	KindInvalidCredentials:  "The email address or password is incorrect.",
	KindMalformedEmail:      "Enter a valid email address.",
	KindWeakPassword:        "The password must be at least 6 characters long.",
	KindEmailTaken:          "An account with this email address already exists.",
	KindProviderUnavailable: "The sign-in service is unavailable. Please try again later.",
	KindSessionMissing:      "Please sign in to continue.",
	KindSessionInvalid:      "Your session has expired. Please sign in again.",
	KindNotFound:            "The requested task does not exist.",
	KindValidation:          "Some fields are invalid.",
	KindMethodNotAllowed:    "Method not allowed",
}

// Message returns the user-facing text for err. Validation errors carry
// their own reason so the form can point at the offending field.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation && e.Err != nil {
		return e.Err.Error()
	}
	return messages[KindOf(err)]
}
