package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies an error by how it is surfaced to the caller.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConversion
	KindUnsupported
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConversion:
		return "conversion"
	case KindUnsupported:
		return "unsupported"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is the public-facing error returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Inner  error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
		}
		return e.Message + " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Inner != nil {
		return e.Message + ": " + e.Inner.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Status maps the error kind to an HTTP status code. Ownership and lifecycle
// violations answer 400, not 403.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindAuthorization, KindUnsupported:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// Validationf builds a validation error for a single field.
func Validationf(field, format string, args ...any) *Error {
	return NewValidation(map[string][]string{field: {fmt.Sprintf(format, args...)}})
}

func NewAuthorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewUnsupported(message string) *Error {
	return &Error{Kind: KindUnsupported, Message: message}
}

// NewConversion reports a failed transform of file into format.
func NewConversion(file, format string, inner error) *Error {
	return &Error{
		Kind:    KindConversion,
		Message: fmt.Sprintf("failed to convert %s to %s", file, format),
		Inner:   inner,
	}
}

func NewInfrastructure(operation string, inner error) *Error {
	return &Error{Kind: KindInfrastructure, Message: operation + " failed", Inner: inner}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status returns the HTTP status for any error, 500 for unclassified ones.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// FieldsOf returns the validation detail carried by err, if any.
func FieldsOf(err error) map[string][]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// FromDB translates a gorm error raised while performing operation.
func FromDB(err error, operation, details string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("%s not found", details),
			Inner:   err,
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("%s already exists", details),
			Inner:   err,
		}
	}

	return &Error{
		Kind:    KindInfrastructure,
		Message: fmt.Sprintf("%s (%s) failed", operation, details),
		Inner:   err,
	}
}
