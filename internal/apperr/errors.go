// Package apperr defines the error taxonomy shared by every service module.
// Storage failures are translated exactly once, at the store boundary; raw
// driver errors never reach handlers.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error into one of the stable, user-facing categories.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindStorage
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Error carries a taxonomy kind, a client-safe message and, for validation
// failures, a field-keyed detail map. The wrapped cause stays server-side.
type Error struct {
	Kind        Kind
	Message     string
	FieldErrors map[string]string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code(), e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the stable wire identifier for the error kind.
func (e *Error) Code() string {
	switch e.Kind {
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindStorage:
		return "STORAGE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps the kind to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to expose to the caller. Storage and
// internal errors collapse to a generic message; details stay in the logs.
func (e *Error) ClientMessage() string {
	switch e.Kind {
	case KindStorage:
		return "storage operation failed"
	case KindInternal:
		return "internal error"
	default:
		return e.Message
	}
}

// Fields lists the violated field names in stable order, mostly for logs.
func (e *Error) Fields() []string {
	if len(e.FieldErrors) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Validation aggregates all field violations of one request in a single error.
func Validation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return &Error{
		Kind:        KindValidation,
		Message:     "validation failed: " + strings.Join(names, ", "),
		FieldErrors: fields,
	}
}

func Validationf(field, format string, args ...any) *Error {
	return Validation(map[string]string{field: fmt.Sprintf(format, args...)})
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// FromStorage classifies a storage-layer failure into the taxonomy. A unique
// violation that slipped past a pre-flight check (two concurrent writers) must
// still come back as Conflict, never as a raw storage error.
func FromStorage(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: "record not found", cause: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &Error{Kind: KindConflict, Message: "duplicate value for unique field", cause: err}
		case pgForeignKeyViolation:
			return &Error{Kind: KindNotFound, Message: "referenced record not found", cause: err}
		case pgCheckViolation:
			return &Error{
				Kind:        KindValidation,
				Message:     "value rejected by constraint " + pgErr.ConstraintName,
				FieldErrors: map[string]string{pgErr.ConstraintName: "constraint violated"},
				cause:       err,
			}
		}
	}
	return &Error{Kind: KindStorage, Message: "storage operation failed", cause: err}
}

// From normalizes any error into a taxonomy error, defaulting to Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}
