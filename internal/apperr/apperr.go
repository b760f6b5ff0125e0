// Package apperr defines the error taxonomy returned by the service layer
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	NotFound
	Auth
	Forbidden
)

var kindStatus = map[Kind]int{
	Internal:   http.StatusInternalServerError,
	Validation: http.StatusBadRequest,
	Conflict:   http.StatusBadRequest,
	NotFound:   http.StatusNotFound,
	Auth:       http.StatusUnauthorized,
	Forbidden:  http.StatusForbidden,
}

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Auth:
		return "auth"
	case Forbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is an error carrying a Kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	if s, ok := kindStatus[KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message returns the text shown to clients. Internal errors report the
// underlying message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Internal && e.Err != nil {
			return e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}
