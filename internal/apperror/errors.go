// Package apperror defines the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindBadReference
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadReference:
		return "bad_reference"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is a classified application error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// ClientFault marks storage failures caused by the uploaded file itself.
	ClientFault bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with id %s not found", entity, id)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Storage wraps a blob store failure. clientFault marks failures caused by
// the uploaded file itself.
func Storage(err error, clientFault bool) error {
	msg := "image storage failed"
	if clientFault {
		msg = "invalid image"
	}
	return &Error{Kind: KindStorage, Message: msg, Err: err, ClientFault: clientFault}
}

// Reference names one foreign key that failed to resolve.
type Reference struct {
	Relation string `json:"relation"`
	ID       string `json:"id"`
}

// BadReferenceError lists every unresolved foreign key of a write.
type BadReferenceError struct {
	Refs []Reference
}

func (e *BadReferenceError) Error() string {
	parts := make([]string, 0, len(e.Refs))
	for _, r := range e.Refs {
		parts = append(parts, fmt.Sprintf("%s %s does not exist", r.Relation, r.ID))
	}
	return "bad reference: " + strings.Join(parts, "; ")
}

func BadReference(refs ...Reference) error {
	return &BadReferenceError{Refs: refs}
}

// KindOf reports the classification of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var bad *BadReferenceError
	if errors.As(err, &bad) {
		return KindBadReference
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusCode maps err onto an HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindBadReference:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindStorage:
		var ae *Error
		if errors.As(err, &ae) && ae.ClientFault {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for err. Internal errors
// never leak their detail.
func PublicMessage(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	var bad *BadReferenceError
	if errors.As(err, &bad) {
		return bad.Error()
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
