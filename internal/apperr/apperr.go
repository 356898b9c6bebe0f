package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure so HTTP controllers and API clients can
// branch on it without parsing messages.
type Kind string

const (
	KindInvalidURL          Kind = "invalid_url"
	KindFetchFailed         Kind = "fetch_failed"
	KindGenerationExhausted Kind = "generation_exhausted"
	KindNotFound            Kind = "not_found"
	KindMalformedSubmission Kind = "malformed_submission"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// MessageOf returns the app-level message, or err.Error() for untyped errors.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindInvalidURL, KindMalformedSubmission:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindFetchFailed:
		return http.StatusBadGateway
	case KindGenerationExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
