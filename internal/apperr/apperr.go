// Package apperr defines the classified errors shared by the generation,
// review and publishing pipelines. Boundary layers choose status codes from
// the Kind instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuthentication      Kind = "authentication"
	KindUnauthorized        Kind = "unauthorized"
	KindRateLimit           Kind = "rate_limit"
	KindContextTooLarge     Kind = "context_too_large"
	KindMalformedAIResponse Kind = "malformed_ai_response"
	KindRemoteHost          Kind = "remote_host"
	KindNotFound            Kind = "not_found"
	KindEmptyGeneration     Kind = "empty_generation"
	KindInternal            Kind = "internal"
)

// Machine codes exposed to API clients.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimit           = "RATE_LIMIT"
	CodeValidation          = "VALIDATION"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL"
	CodeContextTooLarge     = "CONTEXT_TOO_LARGE"
	CodeMalformedAIResponse = "MALFORMED_AI_RESPONSE"
	CodeRemoteHost          = "REMOTE_HOST"
)

// PreviewLimit bounds how much raw model output is attached to an error.
const PreviewLimit = 200

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Preview holds a bounded excerpt of raw model output, only for
	// malformed responses.
	Preview string
	// Status is the HTTP status reported by a remote host, when known.
	Status int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether the retry client may attempt the operation again.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case KindValidation, KindAuthentication, KindUnauthorized, KindContextTooLarge, KindMalformedAIResponse, KindNotFound:
		return false
	default:
		return true
	}
}

// Code returns the machine code surfaced to API clients.
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return CodeValidation
	case KindAuthentication, KindUnauthorized:
		return CodeUnauthorized
	case KindRateLimit:
		return CodeRateLimit
	case KindContextTooLarge:
		return CodeContextTooLarge
	case KindMalformedAIResponse:
		return CodeMalformedAIResponse
	case KindNotFound:
		return CodeNotFound
	case KindRemoteHost:
		return CodeRemoteHost
	default:
		return CodeInternal
	}
}

// HTTPStatus maps the kind to the status the API boundary responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindContextTooLarge:
		return http.StatusBadRequest
	case KindAuthentication, KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindMalformedAIResponse, KindEmptyGeneration:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	case KindRemoteHost:
		if e.Status >= 400 && e.Status < 500 && e.Status != http.StatusNotFound {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, fmt.Sprintf(format, args...))
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, fmt.Sprintf(format, args...))
}

func Unauthorized(op, message string) *Error {
	return New(KindUnauthorized, op, message)
}

// MalformedAIResponse keeps only the first PreviewLimit characters of raw.
func MalformedAIResponse(op string, raw string, cause error) *Error {
	return &Error{
		Kind:    KindMalformedAIResponse,
		Op:      op,
		Message: "model returned a response that could not be parsed as JSON",
		Preview: Preview(raw),
		Err:     cause,
	}
}

// Preview returns at most PreviewLimit runes of s.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLimit {
		return s
	}
	return string(r[:PreviewLimit])
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetriable treats unclassified errors as transient.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retriable()
	}
	return true
}

// As extracts the classified error, wrapping unclassified errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}
