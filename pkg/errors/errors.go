package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeIntegrity     Code = "INTEGRITY_ERROR"
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces to HTTP callers. Callers' own messages are
// shown only when ExposeMessage is set; otherwise PublicMessage is used.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, false, "validation failed", true, true},
	CodeUnauthorized:  {http.StatusUnauthorized, false, "authentication required", true, false},
	CodeForbidden:     {http.StatusForbidden, false, "access denied", true, false},
	CodeNotFound:      {http.StatusNotFound, false, "resource not found", true, false},
	CodeConflict:      {http.StatusConflict, false, "conflict detected", true, false},
	CodeStateConflict: {http.StatusUnprocessableEntity, false, "state transition disallowed", true, true},
	CodeIdempotency:   {http.StatusConflict, false, "idempotency key reused", true, true},
	CodeRateLimit:     {http.StatusTooManyRequests, true, "rate limit exceeded", true, false},
	CodeIntegrity:     {http.StatusBadRequest, false, "payload integrity check failed", true, false},
	CodeConfiguration: {http.StatusInternalServerError, false, "service misconfigured", false, false},
	CodeInternal:      {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:    {http.StatusServiceUnavailable, true, "dependency unavailable", false, true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error carrying an optional cause and public details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
