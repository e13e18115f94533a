// Package apierr is the error taxonomy shared by every component. Kinds,
// not concrete type names, map onto HTTP status codes at the handler
// boundary; nothing below that boundary panics.
package apierr

import "net/http"

// Kind is one of the fixed error kinds the service can surface.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInsufficientData    Kind = "insufficient_data"
	KindModelNotAvailable   Kind = "model_not_available"
	KindServiceInitializing Kind = "service_initializing"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindUnsafeQuery         Kind = "unsafe_query"
	KindUpstreamFailure     Kind = "upstream_failure"
	KindValidation          Kind = "validation_error"
	KindInternal            Kind = "internal_error"
)

// Error carries a Kind alongside a human message; callers use errors.As to
// recover it at the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound, InsufficientData, ModelNotAvailable, etc. are convenience
// constructors for the common kinds.
func NotFound(message string) *Error          { return New(KindNotFound, message) }
func InsufficientData(message string) *Error  { return New(KindInsufficientData, message) }
func ModelNotAvailable(message string) *Error { return New(KindModelNotAvailable, message) }
func Unauthorized(message string) *Error      { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func UnsafeQuery(message string) *Error       { return New(KindUnsafeQuery, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }
func Internal(message string) *Error          { return New(KindInternal, message) }
func Upstream(err error) *Error               { return Wrap(KindUpstreamFailure, "upstream call failed", err) }

// HTTPStatus maps a Kind to its status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientData:
		return http.StatusUnprocessableEntity
	case KindModelNotAvailable, KindServiceInitializing:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindUnsafeQuery:
		// The assistant pipeline degrades unsafe queries to a sanitized
		// fallback body before they reach a handler; this mapping only
		// covers a caller surfacing one directly.
		return http.StatusBadRequest
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
