// Package apperror is the error taxonomy shared by every gateway route: a
// closed set of user-visible codes, each mapped to an HTTP status, so
// handlers never leak collaborator exception text to a client.
//
// Grounded on the teacher's internal/errors (api_error.go, not_found.go):
// same idea of a typed error carrying an HTTP status and a stable code,
// regeneralized here from gin's AbortWithStatusJSON helpers to a plain
// error type the hand-rolled router's Response wrapper renders itself.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/streamfabric/gateway/internal/blockstream"
)

// Code is one of the closed set of user-visible error codes from §7.
type Code string

const (
	ValidationError     Code = "VALIDATION_ERROR"
	InvalidJSON         Code = "INVALID_JSON"
	AuthenticationError Code = "AUTHENTICATION_ERROR"
	Forbidden           Code = "FORBIDDEN"
	NotFound            Code = "NOT_FOUND"
	ConnectionLimit     Code = "CONNECTION_LIMIT"
	SubscriptionLimit   Code = "SUBSCRIPTION_LIMIT"
	ServiceUnavailable  Code = "SERVICE_UNAVAILABLE"
	NotImplemented      Code = "NOT_IMPLEMENTED"
	InternalError       Code = "INTERNAL_ERROR"
	RunStartFailed      Code = "RUN_START_FAILED"
	UnknownChannel      Code = "UNKNOWN_CHANNEL"
	UnknownAction       Code = "UNKNOWN_ACTION"
)

var statusByCode = map[Code]int{
	ValidationError:     http.StatusBadRequest,
	InvalidJSON:         http.StatusBadRequest,
	AuthenticationError: http.StatusUnauthorized,
	Forbidden:           http.StatusForbidden,
	NotFound:            http.StatusNotFound,
	ConnectionLimit:     http.StatusServiceUnavailable,
	SubscriptionLimit:   http.StatusTooManyRequests,
	ServiceUnavailable:  http.StatusServiceUnavailable,
	NotImplemented:      http.StatusNotImplemented,
	InternalError:       http.StatusInternalServerError,
	RunStartFailed:      http.StatusBadGateway,
	UnknownChannel:      http.StatusBadRequest,
	UnknownAction:       http.StatusBadRequest,
}

// Error is the concrete error type carried through handler return values and
// rendered by the Response wrapper as {error:{code, message, details?}}.
type Error struct {
	Code    Code
	Message string
	Details any
	status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP status this error renders as.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error for the given code with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details to the error, returning a copy.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// FromBlockstream maps a blockstream sentinel error to the user-visible
// taxonomy. Returns nil if err is nil.
func FromBlockstream(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, blockstream.ErrCompleted) {
		return New(ValidationError, "stream already completed")
	}
	return New(InternalError, "internal error")
}

// Envelope is the wire shape of an error response body.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

// EnvelopeBody is the {code, message, details?} payload inside Envelope.
type EnvelopeBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToEnvelope renders e as the wire envelope.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{Error: EnvelopeBody{Code: e.Code, Message: e.Message, Details: e.Details}}
}

// As normalizes any error into an *Error, defaulting unknown errors to
// INTERNAL_ERROR without leaking their message (per the §7 propagation
// policy collaborators' raw text must never reach the client).
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(InternalError, "internal error")
}
