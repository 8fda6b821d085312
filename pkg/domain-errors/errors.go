// Package domainerrors provides code-tagged errors for the attestation core.
//
// Services construct these at precondition checks and translate
// infrastructure sentinels (pkg/platform/sentinel) into them; transports map
// codes onto HTTP statuses. Codes identify the kind of failure, not its
// representation.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of a domain error.
type Code string

// Authorization and lifecycle failure kinds.
const (
	CodeNotProtocolAdmin      Code = "not_protocol_admin"
	CodeNotAuthorizedIssuer   Code = "not_authorized_issuer"
	CodeInvalidAddress        Code = "invalid_address"
	CodeInvalidRegistryRef    Code = "invalid_issuer_registry_address"
	CodeInvalidCredentialHash Code = "invalid_credential_hash"
	CodeIssuerAlreadyExists   Code = "issuer_already_exists"
	CodeCredentialNotFound    Code = "credential_does_not_exist"
	CodeCredentialRevoked     Code = "credential_already_revoked"
	CodeOnlyIssuerCanRevoke   Code = "only_issuer_can_revoke"
	CodeNotTransferable       Code = "credential_is_not_transferable"
	CodeAlreadyInitialized    Code = "already_initialized"
)

// Ambient failure kinds shared by all modules.
const (
	CodeInternal           Code = "internal"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a domain error carrying a machine-readable code, a human-readable
// message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if domainErr, ok := e.(*Error); ok && domainErr.Code == code {
			return true
		}
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code of err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message of err, or a generic one.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "internal error"
}

// HTTPStatus maps a domain code to the HTTP status the transport layer
// should respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidAddress,
		CodeInvalidRegistryRef, CodeInvalidCredentialHash:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotProtocolAdmin, CodeNotAuthorizedIssuer,
		CodeOnlyIssuerCanRevoke, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeCredentialNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIssuerAlreadyExists, CodeCredentialRevoked,
		CodeNotTransferable, CodeAlreadyInitialized, CodeInvariantViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
