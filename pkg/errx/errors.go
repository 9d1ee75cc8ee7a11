// Package errx holds the single application error type shared by the auth
// services, the HTTP pipeline and the client SDK.
package errx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes. Clients branch on these strings so they must never
// change once released.
const (
	CodeNoToken               = "NO_TOKEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenRevoked          = "TOKEN_REVOKED"
	CodeSessionTerminated     = "SESSION_TERMINATED"
	CodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired   = "REFRESH_TOKEN_EXPIRED"
	CodeInvalidOTP            = "INVALID_OTP"
	CodeOTPExpired            = "OTP_EXPIRED"
	CodeTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	CodeDecryptionError       = "DECRYPTION_ERROR"
	CodeMissingPublicKey      = "MISSING_PUBLIC_KEY"
	CodeEncryptionError       = "ENCRYPTION_ERROR"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodePrincipalExists       = "PRINCIPAL_EXISTS"
	CodePrincipalNotFound     = "PRINCIPAL_NOT_FOUND"
	CodeAccountDisabled       = "ACCOUNT_DISABLED"
	CodeForbidden             = "FORBIDDEN"
	CodeRateLimited           = "RATE_LIMITED"
	CodeDeliveryFailed        = "DELIVERY_FAILED"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeUnsupportedMediaType  = "UNSUPPORTED_MEDIA_TYPE"
	CodeRequestEntityTooLarge = "REQUEST_TOO_LARGE"
)

// Error is an application error carrying the HTTP status and the stable code
// surfaced to callers. Err optionally holds the underlying cause, which is
// logged but never written to the wire.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the code so wrapped copies compare equal to the predefined
// values with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e with a different human readable message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e that records cause for logging.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// New builds an ad-hoc error.
func New(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

// Internal wraps an unexpected failure as a 500.
func Internal(err error) *Error {
	return ErrInternal.Wrap(err)
}

// Validation builds a 400 VALIDATION_ERROR with a specific message.
func Validation(msg string) *Error {
	return ErrValidation.WithMessage(msg)
}

// From extracts the application error from err, falling back to a 500 for
// anything that is not one.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Body is the wire representation of an error response.
type Body struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write serializes err to w. Non application errors are written as a generic
// 500 without leaking their text.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(Body{
		Success: false,
		Code:    e.Code,
		Message: e.Message,
	})
}

var (
	ErrNoToken = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeNoToken,
		Message: "authentication token required",
	}
	ErrInvalidToken = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidToken,
		Message: "invalid authentication token",
	}
	ErrTokenExpired = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeTokenExpired,
		Message: "authentication token has expired",
	}
	ErrTokenRevoked = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeTokenRevoked,
		Message: "authentication token has been revoked",
	}
	ErrSessionTerminated = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeSessionTerminated,
		Message: "session is no longer active, please log in again",
	}
	ErrInvalidRefreshToken = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidRefreshToken,
		Message: "invalid refresh token",
	}
	ErrRefreshTokenExpired = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeRefreshTokenExpired,
		Message: "refresh token has expired",
	}
	ErrInvalidOTP = &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidOTP,
		Message: "invalid verification code",
	}
	ErrOTPExpired = &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeOTPExpired,
		Message: "verification code has expired",
	}
	ErrTooManyAttempts = &Error{
		Status:  http.StatusTooManyRequests,
		Code:    CodeTooManyAttempts,
		Message: "too many attempts, request a new code",
	}
	ErrDecryption = &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeDecryptionError,
		Message: "unable to process request payload",
	}
	ErrMissingPublicKey = &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeMissingPublicKey,
		Message: "client public key required",
	}
	ErrEncryption = &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeEncryptionError,
		Message: "unable to encrypt response",
	}
	ErrValidation = &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "request is malformed or missing required fields",
	}
	ErrInvalidCredentials = &Error{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidCredentials,
		Message: "invalid credentials",
	}
	ErrPrincipalExists = &Error{
		Status:  http.StatusConflict,
		Code:    CodePrincipalExists,
		Message: "an account with this identifier already exists",
	}
	ErrPrincipalNotFound = &Error{
		Status:  http.StatusNotFound,
		Code:    CodePrincipalNotFound,
		Message: "no account found for this identifier",
	}
	ErrAccountDisabled = &Error{
		Status:  http.StatusForbidden,
		Code:    CodeAccountDisabled,
		Message: "account is disabled",
	}
	ErrForbidden = &Error{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: "insufficient permissions",
	}
	ErrRateLimited = &Error{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimited,
		Message: "too many requests, please try again later",
	}
	ErrDeliveryFailed = &Error{
		Status:  http.StatusBadGateway,
		Code:    CodeDeliveryFailed,
		Message: "unable to deliver verification code",
	}
	ErrServiceUnavailable = &Error{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeServiceUnavailable,
		Message: "service temporarily unavailable",
	}
	ErrInternal = &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
	}
	ErrNotFound = &Error{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: "resource not found",
	}
	ErrUnsupportedMediaType = &Error{
		Status:  http.StatusUnsupportedMediaType,
		Code:    CodeUnsupportedMediaType,
		Message: "content type must be application/json",
	}
	ErrRequestTooLarge = &Error{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    CodeRequestEntityTooLarge,
		Message: "request body too large",
	}
)
