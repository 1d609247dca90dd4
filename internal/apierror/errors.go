// Package apierror defines the caller-visible error taxonomy of the API.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies an APIError.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// HTTPStatus returns the HTTP status code for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the gRPC status code for the kind.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindBadRequest:
		return codes.InvalidArgument
	case KindUnauthorized:
		return codes.Unauthenticated
	case KindForbidden:
		return codes.PermissionDenied
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindTooManyRequests:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// APIError is an error whose Message is safe to show to clients.
type APIError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for the error.
func (e *APIError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// From extracts an APIError from err's chain.
func From(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := From(err)
	return ok && apiErr.Kind == kind
}

func newErr(kind Kind, msg string, cause error) *APIError {
	return &APIError{Kind: kind, Message: msg, Cause: cause}
}

func NewErrEmailIsTaken() *APIError {
	return newErr(KindConflict, "User with this email already exists", nil)
}

func NewErrProviderConflict(provider string) *APIError {
	return newErr(KindConflict, fmt.Sprintf("Email already registered with %s provider", provider), nil)
}

// NewErrProviderAccountConflict is returned when the email belongs to a
// different account of the same provider.
func NewErrProviderAccountConflict(provider string) *APIError {
	return newErr(KindConflict, fmt.Sprintf("Email already registered with another %s account", provider), nil)
}

// NewErrInvalidCredentials is used for every login failure that must not
// reveal whether the email exists.
func NewErrInvalidCredentials() *APIError {
	return newErr(KindUnauthorized, "Invalid credentials", nil)
}

func NewErrAccountDeactivated() *APIError {
	return newErr(KindForbidden, "Account is deactivated", nil)
}

func NewErrInvalidRefreshToken(cause error) *APIError {
	return newErr(KindUnauthorized, "Invalid refresh token", cause)
}

func NewErrRefreshTokenExpired() *APIError {
	return newErr(KindUnauthorized, "Refresh token expired", nil)
}

func NewErrMissingRefreshToken() *APIError {
	return newErr(KindUnauthorized, "Refresh token not found", nil)
}

func NewErrUserNotFoundOrInactive() *APIError {
	return newErr(KindUnauthorized, "User not found or inactive", nil)
}

func NewErrMissingAuthorizationToken() *APIError {
	return newErr(KindUnauthorized, "Authorization token is required", nil)
}

func NewErrInvalidAuthorizationToken(cause error) *APIError {
	return newErr(KindUnauthorized, "Invalid or expired token", cause)
}

func NewErrInsufficientRole() *APIError {
	return newErr(KindForbidden, "Insufficient permissions", nil)
}

func NewErrOAuthEmailMissing(provider string) *APIError {
	return newErr(KindBadRequest, fmt.Sprintf("Email not provided by %s", provider), nil)
}

func NewErrOAuthEmailUnverified(provider string) *APIError {
	return newErr(KindBadRequest, fmt.Sprintf("Email not verified by %s", provider), nil)
}

func NewErrOAuthFailed(cause error) *APIError {
	return newErr(KindBadRequest, "OAuth authentication failed", cause)
}

func NewErrProviderNotConfigured(provider string) *APIError {
	return newErr(KindNotFound, fmt.Sprintf("OAuth provider %s is not configured", provider), nil)
}

func NewErrValidation(msg string, cause error) *APIError {
	return newErr(KindBadRequest, msg, cause)
}

func NewErrUserNotFound() *APIError {
	return newErr(KindNotFound, "User not found", nil)
}

func NewErrRouteNotFound() *APIError {
	return newErr(KindNotFound, "Route not found", nil)
}

func NewErrTooManyRequests() *APIError {
	return newErr(KindTooManyRequests, "Too many requests", nil)
}

func NewErrInternalServerError(cause error) *APIError {
	return newErr(KindInternal, "Internal server error", cause)
}
