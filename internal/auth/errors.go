package auth

import (
	"errors"
	"net/http"
)

var (
	ErrMissingToken       = errors.New("missing authorization token")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownUser        = errors.New("unknown user")
	ErrTenantMismatch     = errors.New("token does not belong to this tenant")
	ErrMembershipRevoked  = errors.New("tenant access revoked")
	ErrMembershipMismatch = errors.New("membership does not match token")
	ErrMembershipInactive = errors.New("membership inactive")
	ErrUnavailable        = errors.New("authentication unavailable")
)

// StatusCode maps an authentication error to its HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnknownUser):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTenantMismatch), errors.Is(err, ErrMembershipRevoked),
		errors.Is(err, ErrMembershipMismatch), errors.Is(err, ErrMembershipInactive):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType returns a short label for metrics and logs
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, ErrMembershipRevoked):
		return "membership_revoked"
	case errors.Is(err, ErrMembershipMismatch):
		return "membership_mismatch"
	case errors.Is(err, ErrMembershipInactive):
		return "membership_inactive"
	default:
		return "unavailable"
	}
}

// Message returns the client-facing message for an authentication error.
// Wrapped details are never exposed.
func Message(err error) string {
	for _, sentinel := range []error{
		ErrMissingToken, ErrInvalidToken, ErrUnknownUser, ErrTenantMismatch,
		ErrMembershipRevoked, ErrMembershipMismatch, ErrMembershipInactive,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrUnavailable.Error()
}
