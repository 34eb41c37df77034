package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eventhub/internal/auth"
	"eventhub/internal/middleware"
	"eventhub/internal/model"
	"eventhub/internal/store"
	"eventhub/pkg/jwtutil"
	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

// UserLookup finds users by email
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// MembershipLookup finds the membership of a user in a tenant
type MembershipLookup interface {
	FindByUserAndTenant(ctx context.Context, userID, tenantID uint) (*model.Membership, error)
}

// TokenService issues and refreshes tokens
type TokenService interface {
	Issue(sub jwtutil.Subject) (*jwtutil.TokenPair, error)
	Refresh(refreshToken string) (string, time.Time, error)
}

// AuthHandler serves login, refresh and the caller's own identity
type AuthHandler struct {
	users       UserLookup
	memberships MembershipLookup
	tokens      TokenService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(users UserLookup, memberships MembershipLookup, tokens TokenService) *AuthHandler {
	return &AuthHandler{users: users, memberships: memberships, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues a token pair bound to the resolved
// tenant and the caller's membership in it
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return invalidRequest(c, err)
	}

	tenant, ok := middleware.TenantFromEcho(c)
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "tenant not specified")
	}

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("Login for unknown email", zap.String("email", req.Email))
			prometheus.RecordAuthError("user_not_found")
			return middleware.Fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return storeError(c, err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Info("Invalid password", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("invalid_password")
		return middleware.Fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	membership, err := h.memberships.FindByUserAndTenant(ctx, user.ID, tenant.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !user.IsSuperAdmin {
			log.Warn("Login without membership", zap.Uint("user_id", user.ID), zap.Uint("tenant_id", tenant.ID))
			prometheus.RecordAuthError("no_membership")
			return middleware.Fail(c, http.StatusForbidden, "no access to this tenant")
		}
		membership = nil
	case err != nil:
		return storeError(c, err, "membership")
	case !membership.IsActive():
		prometheus.RecordAuthError("membership_inactive")
		return middleware.Fail(c, http.StatusForbidden, "membership inactive")
	}

	pair, err := auth.IssueFor(h.tokens, user, tenant, membership)
	if err != nil {
		log.Error("Failed to issue tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return middleware.Fail(c, http.StatusInternalServerError, "token error")
	}

	data := echo.Map{
		"tokens":    pair,
		"user":      user,
		"tenant_id": tenant.ID,
	}
	if membership != nil {
		data["membership_id"] = membership.ID
		data["scopes"] = membership.Scopes()
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID), zap.Uint("tenant_id", tenant.ID))
	return middleware.OK(c, http.StatusOK, data)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return invalidRequest(c, err)
	}

	access, exp, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		logger.FromEcho(c).Info("Refresh rejected", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return middleware.Fail(c, http.StatusUnauthorized, "invalid or expired token")
	}
	prometheus.RecordTokenIssued(jwtutil.TypeAccess)

	return middleware.OK(c, http.StatusOK, echo.Map{
		"access_token":      access,
		"access_expires_at": exp,
	})
}

// Me returns the authenticated caller
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := middleware.IdentityFromEcho(c)
	if !ok {
		return middleware.Fail(c, http.StatusUnauthorized, "missing authorization token")
	}

	data := echo.Map{
		"user":        identity.User,
		"tenant_id":   identity.TenantID,
		"scopes":      identity.Scopes,
		"super_admin": identity.SuperAdmin,
	}
	if identity.Membership != nil {
		data["membership_id"] = identity.Membership.ID
		data["membership_status"] = identity.Membership.Status
	}
	return middleware.OK(c, http.StatusOK, data)
}
