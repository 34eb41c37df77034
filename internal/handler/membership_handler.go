package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eventhub/internal/middleware"
	"eventhub/internal/model"
	"eventhub/pkg/logger"
)

// MembershipAdmin changes memberships inside one tenant
type MembershipAdmin interface {
	SetStatus(ctx context.Context, tenantID, id uint, status string) error
	RevokeScope(ctx context.Context, tenantID, id uint, scope string) (int64, error)
}

// MembershipHandler lets tenant admins manage memberships
type MembershipHandler struct {
	store MembershipAdmin
}

// NewMembershipHandler creates a membership handler
func NewMembershipHandler(store MembershipAdmin) *MembershipHandler {
	return &MembershipHandler{store: store}
}

type membershipStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive invited"`
}

// SetStatus activates or deactivates a membership of the resolved tenant.
// The change applies to the member's next request.
func (h *MembershipHandler) SetStatus(c echo.Context) error {
	id, ok := paramID(c, "membership_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid membership id")
	}
	var req membershipStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}
	tenant, ok := middleware.TenantFromEcho(c)
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "tenant not specified")
	}

	if err := h.store.SetStatus(c.Request().Context(), tenant.ID, id, req.Status); err != nil {
		return storeError(c, err, "membership")
	}

	logger.FromEcho(c).Info("Membership status changed",
		zap.Uint("membership_id", id),
		zap.String("status", req.Status))
	return middleware.OK(c, http.StatusOK, echo.Map{"membership_id": id, "status": req.Status})
}

// RevokeRole removes every role with the given scope from a membership of
// the resolved tenant
func (h *MembershipHandler) RevokeRole(c echo.Context) error {
	id, ok := paramID(c, "membership_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid membership id")
	}
	scope := c.Param("scope")
	if !model.ValidScope(scope) {
		return middleware.Fail(c, http.StatusBadRequest, "invalid scope")
	}
	tenant, ok := middleware.TenantFromEcho(c)
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "tenant not specified")
	}

	removed, err := h.store.RevokeScope(c.Request().Context(), tenant.ID, id, scope)
	if err != nil {
		return storeError(c, err, "membership")
	}

	logger.FromEcho(c).Info("Membership role revoked",
		zap.Uint("membership_id", id),
		zap.String("scope", scope),
		zap.Int64("removed", removed))
	return middleware.OK(c, http.StatusOK, echo.Map{"membership_id": id, "scope": scope, "removed": removed})
}
