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

// TenantAdmin lists tenants and changes their status
type TenantAdmin interface {
	List(ctx context.Context) ([]model.Tenant, error)
	FindByID(ctx context.Context, id uint) (*model.Tenant, error)
	SetStatus(ctx context.Context, id uint, status string) (*model.Tenant, error)
}

// CrossTenantEvents reads events of any tenant
type CrossTenantEvents interface {
	ListEventsForTenant(ctx context.Context, tenantID uint) ([]model.Event, error)
}

// SuperAdminHandler serves the /superadmin routes. None of them run with a
// resolved tenant.
type SuperAdminHandler struct {
	tenants TenantAdmin
	events  CrossTenantEvents
}

// NewSuperAdminHandler creates a superadmin handler
func NewSuperAdminHandler(tenants TenantAdmin, events CrossTenantEvents) *SuperAdminHandler {
	return &SuperAdminHandler{tenants: tenants, events: events}
}

// ListTenants returns every tenant
func (h *SuperAdminHandler) ListTenants(c echo.Context) error {
	tenants, err := h.tenants.List(c.Request().Context())
	if err != nil {
		return storeError(c, err, "tenant")
	}
	return middleware.OK(c, http.StatusOK, tenants)
}

type tenantStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended trial cancelled"`
}

// SetTenantStatus changes a tenant's lifecycle status. Tenants that are not
// active stop resolving immediately.
func (h *SuperAdminHandler) SetTenantStatus(c echo.Context) error {
	id, ok := paramID(c, "tenant_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid tenant id")
	}
	var req tenantStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	tenant, err := h.tenants.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return storeError(c, err, "tenant")
	}

	logger.FromEcho(c).Info("Tenant status changed", zap.Uint("tenant_id", id), zap.String("status", req.Status))
	return middleware.OK(c, http.StatusOK, tenant)
}

// ListTenantEvents returns the events of one tenant
func (h *SuperAdminHandler) ListTenantEvents(c echo.Context) error {
	id, ok := paramID(c, "tenant_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid tenant id")
	}
	ctx := c.Request().Context()

	if _, err := h.tenants.FindByID(ctx, id); err != nil {
		return storeError(c, err, "tenant")
	}
	events, err := h.events.ListEventsForTenant(ctx, id)
	if err != nil {
		return storeError(c, err, "event")
	}
	return middleware.OK(c, http.StatusOK, events)
}
