package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eventhub/internal/middleware"
	"eventhub/internal/store"
	"eventhub/internal/tenancy"
	"eventhub/pkg/logger"
)

// storeError writes the response for a failed store call. Scoping violations
// are programming defects and surface as internal errors, never as not-found.
func storeError(c echo.Context, err error, what string) error {
	log := logger.FromEcho(c)
	switch {
	case tenancy.IsScopingViolation(err):
		log.Error("Tenant scoping violation", zap.Bool("scoping_violation", true), zap.Error(err))
		return middleware.Fail(c, http.StatusInternalServerError, "internal error")
	case errors.Is(err, store.ErrNotFound):
		return middleware.Fail(c, http.StatusNotFound, what+" not found")
	default:
		log.Error("Store operation failed", zap.String("resource", what), zap.Error(err))
		return middleware.Fail(c, http.StatusInternalServerError, "internal error")
	}
}

func paramID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidRequest(c echo.Context, err error) error {
	logger.FromEcho(c).Info("Invalid request", zap.Error(err))
	return middleware.Fail(c, http.StatusBadRequest, "invalid request")
}
