package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eventhub/internal/authz"
	"eventhub/internal/tenancy"
	"eventhub/pkg/logger"
)

// Route declares who may call a route
type Route struct {
	Scopes []string

	// OwnerParam names the path parameter of a resource whose owner may
	// call the route without holding one of Scopes
	OwnerParam string
}

// Authorize runs the authorization chain for a route. It must run after
// Authenticate.
func Authorize(chain *authz.Chain, route Route) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := IdentityFromEcho(c)
			ctx := c.Request().Context()

			req := &authz.Request{
				Identity:   identity,
				Scopes:     route.Scopes,
				OwnerParam: route.OwnerParam,
			}
			if tenantID, ok := tenancy.TenantIDFromContext(ctx); ok {
				req.TenantID = &tenantID
			}
			if route.OwnerParam != "" {
				if id, err := strconv.ParseUint(c.Param(route.OwnerParam), 10, 0); err == nil {
					req.ResourceID = uint(id)
				}
			}

			allowed, rule := chain.Decide(ctx, req)
			if !allowed {
				logger.FromEcho(c).Warn("Authorization denied",
					zap.String("rule", rule),
					zap.Strings("route_scopes", route.Scopes),
					zap.Uint("user_id", identity.UserID()))
				return Fail(c, http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
