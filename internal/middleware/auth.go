package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eventhub/internal/auth"
	"eventhub/internal/model"
	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

const identityKey = "identity"

// Authenticator turns a bearer token into an identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string, tenant *model.Tenant) (*auth.Identity, error)
}

// BearerToken extracts the token of an "Authorization: Bearer" header. The
// scheme is case-insensitive.
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate validates the bearer token against the resolved tenant and
// stores the identity on the request
func Authenticate(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			req := c.Request()

			tenant, _ := TenantFromEcho(c)
			identity, err := a.Authenticate(req.Context(), BearerToken(req.Header.Get(echo.HeaderAuthorization)), tenant)
			if err != nil {
				prometheus.RecordAuthError(auth.ErrorType(err))

				fields := []zap.Field{zap.String("type", auth.ErrorType(err)), zap.Error(err)}
				switch {
				case errors.Is(err, auth.ErrTenantMismatch), errors.Is(err, auth.ErrMembershipMismatch):
					log.Warn("Cross-tenant token rejected", append(fields, zap.Bool("security_violation", true))...)
				case errors.Is(err, auth.ErrUnavailable):
					log.Error("Authentication failed", fields...)
				default:
					log.Warn("Authentication rejected", fields...)
				}
				return Fail(c, auth.StatusCode(err), auth.Message(err))
			}

			c.Set(identityKey, identity)
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), identity)))
			logger.Attach(c, log.With(zap.Uint("user_id", identity.UserID())))

			return next(c)
		}
	}
}

// IdentityFromEcho returns the identity authenticated for the request
func IdentityFromEcho(c echo.Context) (*auth.Identity, bool) {
	id, ok := c.Get(identityKey).(*auth.Identity)
	return id, ok && id != nil
}
