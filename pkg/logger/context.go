package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey struct{}

const echoKey = "logger"

// FromContext retrieves the logger from the context
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return GetLogger()
	}
	l, ok := ctx.Value(contextKey{}).(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return l
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromEcho retrieves the logger from the Echo context
func FromEcho(c echo.Context) *zap.Logger {
	l, ok := c.Get(echoKey).(*zap.Logger)
	if !ok {
		return FromContext(c.Request().Context())
	}
	return l
}

// Attach stores the logger on both the Echo context and the request context,
// so code that only sees a context.Context (e.g. gorm callbacks) logs with
// the same fields.
func Attach(c echo.Context, l *zap.Logger) {
	c.Set(echoKey, l)
	req := c.Request()
	c.SetRequest(req.WithContext(WithContext(req.Context(), l)))
}
