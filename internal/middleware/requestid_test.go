package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Pre(RequestIDMiddleware())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Request().Header.Get(echo.HeaderXRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := serve(e, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))

	for _, bad := range []string{"", strings.Repeat("x", 65), "has space"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRequestID, bad)
		rec := serve(e, req)
		_, err := uuid.Parse(rec.Body.String())
		assert.NoError(t, err, "%q should be replaced", bad)
		assert.Equal(t, rec.Body.String(), rec.Header().Get(echo.HeaderXRequestID))
	}
}
