package jwtutil_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/pkg/config"
	"eventhub/pkg/jwtutil"
)

func uintPtr(v uint) *uint { return &v }

func newService(t *testing.T, accessTTL, refreshTTL time.Duration) *jwtutil.Service {
	t.Helper()
	svc, err := jwtutil.NewService(&config.JWTConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Issuer:        "eventhub-test",
	})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	_, err := jwtutil.NewService(nil)
	assert.ErrorIs(t, err, jwtutil.ErrMissingSecret)

	_, err = jwtutil.NewService(&config.JWTConfig{AccessSecret: "a"})
	assert.ErrorIs(t, err, jwtutil.ErrMissingSecret)
}

func TestIssue(t *testing.T) {
	svc := newService(t, 15*time.Minute, time.Hour)

	pair, err := svc.Issue(jwtutil.Subject{
		UserID:       42,
		TenantID:     uintPtr(7),
		MembershipID: uintPtr(88),
		Scopes:       []string{"organizer", "tenant_admin", "organizer"},
	})
	require.NoError(t, err)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	access, err := svc.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, "42", access.Subject)
	require.NotNil(t, access.TenantID)
	assert.Equal(t, uint(7), *access.TenantID)
	require.NotNil(t, access.MembershipID)
	assert.Equal(t, uint(88), *access.MembershipID)
	assert.Equal(t, []string{"organizer", "tenant_admin"}, access.Scopes)
	assert.False(t, access.SuperAdmin)
	assert.Equal(t, jwtutil.TypeAccess, access.Type)
	assert.Empty(t, access.ID)

	refresh, err := svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, jwtutil.TypeRefresh, refresh.Type)
	assert.NotEmpty(t, refresh.ID)
}

func TestIssueTenantless(t *testing.T) {
	svc := newService(t, time.Minute, time.Hour)

	pair, err := svc.Issue(jwtutil.Subject{UserID: 1, SuperAdmin: true})
	require.NoError(t, err)

	claims, err := svc.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.Nil(t, claims.MembershipID)
	assert.True(t, claims.SuperAdmin)
}

func TestRefresh(t *testing.T) {
	svc := newService(t, time.Minute, time.Hour)

	pair, err := svc.Issue(jwtutil.Subject{
		UserID:       42,
		TenantID:     uintPtr(7),
		MembershipID: uintPtr(88),
		Scopes:       []string{"tenant_admin", "organizer"},
	})
	require.NoError(t, err)

	t.Run("re-issues access token with same payload", func(t *testing.T) {
		token, exp, err := svc.Refresh(pair.RefreshToken)
		require.NoError(t, err)
		assert.False(t, exp.IsZero())

		claims, err := svc.ValidateAccess(token)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, uint(7), *claims.TenantID)
		assert.Equal(t, uint(88), *claims.MembershipID)
		assert.Equal(t, []string{"organizer", "tenant_admin"}, claims.Scopes)
	})

	t.Run("rejects access token", func(t *testing.T) {
		_, _, err := svc.Refresh(pair.AccessToken)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, _, err := svc.Refresh("not-a-token")
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})
}

func TestValidateAccessRejects(t *testing.T) {
	svc := newService(t, time.Minute, time.Hour)
	pair, err := svc.Issue(jwtutil.Subject{UserID: 5})
	require.NoError(t, err)

	t.Run("refresh token", func(t *testing.T) {
		_, err := svc.ValidateAccess(pair.RefreshToken)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newService(t, -time.Minute, time.Hour)
		p, err := expired.Issue(jwtutil.Subject{UserID: 5})
		require.NoError(t, err)

		_, err = svc.ValidateAccess(p.AccessToken)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := jwtutil.NewService(&config.JWTConfig{
			AccessSecret:  "someone-elses-access-secret",
			RefreshSecret: "someone-elses-refresh-secret",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "eventhub-test",
		})
		require.NoError(t, err)
		p, err := other.Issue(jwtutil.Subject{UserID: 5})
		require.NoError(t, err)

		_, err = svc.ValidateAccess(p.AccessToken)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := jwtutil.Claims{UserID: 5, Type: jwtutil.TypeAccess, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    "eventhub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateAccess(raw)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})

	t.Run("tampered subject", func(t *testing.T) {
		claims := jwtutil.Claims{UserID: 5, Type: jwtutil.TypeAccess, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "6",
			Issuer:    "eventhub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret-for-tests-0123456789"))
		require.NoError(t, err)

		_, err = svc.ValidateAccess(raw)
		assert.ErrorIs(t, err, jwtutil.ErrInvalidToken)
	})
}

func TestNormalizeScopes(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, jwtutil.NormalizeScopes([]string{"b", "", "a", "b"}))
	assert.Empty(t, jwtutil.NormalizeScopes(nil))
}
