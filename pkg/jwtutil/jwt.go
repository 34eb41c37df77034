package jwtutil

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventhub/pkg/config"
)

// Token types carried in the token_type claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned for any signature, expiry, algorithm or type failure
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSecret is returned when a signing secret is not configured
	ErrMissingSecret = errors.New("JWT signing secret not provided")
)

// Claims is the payload of both access and refresh tokens
type Claims struct {
	UserID       uint     `json:"user_id"`
	TenantID     *uint    `json:"tenant_id"`
	MembershipID *uint    `json:"membership_id"`
	Scopes       []string `json:"scopes"`
	SuperAdmin   bool     `json:"super_admin"`
	Type         string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Subject describes who a token pair is issued for
type Subject struct {
	UserID       uint
	TenantID     *uint
	MembershipID *uint
	Scopes       []string
	SuperAdmin   bool
}

// TokenPair is the result of a successful Issue
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service issues and verifies tokens
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewService creates a token service from configuration
func NewService(cfg *config.JWTConfig) (*Service, error) {
	if cfg == nil || cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}

	return &Service{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}, nil
}

// Issue creates an access token and a refresh token for the subject
func (s *Service) Issue(sub Subject) (*TokenPair, error) {
	now := time.Now()
	scopes := NormalizeScopes(sub.Scopes)

	access, accessExp, err := s.signAccess(sub.UserID, sub.TenantID, sub.MembershipID, scopes, sub.SuperAdmin, now)
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(s.refreshTTL)
	refreshClaims := s.claims(sub.UserID, sub.TenantID, sub.MembershipID, scopes, sub.SuperAdmin, TypeRefresh, now, refreshExp)
	refreshClaims.ID = uuid.NewString()

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh verifies a refresh token and re-issues an access token carrying
// the same payload
func (s *Service) Refresh(refreshToken string) (string, time.Time, error) {
	claims, err := s.ValidateRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	return s.signAccess(claims.UserID, claims.TenantID, claims.MembershipID, claims.Scopes, claims.SuperAdmin, time.Now())
}

// ValidateAccess verifies an access token
func (s *Service) ValidateAccess(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.accessSecret, TypeAccess)
}

// ValidateRefresh verifies a refresh token
func (s *Service) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.refreshSecret, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh token without id", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) signAccess(userID uint, tenantID, membershipID *uint, scopes []string, superAdmin bool, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := s.claims(userID, tenantID, membershipID, scopes, superAdmin, TypeAccess, now, exp)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, exp, nil
}

func (s *Service) claims(userID uint, tenantID, membershipID *uint, scopes []string, superAdmin bool, typ string, now, exp time.Time) *Claims {
	return &Claims{
		UserID:       userID,
		TenantID:     tenantID,
		MembershipID: membershipID,
		Scopes:       scopes,
		SuperAdmin:   superAdmin,
		Type:         typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}

func (s *Service) parse(tokenString string, secret []byte, wantType string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, wantType, claims.Type)
	}
	if claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	return claims, nil
}

// NormalizeScopes returns a sorted copy of scopes without duplicates or blanks
func NormalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
