package config

import "errors"

var (
	// ErrDefaultSecret is returned when production runs with the built-in JWT secrets.
	ErrDefaultSecret = errors.New("config: default JWT secrets are not allowed in production")

	// ErrSharedSecret is returned when access and refresh tokens would share a signing secret.
	ErrSharedSecret = errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
)
