// Package common defines shared constants and sentinel errors used across
// client and server layers of TeamDesk. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Directory errors.
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidRole       = errors.New("invalid role")

	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAlreadyLoggedIn    = errors.New("already logged in")

	// Team token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
