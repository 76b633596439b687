package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrRejected     = errors.New("connection rejected")
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessClaims carries the user id in the registered "sub" claim.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Identity is attached to a connection once the handshake succeeds.
type Identity struct {
	UserID   int64
	Username string
}
