package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an identity. Admin
// credentials take the same path and are matched against server config.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest holds the payload for visitor registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6"`
}

// SessionResponse returns the issued token and identity info.
type SessionResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	IssuedAt    time.Time    `json:"issued_at"`
	Identity    IdentityInfo `json:"identity"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	IdentityID string       `json:"identity_id"`
	Username   string       `json:"username"`
	Role       IdentityRole `json:"role"`
	jwt.RegisteredClaims
}
