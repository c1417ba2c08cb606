package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	TokenType string   `json:"token_type"`
	Roles     []string `json:"roles"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

type JWTUtil interface {
	GenerateAccessToken(userID uuid.UUID, roles []string) (token string, exp time.Time, jti string, err error)
	GenerateRefreshToken(userID uuid.UUID) (token string, exp time.Time, jti string, err error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
	ValidateRefreshToken(token string) (claims RefreshClaims, err error)
}
