package inbound

import (
	"context"

	"github.com/altari/auth-service/application/port/outbound"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult carries a freshly issued token pair plus the TTLs the
// handler needs for the response body and the refresh cookie.
type AuthResult struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    // seconds until refresh token expiry (cookie TTL)
}

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthUseCase interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	// Refresh takes the claims already verified by the request guard
	// from a refresh-typed token.
	Refresh(ctx context.Context, claims *outbound.TokenClaims) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*MeResponse, error)
}
