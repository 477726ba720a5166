package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/altari/auth-service/application/port/outbound"
	"github.com/altari/auth-service/infrastructure/config"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrMalformedToken = errors.New("token malformed")
	ErrInvalidToken   = errors.New("invalid token")
)

// Claims is the signed payload. The type claim is stamped at issuance
// and checked against the verification context by the request guard.
type Claims struct {
	Email string             `json:"email"`
	Type  outbound.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Service signs and verifies both token kinds. Access and refresh
// tokens use distinct secrets and distinct TTLs; a token signed with
// one secret fails verification under the other.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(cfg *config.Config) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt service requires both access and refresh secrets")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, config.ErrSecretsNotDistinct
	}

	return &Service{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}, nil
}

// IssuePair mints an access/refresh token pair for one user. The two
// tokens share subject and email; they differ in type, expiry and
// signing secret. Refresh tokens are not stored server-side, so a
// leaked one stays valid until its own expiry (stateless rotation,
// no revocation).
func (s *Service) IssuePair(userID, email string) (*outbound.TokenPair, error) {
	accessToken, err := s.sign(userID, email, outbound.TokenTypeAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.sign(userID, email, outbound.TokenTypeRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &outbound.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify parses a token under the secret for the expected type and
// returns the decoded claims. The caller still compares the claim type
// against its expectation; a token of the wrong kind signed with the
// matching secret does not pass by construction, but the check is the
// guard's, not the codec's.
func (s *Service) Verify(token string, expected outbound.TokenType) (*outbound.TokenClaims, error) {
	secret := s.accessSecret
	if expected == outbound.TokenTypeRefresh {
		secret = s.refreshSecret
	}

	claims, err := verify(token, secret)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &outbound.TokenClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Type:   claims.Type,
	}, nil
}

func (s *Service) sign(userID, email string, typ outbound.TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// The token ID makes every issuance unique even within one
			// clock second, so rotation always yields a fresh pair.
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, translateValidationError(err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

func translateValidationError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	default:
		return ErrInvalidToken
	}
}
