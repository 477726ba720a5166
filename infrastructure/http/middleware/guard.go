package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/altari/auth-service/application/port/outbound"
	"github.com/altari/auth-service/infrastructure/http/response"
	"github.com/altari/auth-service/infrastructure/service/logger"
)

// RefreshCookieName is the cookie the refresh token travels in. Access
// tokens never use cookies and refresh tokens never use headers.
const RefreshCookieName = "refresh_token"

// unauthorizedMessage is the single message every guard rejection
// returns. Expired, forged, malformed, missing and mismatched tokens
// are indistinguishable to the caller; the distinction is logged.
const unauthorizedMessage = "Invalid or expired token"

// RouteMeta annotates one endpoint for the guard. The zero value is
// the default: a protected route expecting an access token.
type RouteMeta struct {
	Public    bool
	TokenType outbound.TokenType
}

type claimsKey struct{}

// Guard decides per request whether the caller is authenticated. Route
// metadata is registered by name at startup and immutable afterwards;
// every request runs exactly one evaluation, with no caching of
// verification results.
type Guard struct {
	tokens outbound.TokenService
	logger logger.Logger
	meta   map[string]RouteMeta
}

func NewGuard(tokens outbound.TokenService, logger logger.Logger) *Guard {
	return &Guard{
		tokens: tokens,
		logger: logger,
		meta:   make(map[string]RouteMeta),
	}
}

// Annotate registers metadata for a named route. Call before the
// server starts serving; the table is not safe for concurrent writes.
func (g *Guard) Annotate(routeName string, meta RouteMeta) {
	g.meta[routeName] = meta
}

// Middleware runs the guard state machine for every matched route.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := g.lookup(r)

		if meta.Public {
			// Public bypass: no token inspection at all.
			next.ServeHTTP(w, r)
			return
		}

		tokenType := meta.TokenType
		if tokenType == "" {
			tokenType = outbound.TokenTypeAccess
		}

		token, ok := extractToken(r, tokenType)
		if !ok {
			logger.LogSecurityEvent(r.Context(), g.logger, "missing_token", "LOW", map[string]interface{}{
				"path":       r.URL.Path,
				"token_type": string(tokenType),
			})
			response.Unauthorized(w, unauthorizedMessage)
			return
		}

		claims, err := g.tokens.Verify(token, tokenType)
		if err != nil {
			logger.LogSecurityEvent(r.Context(), g.logger, "token_verification_failed", "MEDIUM", map[string]interface{}{
				"path":       r.URL.Path,
				"token_type": string(tokenType),
				"reason":     err.Error(),
			})
			response.Unauthorized(w, unauthorizedMessage)
			return
		}

		// A refresh token replayed on an access route (or vice versa)
		// verifies only if the secrets were ever shared; the type claim
		// is the second line of defense.
		if claims.Type != tokenType {
			logger.LogSecurityEvent(r.Context(), g.logger, "token_type_mismatch", "HIGH", map[string]interface{}{
				"path":     r.URL.Path,
				"expected": string(tokenType),
				"got":      string(claims.Type),
				"user_id":  claims.UserID,
			})
			response.Unauthorized(w, unauthorizedMessage)
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookup resolves the metadata for the matched route. Unannotated and
// unnamed routes fail closed: protected, access token expected.
func (g *Guard) lookup(r *http.Request) RouteMeta {
	route := mux.CurrentRoute(r)
	if route == nil {
		return RouteMeta{}
	}

	name := route.GetName()
	if name == "" {
		return RouteMeta{}
	}

	return g.meta[name]
}

func extractToken(r *http.Request, tokenType outbound.TokenType) (string, bool) {
	if tokenType == outbound.TokenTypeRefresh {
		cookie, err := r.Cookie(RefreshCookieName)
		if err != nil || cookie.Value == "" {
			return "", false
		}
		return cookie.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// ContextWithClaims attaches verified claims to a request context.
func ContextWithClaims(ctx context.Context, claims *outbound.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims retrieves the verified claims, or nil when the guard never
// ran (public routes).
func GetClaims(ctx context.Context) *outbound.TokenClaims {
	if claims, ok := ctx.Value(claimsKey{}).(*outbound.TokenClaims); ok {
		return claims
	}
	return nil
}
