package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/altari/auth-service/application/port/inbound"
	"github.com/altari/auth-service/domain/apperror"
	"github.com/altari/auth-service/infrastructure/http/response"
	"github.com/altari/auth-service/infrastructure/service/logger"
)

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	logger           logger.Logger
	attempts         int
	window           time.Duration
	blockDuration    time.Duration
}

func NewRateLimitMiddleware(
	rateLimitService inbound.RateLimitService,
	logger logger.Logger,
	attempts int,
	window time.Duration,
	blockDuration time.Duration,
) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           logger,
		attempts:         attempts,
		window:           window,
		blockDuration:    blockDuration,
	}
}

// RateLimit applies a fixed-window per-IP limit to the wrapped
// endpoint. Limiter errors fail open: an unreachable Redis must not
// take authentication down with it.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientIP(r)

		if m.rateLimitService == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("auth:%s:ip:%s", endpointLabel(r.URL.Path), ip)

		blocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{
				"ip":  ip,
				"key": key,
			})
		}
		if blocked {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", map[string]interface{}{
				"ip":   ip,
				"path": r.URL.Path,
				"key":  key,
			})
			m.reject(w)
			return
		}

		allowed, err := m.rateLimitService.CheckLimit(ctx, key, m.attempts, m.window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip":  ip,
				"key": key,
			})
			allowed = true
		}
		if !allowed {
			if err := m.rateLimitService.Block(ctx, key, m.blockDuration, "Rate limit exceeded"); err != nil {
				m.logger.Error(ctx, "Failed to block key", err, map[string]interface{}{
					"key": key,
				})
			}
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":   ip,
				"path": r.URL.Path,
				"key":  key,
			})
			m.reject(w)
			return
		}

		if err := m.rateLimitService.Increment(ctx, key, m.window); err != nil {
			m.logger.Error(ctx, "Failed to increment rate limit", err, map[string]interface{}{
				"key": key,
			})
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.blockDuration.Seconds())))
	response.Error(w, http.StatusTooManyRequests, apperror.ErrRateLimited.Message)
}

func endpointLabel(path string) string {
	switch {
	case strings.HasSuffix(path, "/register"):
		return "register"
	case strings.HasSuffix(path, "/login"):
		return "login"
	case strings.HasSuffix(path, "/refresh"):
		return "refresh"
	default:
		return "general"
	}
}

// clientIP extracts the caller's IP, preferring proxy headers.
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
