package handler

import (
	"encoding/json"
	"net/http"

	"github.com/altari/auth-service/application/port/inbound"
	"github.com/altari/auth-service/infrastructure/http/middleware"
	"github.com/altari/auth-service/infrastructure/http/response"
	"github.com/altari/auth-service/infrastructure/http/validator"
)

// RefreshCookiePath scopes the refresh cookie to the one endpoint that
// consumes it, so the long-lived token never rides along on other
// requests.
const RefreshCookiePath = "/auth/refresh"

type AuthHandler struct {
	authUseCase   inbound.AuthUseCase
	secureCookies bool
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authUseCase:   authUseCase,
		secureCookies: secureCookies,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "Invalid email format")
		return
	}
	if !validator.ValidatePassword(req.Password) {
		response.BadRequest(w, "Password must be at least 8 characters")
		return
	}

	result, err := h.authUseCase.Register(r.Context(), inbound.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresIn)
	response.Success(w, http.StatusCreated, "Registered successfully", tokenResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "Invalid email format")
		return
	}
	if !validator.ValidateRequired(req.Password) {
		response.BadRequest(w, "Password is required")
		return
	}

	result, err := h.authUseCase.Login(r.Context(), inbound.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresIn)
	response.Success(w, http.StatusOK, "Login successful", tokenResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

// Refresh rotates the token pair. The guard has already verified the
// refresh cookie and attached its claims; an unconditionally fresh
// pair goes out on every call.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Invalid or expired token")
		return
	}

	result, err := h.authUseCase.Refresh(r.Context(), claims)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiresIn)
	response.Success(w, http.StatusOK, "Token renewed successfully", tokenResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Invalid or expired token")
		return
	}

	me, err := h.authUseCase.Me(r.Context(), claims.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", me)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}
