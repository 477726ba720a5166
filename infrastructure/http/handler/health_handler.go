package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/altari/auth-service/infrastructure/http/response"
)

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "healthy", nil)
}

func (h *HealthHandler) DatabaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Database is unhealthy")
		return
	}

	response.Success(w, http.StatusOK, "Database is healthy", nil)
}
