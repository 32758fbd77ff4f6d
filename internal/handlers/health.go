package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chimera-backend/internal/models"
	"chimera-backend/internal/services"
)

type HealthHandler struct {
	pool       *pgxpool.Pool
	storage    *services.StorageService
	limiter    *services.RateLimiter
	keyPresent bool
}

func NewHealthHandler(pool *pgxpool.Pool, storage *services.StorageService, limiter *services.RateLimiter, apiKey string) *HealthHandler {
	return &HealthHandler{
		pool:       pool,
		storage:    storage,
		limiter:    limiter,
		keyPresent: apiKey != "",
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:            "ok",
		GeminiAPIKey:      "not_configured",
		Database:          "connected",
		UploadsDir:        h.storage.Reachable(),
		RemainingRequests: h.limiter.Remaining(),
	}
	if h.keyPresent {
		resp.GeminiAPIKey = "configured"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}

	writeJSON(w, http.StatusOK, resp)
}
