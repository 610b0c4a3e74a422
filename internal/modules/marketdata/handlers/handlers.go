// Package handlers provides HTTP handlers for market data provider diagnostics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/holdings-risk/internal/modules/marketdata"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StatsSource exposes per-provider call statistics.
type StatsSource interface {
	Snapshot() []marketdata.CallStats
}

// Handler handles provider diagnostics requests
type Handler struct {
	stats StatsSource
	log   zerolog.Logger
}

// NewHandler creates a new provider stats handler
func NewHandler(stats StatsSource, log zerolog.Logger) *Handler {
	return &Handler{
		stats: stats,
		log:   log.With().Str("handler", "providers").Logger(),
	}
}

// RegisterRoutes registers provider routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/providers/stats", h.HandleGetStats)
}

// HandleGetStats handles GET /api/providers/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Snapshot()
	if stats == nil {
		stats = []marketdata.CallStats{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
