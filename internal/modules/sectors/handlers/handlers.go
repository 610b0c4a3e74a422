// Package handlers provides HTTP handlers for sector lookups.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/modules/sectors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Lookuper returns the current classification of a ticker without blocking.
type Lookuper interface {
	Lookup(ticker string) sectors.Lookup
}

// Handler handles sector requests
type Handler struct {
	classifier Lookuper
	log        zerolog.Logger
}

// NewHandler creates a new sector handler
func NewHandler(classifier Lookuper, log zerolog.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		log:        log.With().Str("handler", "sectors").Logger(),
	}
}

// RegisterRoutes registers sector routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sectors/{ticker}", h.HandleGetSector)
}

// HandleGetSector handles GET /api/sectors/{ticker}.
// A ticker with no cached entry answers "Other" with source "pending" and
// schedules a background resolution.
func (h *Handler) HandleGetSector(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	if ticker == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ticker is required"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.classifier.Lookup(ticker),
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
