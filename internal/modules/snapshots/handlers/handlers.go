// Package handlers provides HTTP handlers for holdings snapshot operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// UserIDHeader carries the authenticated caller, set by the upstream gateway.
const UserIDHeader = "X-User-ID"

// SnapshotService is the snapshot cache used by the handlers.
type SnapshotService interface {
	GetHoldingsAnalysis(ctx context.Context, userID, portfolioID, benchmark string, forceRefresh bool) (*domain.HoldingsSnapshot, error)
	RefreshHoldings(ctx context.Context, userID, portfolioID, benchmark string) (*domain.HoldingsSnapshot, error)
}

// Handler handles holdings snapshot HTTP requests
type Handler struct {
	service SnapshotService
	log     zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(service SnapshotService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleGetHoldings handles GET /api/portfolios/{id}/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "refresh must be a boolean")
			return
		}
		refresh = parsed
	}

	snapshot, err := h.service.GetHoldingsAnalysis(r.Context(),
		callerID(r), chi.URLParam(r, "id"), r.URL.Query().Get("benchmark"), refresh)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeSnapshot(w, snapshot)
}

// HandleRefreshHoldings handles POST /api/portfolios/{id}/holdings/refresh
func (h *Handler) HandleRefreshHoldings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.RefreshHoldings(r.Context(),
		callerID(r), chi.URLParam(r, "id"), r.URL.Query().Get("benchmark"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeSnapshot(w, snapshot)
}

func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "missing caller identity")
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "portfolio not found")
	default:
		h.log.Error().Err(err).Msg("Snapshot request failed")
		h.writeError(w, http.StatusInternalServerError, "failed to compute holdings snapshot")
	}
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snapshot *domain.HoldingsSnapshot) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snapshot,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
