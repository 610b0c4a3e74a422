// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/domain"
	"github.com/aristath/holdings-risk/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// UserIDHeader carries the authenticated caller, set by the upstream gateway.
const UserIDHeader = "X-User-ID"

// Store is the subset of the portfolio repository used over HTTP.
type Store interface {
	CreatePortfolio(ctx context.Context, userID, name, baseCurrency string) (*domain.Portfolio, error)
	AddHoldings(ctx context.Context, portfolioID string, holdings []domain.Holding) ([]domain.Holding, error)
	LoadPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error)
}

// CreatePortfolioRequest is the body of POST /api/portfolios.
type CreatePortfolioRequest struct {
	Name         string           `json:"name"`
	BaseCurrency string           `json:"base_currency"`
	Holdings     []domain.Holding `json:"holdings"`
}

// Handler handles portfolio HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios", h.HandleCreatePortfolio)
	r.Get("/portfolios/{id}", h.HandleGetPortfolio)
}

// HandleCreatePortfolio handles POST /api/portfolios
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := portfolio.ValidateHoldings(req.Holdings); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.store.CreatePortfolio(r.Context(), userID, req.Name, req.BaseCurrency)
	if err != nil {
		h.handleStoreError(w, err)
		return
	}

	if len(req.Holdings) > 0 {
		saved, err := h.store.AddHoldings(r.Context(), p.ID, req.Holdings)
		if err != nil {
			h.handleStoreError(w, err)
			return
		}
		p.Holdings = saved
	}

	h.log.Info().
		Str("portfolio_id", p.ID).
		Int("holdings", len(p.Holdings)).
		Msg("Portfolio created")

	h.writeData(w, http.StatusCreated, p)
}

// HandleGetPortfolio handles GET /api/portfolios/{id}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	p, err := h.store.LoadPortfolio(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.handleStoreError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, p)
}

func (h *Handler) handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "missing caller identity")
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "portfolio not found")
	case errors.Is(err, domain.ErrInvalidHolding):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio request failed")
		h.writeError(w, http.StatusInternalServerError, "portfolio request failed")
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
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

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
