// Package handlers provides HTTP handlers for currency operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/modules/currency"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RateResolver is the FX resolver used by the handlers.
type RateResolver interface {
	FetchFxRate(ctx context.Context, from, to string) float64
	ConvertPrice(ctx context.Context, amount float64, from, to string) float64
}

// Handler handles currency HTTP requests
type Handler struct {
	resolver RateResolver
	log      zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(resolver RateResolver, log zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		log:      log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertRequest represents a request to convert an amount
type ConvertRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
}

// HandleGetRate handles GET /api/currency/rate/{from}/{to}.
// Minor units such as GBp are accepted on either side.
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(chi.URLParam(r, "from"))
	to := strings.TrimSpace(chi.URLParam(r, "to"))
	if from == "" || to == "" {
		h.writeError(w, http.StatusBadRequest, "from and to currencies are required")
		return
	}

	rate := h.resolver.FetchFxRate(r.Context(), from, to)
	h.writeData(w, map[string]interface{}{
		"from":   from,
		"to":     to,
		"rate":   rate,
		"symbol": currency.PairSymbol(from, to),
	})
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromCurrency == "" || req.ToCurrency == "" {
		h.writeError(w, http.StatusBadRequest, "from_currency and to_currency are required")
		return
	}

	converted := h.resolver.ConvertPrice(r.Context(), req.Amount, req.FromCurrency, req.ToCurrency)
	h.writeData(w, map[string]interface{}{
		"from_currency": req.FromCurrency,
		"to_currency":   req.ToCurrency,
		"amount":        req.Amount,
		"converted":     converted,
	})
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
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
