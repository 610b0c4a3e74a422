package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all holdings snapshot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios/{id}/holdings", func(r chi.Router) {
		r.Get("/", h.HandleGetHoldings)
		r.Post("/refresh", h.HandleRefreshHoldings)
	})
}
