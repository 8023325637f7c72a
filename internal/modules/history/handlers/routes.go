package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers price history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/history", func(r chi.Router) {
		r.Post("/{symbol}/prices", h.HandleSavePrices)
		r.Get("/{symbol}/prices", h.HandleGetPrices)
	})
}
