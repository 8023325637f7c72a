package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers surface routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/surface", func(r chi.Router) {
		r.Post("/build", h.HandleBuild)
		r.Post("/factors", h.HandleFactors)
	})
}
