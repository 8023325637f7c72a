package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers optimization routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/optimize", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/", h.HandleOptimize)
		r.Get("/objectives", h.HandleObjectives)
	})
}
