package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers simulation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/simulate", func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))
		r.Post("/", h.HandleSimulate)
	})
}
