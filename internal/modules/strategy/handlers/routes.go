package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers strategy pipeline routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/strategy", func(r chi.Router) {
		r.Use(middleware.Timeout(300 * time.Second))
		r.Post("/run", h.HandleRun)
		r.Post("/analyze", h.HandleAnalyze)
		r.Get("/presets", h.HandleListStrategies)
	})
}
