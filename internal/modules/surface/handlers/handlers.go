// Package handlers provides HTTP handlers for surface construction.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/factors"
	"github.com/aristath/voltsurf/internal/modules/surface"
)

// Handler handles surface HTTP requests.
type Handler struct {
	builder *surface.Builder
	engine  *factors.Engine
	log     zerolog.Logger
}

// NewHandler creates a new surface handler.
func NewHandler(builder *surface.Builder, engine *factors.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		builder: builder,
		engine:  engine,
		log:     log.With().Str("handler", "surface").Logger(),
	}
}

type buildRequest struct {
	Symbol string                `json:"symbol"`
	Spot   float64               `json:"spot"`
	Chain  []surface.OptionQuote `json:"chain"`
	Closes []float64             `json:"closes"`
}

// HandleBuild handles POST /api/v1/surface/build
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}
	if req.Spot <= 0 {
		h.writeError(w, http.StatusBadRequest, "Spot price must be positive")
		return
	}

	surf, err := h.builder.Build(req.Symbol, req.Chain, req.Spot, req.Closes, time.Now())
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "Surface build failed: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, surf)
}

// HandleFactors handles POST /api/v1/surface/factors
func (h *Handler) HandleFactors(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}
	if req.Spot <= 0 {
		h.writeError(w, http.StatusBadRequest, "Spot price must be positive")
		return
	}

	surf, err := h.builder.Build(req.Symbol, req.Chain, req.Spot, req.Closes, time.Now())
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "Surface build failed: "+err.Error())
		return
	}

	bundle := h.engine.Compute(surf)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"surface": surf,
		"factors": bundle,
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
