// Package handlers provides HTTP handlers for Monte Carlo simulation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/simulation"
)

// maxPaths bounds a single request to keep memory predictable.
const maxPaths = 10000

// Handler handles simulation HTTP requests.
type Handler struct {
	engine *simulation.Engine
	log    zerolog.Logger
}

// NewHandler creates a new simulation handler.
func NewHandler(engine *simulation.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleSimulate handles POST /api/v1/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var params simulation.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if params.NumPaths > maxPaths {
		h.writeError(w, http.StatusBadRequest, "Too many paths (max 10000)")
		return
	}

	startTime := time.Now()
	result, err := h.engine.Simulate(params)
	elapsed := time.Since(startTime)

	if err != nil {
		if errors.Is(err, simulation.ErrInvalidParams) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Simulation failed: "+err.Error())
		return
	}

	h.log.Info().
		Int("paths", params.NumPaths).
		Int("horizon_days", params.HorizonDays).
		Dur("elapsed", elapsed).
		Msg("Simulation completed")

	h.writeJSON(w, http.StatusOK, result)
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
