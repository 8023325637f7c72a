// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/optimization"
)

// Handler handles optimization HTTP requests.
type Handler struct {
	optimizer *optimization.Optimizer
	log       zerolog.Logger
}

// NewHandler creates a new optimization handler.
func NewHandler(optimizer *optimization.Optimizer, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: optimizer,
		log:       log.With().Str("handler", "optimization").Logger(),
	}
}

type optimizeRequest struct {
	Symbols     []string                 `json:"symbols"`
	Returns     map[string][]float64     `json:"returns"`
	Objective   string                   `json:"objective"`
	Constraints optimization.Constraints `json:"constraints"`
}

// HandleOptimize handles POST /api/v1/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Symbols) < 2 {
		h.writeError(w, http.StatusBadRequest, "At least 2 symbols required")
		return
	}

	objective, err := optimization.ParseObjective(req.Objective)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	startTime := time.Now()
	result, err := h.optimizer.Optimize(req.Symbols, req.Returns, objective, req.Constraints)
	elapsed := time.Since(startTime)

	if err != nil {
		switch {
		case errors.Is(err, optimization.ErrInsufficientData):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, optimization.ErrInfeasibleConstraints):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, optimization.ErrOptimizationFailed):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Optimization failed: "+err.Error())
		}
		return
	}

	h.log.Info().
		Str("objective", objective.String()).
		Int("symbols", len(req.Symbols)).
		Dur("elapsed", elapsed).
		Float64("sharpe", result.SharpeRatio).
		Msg("Optimization completed")

	h.writeJSON(w, http.StatusOK, result)
}

// HandleObjectives handles GET /api/v1/optimize/objectives
func (h *Handler) HandleObjectives(w http.ResponseWriter, r *http.Request) {
	objectives := []string{
		optimization.ObjectiveSharpe.String(),
		optimization.ObjectiveLowRisk.String(),
		optimization.ObjectiveGrowth.String(),
		optimization.ObjectiveRiskParity.String(),
		optimization.ObjectiveEqualWeight.String(),
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"objectives": objectives})
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
