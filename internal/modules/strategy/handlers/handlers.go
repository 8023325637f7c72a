// Package handlers provides HTTP handlers for the strategy pipeline.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/strategy"
	"github.com/aristath/voltsurf/internal/modules/universe"
)

// Handler handles strategy pipeline HTTP requests.
type Handler struct {
	service *strategy.Service
	log     zerolog.Logger
}

// NewHandler creates a new strategy handler.
func NewHandler(service *strategy.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "strategy").Logger(),
	}
}

type runRequest struct {
	Strategy     string                `json:"strategy"`
	Data         []strategy.SymbolData `json:"data"`
	Returns      map[string][]float64  `json:"returns,omitempty"`
	LookbackDays int                   `json:"lookback_days"`
	InitialValue float64               `json:"initial_value"`
	HorizonDays  int                   `json:"horizon_days"`
	NumPaths     int                   `json:"num_paths"`
	Seed         uint64                `json:"seed"`
}

// HandleRun handles POST /api/v1/strategy/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cfg, ok := universe.Presets[req.Strategy]
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Unknown strategy: "+req.Strategy)
		return
	}
	if len(req.Data) == 0 {
		h.writeError(w, http.StatusBadRequest, "No symbol data provided")
		return
	}

	// Sensible defaults for optional simulation parameters.
	if req.LookbackDays <= 0 {
		req.LookbackDays = 180
	}
	if req.InitialValue <= 0 {
		req.InitialValue = 100000
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = 252
	}
	if req.NumPaths <= 0 {
		req.NumPaths = 1000
	}

	startTime := time.Now()
	report, err := h.service.Run(req.Data, cfg, req.Returns, req.LookbackDays, req.InitialValue, req.HorizonDays, req.NumPaths, req.Seed, time.Now())
	elapsed := time.Since(startTime)

	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "Pipeline failed: "+err.Error())
		return
	}

	h.log.Info().
		Str("strategy", req.Strategy).
		Int("symbols", len(req.Data)).
		Int("selected", len(report.Selection.Candidates)).
		Dur("elapsed", elapsed).
		Msg("Strategy pipeline completed")

	h.writeJSON(w, http.StatusOK, report)
}

// HandleAnalyze handles POST /api/v1/strategy/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data []strategy.SymbolData `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Data) == 0 {
		h.writeError(w, http.StatusBadRequest, "No symbol data provided")
		return
	}

	bundles := h.service.AnalyzeUniverse(req.Data, time.Now())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"bundles": bundles})
}

// HandleListStrategies handles GET /api/v1/strategy/presets
func (h *Handler) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, universe.Presets)
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
