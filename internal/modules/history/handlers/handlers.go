// Package handlers provides HTTP handlers for the price history store.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/history"
)

// Handler handles price history HTTP requests.
type Handler struct {
	db  *history.DB
	log zerolog.Logger
}

// NewHandler creates a new history handler.
func NewHandler(db *history.DB, log zerolog.Logger) *Handler {
	return &Handler{
		db:  db,
		log: log.With().Str("handler", "history").Logger(),
	}
}

// HandleSavePrices handles POST /api/v1/history/{symbol}/prices
func (h *Handler) HandleSavePrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	var prices []history.DailyPrice
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(prices) == 0 {
		h.writeError(w, http.StatusBadRequest, "No prices provided")
		return
	}

	if err := h.db.SaveDailyPrices(symbol, prices); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save prices: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"saved":  len(prices),
	})
}

// HandleGetPrices handles GET /api/v1/history/{symbol}/prices?limit=N
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	limit := 252
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	prices, err := h.db.GetDailyPrices(symbol, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load prices: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"prices": prices,
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
