// Package history stores daily price series in sqlite for the server
// shell. The analytics core never requires it; callers may always pass
// price history directly.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/pkg/formulas"
)

// DailyPrice is one close observation for a symbol.
type DailyPrice struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// DB provides access to the daily price store.
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a history accessor and ensures the schema exists.
func New(db *sql.DB, log zerolog.Logger) (*DB, error) {
	h := &DB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
	if err := h.ensureSchema(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *DB) ensureSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date INTEGER NOT NULL,
			close REAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create daily_prices table: %w", err)
	}
	return nil
}

// SaveDailyPrices inserts or replaces daily closes for a symbol in a
// single transaction.
func (h *DB) SaveDailyPrices(symbol string, prices []DailyPrice) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		t, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return fmt.Errorf("failed to parse date %s: %w", p.Date, err)
		}
		if _, err := stmt.Exec(symbol, t.Unix(), p.Close); err != nil {
			return fmt.Errorf("failed to insert price for %s: %w", p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.log.Debug().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Saved daily prices")

	return nil
}

// GetDailyPrices fetches the most recent daily prices for a symbol,
// returned oldest first.
func (h *DB) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	query := `
		SELECT date, close
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := h.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var dateUnix int64
		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = time.Unix(dateUnix, 0).UTC().Format("2006-01-02")
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}

	return prices, nil
}

// GetCloses returns the trailing close series for a symbol, oldest first.
func (h *DB) GetCloses(symbol string, lookback int) ([]float64, error) {
	prices, err := h.GetDailyPrices(symbol, lookback)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	return closes, nil
}

// GetReturns computes simple daily returns per symbol from stored closes.
func (h *DB) GetReturns(symbols []string, lookback int) (map[string][]float64, error) {
	out := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		closes, err := h.GetCloses(sym, lookback)
		if err != nil {
			return nil, err
		}
		out[sym] = formulas.SimpleReturns(closes)
	}
	return out, nil
}
