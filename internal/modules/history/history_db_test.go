package history

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h, err := New(conn, zerolog.Nop())
	require.NoError(t, err)
	return h
}

func TestSaveAndGetDailyPrices(t *testing.T) {
	h := testDB(t)

	prices := []DailyPrice{
		{Date: "2026-01-02", Close: 100.0},
		{Date: "2026-01-05", Close: 101.5},
		{Date: "2026-01-06", Close: 99.8},
	}
	require.NoError(t, h.SaveDailyPrices("AAPL", prices))

	got, err := h.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Chronological order, oldest first
	assert.Equal(t, "2026-01-02", got[0].Date)
	assert.Equal(t, "2026-01-06", got[2].Date)
	assert.InDelta(t, 99.8, got[2].Close, 1e-12)
}

func TestSaveDailyPrices_UpsertReplaces(t *testing.T) {
	h := testDB(t)

	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{{Date: "2026-01-02", Close: 100.0}}))
	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{{Date: "2026-01-02", Close: 105.0}}))

	got, err := h.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 105.0, got[0].Close, 1e-12)
}

func TestSaveDailyPrices_BadDate(t *testing.T) {
	h := testDB(t)

	err := h.SaveDailyPrices("AAPL", []DailyPrice{{Date: "not-a-date", Close: 100.0}})
	require.Error(t, err)
}

func TestGetDailyPrices_LimitKeepsMostRecent(t *testing.T) {
	h := testDB(t)

	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{
		{Date: "2026-01-02", Close: 100},
		{Date: "2026-01-05", Close: 101},
		{Date: "2026-01-06", Close: 102},
		{Date: "2026-01-07", Close: 103},
	}))

	got, err := h.GetDailyPrices("AAPL", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-01-06", got[0].Date)
	assert.Equal(t, "2026-01-07", got[1].Date)
}

func TestGetCloses(t *testing.T) {
	h := testDB(t)

	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{
		{Date: "2026-01-02", Close: 100},
		{Date: "2026-01-05", Close: 110},
	}))

	closes, err := h.GetCloses("AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 110}, closes)
}

func TestGetReturns(t *testing.T) {
	h := testDB(t)

	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{
		{Date: "2026-01-02", Close: 100},
		{Date: "2026-01-05", Close: 110},
		{Date: "2026-01-06", Close: 99},
	}))

	returns, err := h.GetReturns([]string{"AAPL", "UNKNOWN"}, 10)
	require.NoError(t, err)

	require.Len(t, returns["AAPL"], 2)
	assert.InDelta(t, 0.10, returns["AAPL"][0], 1e-12)
	assert.InDelta(t, -0.10, returns["AAPL"][1], 1e-12)

	// Symbols without history come back as empty series, not errors
	assert.Empty(t, returns["UNKNOWN"])
}

func TestSymbolsAreIsolated(t *testing.T) {
	h := testDB(t)

	require.NoError(t, h.SaveDailyPrices("AAPL", []DailyPrice{{Date: "2026-01-02", Close: 100}}))
	require.NoError(t, h.SaveDailyPrices("MSFT", []DailyPrice{{Date: "2026-01-02", Close: 400}}))

	got, err := h.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 100.0, got[0].Close, 1e-12)
}
