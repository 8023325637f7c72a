package strategy

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/voltsurf/internal/modules/calculations"
	"github.com/aristath/voltsurf/internal/modules/factors"
	"github.com/aristath/voltsurf/internal/modules/optimization"
	"github.com/aristath/voltsurf/internal/modules/simulation"
	"github.com/aristath/voltsurf/internal/modules/surface"
	"github.com/aristath/voltsurf/internal/modules/universe"
)

func testService(t *testing.T, cache *calculations.Cache) *Service {
	t.Helper()

	log := zerolog.Nop()
	return NewService(
		surface.NewBuilder(surface.DefaultBuilderConfig(0.05), 42, log),
		factors.NewEngine(factors.DefaultEngineConfig(0.05), log),
		universe.NewSelector(log),
		optimization.NewOptimizer(log),
		simulation.NewEngine(2, log),
		nil,
		cache,
		log,
	)
}

// quietCloses is a low-volatility price series; the synthetic surfaces it
// produces stay inside every preset's volatility cap.
func quietCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price *= 1.001
		} else {
			price *= 0.999
		}
		closes[i] = price
	}
	return closes
}

func dailyReturns(n int, drift, amplitude float64, phase int) []float64 {
	pattern := []float64{1, 1, -1, -1}
	out := make([]float64, n)
	for i := range out {
		out[i] = drift + amplitude*pattern[(i+phase)%4]
	}
	return out
}

func testUniverse(symbols ...string) ([]SymbolData, map[string][]float64) {
	data := make([]SymbolData, len(symbols))
	returns := make(map[string][]float64, len(symbols))
	for i, sym := range symbols {
		data[i] = SymbolData{Symbol: sym, Spot: 100, Closes: quietCloses(70)}
		returns[sym] = dailyReturns(60, 0.001, 0.008, i)
	}
	return data, returns
}

func TestAnalyzeUniverse_SkipsFailedSymbols(t *testing.T) {
	s := testService(t, nil)

	data, _ := testUniverse("AAPL", "MSFT")
	data = append(data, SymbolData{Symbol: "BAD", Spot: 0, Closes: quietCloses(70)})

	bundles := s.AnalyzeUniverse(data, time.Now())
	assert.Len(t, bundles, 2)
	assert.Contains(t, bundles, "AAPL")
	assert.NotContains(t, bundles, "BAD")
}

func TestAnalyzeUniverse_SyntheticFlagPropagates(t *testing.T) {
	s := testService(t, nil)

	data, _ := testUniverse("AAPL")
	bundles := s.AnalyzeUniverse(data, time.Now())

	require.Contains(t, bundles, "AAPL")
	// No chain was supplied, so the surface and its bundle are synthetic
	assert.True(t, bundles["AAPL"].Synthetic)
}

func TestOptimizePortfolio_EmptySelection(t *testing.T) {
	s := testService(t, nil)

	_, err := s.OptimizePortfolio(universe.Selection{}, universe.MarketNeutral, nil, 180)
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrInsufficientData)
}

func TestOptimizePortfolio_NoHistoryStore(t *testing.T) {
	s := testService(t, nil)

	sel := universe.Selection{Candidates: []universe.Candidate{{Symbol: "AAPL"}, {Symbol: "MSFT"}}}
	_, err := s.OptimizePortfolio(sel, universe.MarketNeutral, nil, 180)
	require.Error(t, err)
}

func TestOptimizePortfolio_RelaxesCapForSmallSelection(t *testing.T) {
	s := testService(t, nil)

	// market_neutral caps positions at 0.15, which five names cannot fill;
	// the cap relaxes to 1/N instead of failing the run.
	_, returns := testUniverse("AAPL", "MSFT", "GOOG", "AMZN", "META")
	sel := universe.Selection{Candidates: []universe.Candidate{
		{Symbol: "AAPL"}, {Symbol: "MSFT"}, {Symbol: "GOOG"}, {Symbol: "AMZN"}, {Symbol: "META"},
	}}

	result, err := s.OptimizePortfolio(sel, universe.MarketNeutral, returns, 180)
	require.NoError(t, err)
	require.Len(t, result.Weights, 5)
	for _, w := range result.Weights {
		assert.InDelta(t, 0.2, w, 1e-12)
	}
}

func TestRun_EqualWeightEndToEnd(t *testing.T) {
	s := testService(t, nil)

	data, returns := testUniverse("AAPL", "MSFT", "GOOG", "AMZN", "META")

	report, err := s.Run(data, universe.MarketNeutral, returns, 180, 100000, 126, 500, 7, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "market_neutral", report.Strategy)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Bundles, 5)
	require.Len(t, report.Selection.Candidates, 5)
	require.NotNil(t, report.Portfolio)
	require.NotNil(t, report.Simulation)

	for _, w := range report.Portfolio.Weights {
		assert.InDelta(t, 0.2, w, 1e-12)
	}

	assert.Equal(t, 500, report.Simulation.NumPaths)
	assert.Equal(t, 126, report.Simulation.HorizonDays)
	assert.Positive(t, report.Simulation.MeanTerminal)
}

func TestRun_EmptySelectionShortCircuits(t *testing.T) {
	s := testService(t, nil)

	data, returns := testUniverse("AAPL", "MSFT")

	// An impossible volatility cap filters everything out
	cfg := universe.MarketNeutral
	cfg.MaxVolatility = 0.0001

	report, err := s.Run(data, cfg, returns, 180, 100000, 126, 500, 7, time.Now())
	require.NoError(t, err)
	assert.Empty(t, report.Selection.Candidates)
	assert.Nil(t, report.Portfolio)
	assert.Nil(t, report.Simulation)
}

func TestRun_Deterministic(t *testing.T) {
	s := testService(t, nil)

	data, returns := testUniverse("AAPL", "MSFT", "GOOG")

	a, err := s.Run(data, universe.MarketNeutral, returns, 180, 100000, 126, 500, 7, time.Now())
	require.NoError(t, err)
	b, err := s.Run(data, universe.MarketNeutral, returns, 180, 100000, 126, 500, 7, time.Now())
	require.NoError(t, err)

	assert.Equal(t, a.Portfolio.Weights, b.Portfolio.Weights)
	assert.Equal(t, a.Simulation, b.Simulation)
}

func TestSimulatePortfolio_CachesReturnsModel(t *testing.T) {
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	cache, err := calculations.NewCache(conn)
	require.NoError(t, err)

	s := testService(t, cache)

	data, returns := testUniverse("AAPL", "MSFT", "GOOG")
	report, err := s.Run(data, universe.MarketNeutral, returns, 180, 100000, 126, 500, 7, time.Now())
	require.NoError(t, err)
	require.NotNil(t, report.Simulation)

	key := calculations.ReturnsModelKey(report.Portfolio.Symbols, 180)
	var cached optimization.ReturnsModel
	hit, err := cache.Get(key, &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, cached.MeanReturns, 3)
}
