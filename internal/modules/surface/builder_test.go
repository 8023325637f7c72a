package surface

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/voltsurf/pkg/options"
)

func testBuilder() *Builder {
	return NewBuilder(DefaultBuilderConfig(0.05), 42, zerolog.Nop())
}

// trendingCloses produces a gently oscillating price series long enough for
// the realized volatility window.
func trendingCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		closes[i] = price
	}
	return closes
}

func atmQuote(typ options.Type, strike float64, dte int, iv float64, now time.Time) OptionQuote {
	return OptionQuote{
		Strike:       strike,
		Expiry:       now.AddDate(0, 0, dte),
		Type:         typ,
		Price:        5.0,
		OpenInterest: 100,
		Volume:       50,
		ImpliedVol:   iv,
	}
}

func TestBuild_InvalidSpot(t *testing.T) {
	b := testBuilder()
	_, err := b.Build("AAPL", nil, 0, trendingCloses(70), time.Now())
	require.Error(t, err)
}

func TestBuild_InsufficientHistory(t *testing.T) {
	b := testBuilder()
	_, err := b.Build("AAPL", nil, 100, []float64{100}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestBuild_EmptyChainFallsBackToSynthetic(t *testing.T) {
	b := testBuilder()
	s, err := b.Build("AAPL", nil, 100, trendingCloses(70), time.Now())
	require.NoError(t, err)
	assert.True(t, s.Synthetic)
	assert.Positive(t, s.IV3M)
}

func TestBuild_ExpiredQuotesIgnored(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	chain := []OptionQuote{
		atmQuote(options.Call, 100, -5, 0.25, now),
		{Strike: 100, Expiry: now.AddDate(0, 0, 30), Type: options.Call, Price: 0, ImpliedVol: 0.25},
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	// Only invalid quotes: surface must be synthetic
	assert.True(t, s.Synthetic)
}

func TestBuild_TermStructure(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.20, now),
		atmQuote(options.Call, 101, 30, 0.22, now),
		atmQuote(options.Call, 100, 90, 0.25, now),
		atmQuote(options.Call, 100, 180, 0.27, now),
		atmQuote(options.Call, 100, 365, 0.31, now),
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.False(t, s.Synthetic)

	// Empirical median of {0.20, 0.22} takes the lower observation
	assert.InDelta(t, 0.20, s.IV1M, 1e-9)
	assert.InDelta(t, 0.25, s.IV3M, 1e-9)
	assert.InDelta(t, 0.27, s.IV6M, 1e-9)
	assert.InDelta(t, 0.31, s.IV1Y, 1e-9)
	assert.InDelta(t, (0.31-0.20)/11.0, s.TermSlope, 1e-9)
}

func TestBuild_EmptyTenorBucketUsesFallbackAndDegrades(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	// Only the 1M bucket is populated
	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.20, now),
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.False(t, s.Synthetic)
	assert.True(t, s.Degraded)

	cfg := DefaultBuilderConfig(0.05)
	assert.InDelta(t, cfg.FallbackIVs[1], s.IV3M, 1e-9)
	assert.InDelta(t, cfg.FallbackIVs[3], s.IV1Y, 1e-9)
}

func TestBuild_SkewSignConvention(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	// OTM puts trade 8 vol points over near-ATM calls: downside fear
	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.20, now),
		{Strike: 90, Expiry: now.AddDate(0, 0, 30), Type: options.Put, Price: 1.5, Delta: -0.25, ImpliedVol: 0.28, OpenInterest: 100},
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.InDelta(t, -0.08, s.Skew, 1e-9)
}

func TestBuild_MissingSkewLegDegrades(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	// ATM calls only: no put leg for the skew
	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.20, now),
		atmQuote(options.Call, 101, 30, 0.21, now),
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Skew)
	assert.True(t, s.Degraded)
}

func TestBuild_CallPutRatioDefaultsNeutral(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.20, now),
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.CallPutRatio)
}

func TestBuild_VendorIVPreferredOverInversion(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	// The quoted price of 5.0 would invert to some other volatility, but the
	// vendor IV must win when present.
	chain := []OptionQuote{
		atmQuote(options.Call, 100, 30, 0.33, now),
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.InDelta(t, 0.33, s.IV1M, 1e-9)
}

func TestBuild_MissingVendorIVInverted(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	sigma := 0.30
	years := 30.0 / 365.0
	price := options.Price(options.Call, 100, 100, years, 0.05, sigma)

	chain := []OptionQuote{
		{Strike: 100, Expiry: now.AddDate(0, 0, 30), Type: options.Call, Price: price, OpenInterest: 100},
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.False(t, s.Synthetic)
	assert.InDelta(t, sigma, s.IV1M, 1e-2)
}

func TestBuild_AggregateGreeksWeightedByOpenInterest(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	chain := []OptionQuote{
		{Strike: 100, Expiry: now.AddDate(0, 0, 30), Type: options.Call, Price: 5, Delta: 0.5, Gamma: 0.02, Vega: 0.1, OpenInterest: 100, ImpliedVol: 0.2},
		{Strike: 100, Expiry: now.AddDate(0, 0, 30), Type: options.Call, Price: 5, Delta: 0.4, Gamma: 0.01, Vega: 0.2, OpenInterest: 50, ImpliedVol: 0.2},
	}

	s, err := b.Build("AAPL", chain, 100, trendingCloses(70), now)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*100+0.4*50, s.TotalDelta, 1e-9)
	assert.InDelta(t, 0.02*100+0.01*50, s.TotalGamma, 1e-9)
	assert.InDelta(t, 0.1*100+0.2*50, s.TotalVega, 1e-9)
}

func TestBuildSynthetic_Deterministic(t *testing.T) {
	b := testBuilder()

	a := b.BuildSynthetic("AAPL", 100, 0.25)
	b2 := b.BuildSynthetic("AAPL", 100, 0.25)
	assert.Equal(t, a, b2)

	// Distinct symbols draw from distinct streams
	c := b.BuildSynthetic("MSFT", 100, 0.25)
	assert.NotEqual(t, a.Skew, c.Skew)
}

func TestBuildSynthetic_TermStructure(t *testing.T) {
	b := testBuilder()
	s := b.BuildSynthetic("AAPL", 100, 0.25)

	base := 0.25 * 1.25
	assert.True(t, s.Synthetic)
	assert.InDelta(t, base*0.9, s.IV1M, 1e-9)
	assert.InDelta(t, base*1.0, s.IV3M, 1e-9)
	assert.InDelta(t, base*1.1, s.IV6M, 1e-9)
	assert.InDelta(t, base*1.15, s.IV1Y, 1e-9)
	assert.InDelta(t, base*1.2, s.IVLeaps, 1e-9)
}

func TestBuildSynthetic_VolFloor(t *testing.T) {
	b := testBuilder()
	s := b.BuildSynthetic("AAPL", 100, 0.0)

	// Flat history still produces a usable term structure
	assert.InDelta(t, 0.10*0.9, s.IV1M, 1e-9)
	assert.False(t, math.IsNaN(s.Skew))
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	q := OptionQuote{Expiry: now.AddDate(0, 0, 30)}
	assert.Equal(t, 30, q.DaysToExpiry(now))
}
