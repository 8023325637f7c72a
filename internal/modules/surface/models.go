// Package surface builds per-instrument volatility surfaces from raw option
// chains, with a synthetic fallback when chain data is missing or degenerate.
package surface

import (
	"errors"
	"time"

	"github.com/aristath/voltsurf/pkg/options"
)

// ErrInsufficientHistory is returned when the trailing price series is too
// short to estimate realized volatility.
var ErrInsufficientHistory = errors.New("insufficient price history")

// OptionQuote is one market quote from the options chain. Immutable once
// fetched; owned by the Build call that consumes it.
type OptionQuote struct {
	Strike       float64      `json:"strike"`
	Expiry       time.Time    `json:"expiry"`
	Type         options.Type `json:"type"`
	Price        float64      `json:"price"`
	OpenInterest float64      `json:"open_interest"`
	Volume       float64      `json:"volume"`
	Delta        float64      `json:"delta"`
	Gamma        float64      `json:"gamma"`
	Vega         float64      `json:"vega"`
	// ImpliedVol is the vendor-supplied IV, 0 when absent. Quotes without it
	// are inverted numerically during surface construction.
	ImpliedVol float64 `json:"implied_vol"`
}

// DaysToExpiry derives the quote's days to expiry relative to now.
func (q OptionQuote) DaysToExpiry(now time.Time) int {
	return int(q.Expiry.Sub(now).Hours() / 24)
}

// Surface is the per-instrument volatility surface.
//
// All IV fields are fractions in (0, 3.0]. Skew is negative when out-of-money
// puts trade at an IV premium to near-the-money calls (downside fear) and
// positive otherwise.
type Surface struct {
	Symbol string  `json:"symbol"`
	Spot   float64 `json:"spot"`

	// IV term structure at canonical tenors
	IV1M    float64 `json:"iv_1m"`
	IV3M    float64 `json:"iv_3m"`
	IV6M    float64 `json:"iv_6m"`
	IV1Y    float64 `json:"iv_1y"`
	IVLeaps float64 `json:"iv_leaps,omitempty"`

	TermSlope float64 `json:"term_slope"` // (IV1Y - IV1M) / 11, per month
	Skew      float64 `json:"skew"`       // OTM put IV premium (negative) vs near-ATM calls

	// Open-interest weighted aggregate Greeks across the chain
	TotalDelta float64 `json:"total_delta"`
	TotalGamma float64 `json:"total_gamma"`
	TotalVega  float64 `json:"total_vega"`

	RealizedVol  float64 `json:"realized_vol"`
	IVRVSpread   float64 `json:"iv_rv_spread"`
	CallPutRatio float64 `json:"call_put_ratio"` // volume-weighted ATM call/put price ratio

	// Synthetic marks a surface generated without any usable option data.
	// Degraded marks a real surface built from a thin chain (missing skew
	// legs or empty tenor buckets). Both flags propagate downstream.
	Synthetic bool `json:"synthetic"`
	Degraded  bool `json:"degraded"`
}

// TenorWindow bounds a maturity bucket in days to expiry.
type TenorWindow struct {
	MinDTE int
	MaxDTE int
}

// BuilderConfig holds the fixed tables driving surface construction. It is
// passed into the builder so construction stays a pure function of its
// inputs.
type BuilderConfig struct {
	RiskFreeRate      float64
	RealizedVolWindow int     // trailing trading days, default 60
	ATMCount          int     // quotes closest to ATM per tenor bucket
	ATMBand           float64 // |strike-spot| < band*spot counts as near-ATM

	// Tenor buckets in days to expiry
	Window1M    TenorWindow
	Window3M    TenorWindow
	Window6M    TenorWindow
	Window1Y    TenorWindow
	LeapsMinDTE int

	// Skew leg selection
	PutDeltaMin float64 // most negative accepted put delta
	PutDeltaMax float64 // least negative accepted put delta

	// Synthetic surface term multipliers over base (realized) volatility
	// across 1M/3M/6M/1Y, plus the LEAPS extension.
	SyntheticMultipliers [4]float64
	SyntheticLeapsMult   float64

	// Fallback tenor IVs for empty buckets on thin real chains
	FallbackIVs [4]float64
}

// DefaultBuilderConfig returns the canonical construction tables.
func DefaultBuilderConfig(riskFreeRate float64) BuilderConfig {
	return BuilderConfig{
		RiskFreeRate:         riskFreeRate,
		RealizedVolWindow:    60,
		ATMCount:             5,
		ATMBand:              0.05,
		Window1M:             TenorWindow{MinDTE: 15, MaxDTE: 45},
		Window3M:             TenorWindow{MinDTE: 75, MaxDTE: 105},
		Window6M:             TenorWindow{MinDTE: 150, MaxDTE: 210},
		Window1Y:             TenorWindow{MinDTE: 300, MaxDTE: 400},
		LeapsMinDTE:          365,
		PutDeltaMin:          -0.35,
		PutDeltaMax:          -0.15,
		SyntheticMultipliers: [4]float64{0.9, 1.0, 1.1, 1.15},
		SyntheticLeapsMult:   1.2,
		FallbackIVs:          [4]float64{0.20, 0.22, 0.24, 0.25},
	}
}
