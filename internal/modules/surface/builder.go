package surface

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/pkg/formulas"
	"github.com/aristath/voltsurf/pkg/options"
)

// Builder converts raw option chains plus spot and history into volatility
// surfaces.
type Builder struct {
	cfg  BuilderConfig
	seed uint64 // base seed for the synthetic fallback generator
	log  zerolog.Logger
}

// NewBuilder creates a surface builder. The seed makes the synthetic fallback
// deterministic for a given symbol.
func NewBuilder(cfg BuilderConfig, seed uint64, log zerolog.Logger) *Builder {
	return &Builder{
		cfg:  cfg,
		seed: seed,
		log:  log.With().Str("component", "surface_builder").Logger(),
	}
}

// RiskFreeRate returns the rate the builder prices against.
func (b *Builder) RiskFreeRate() float64 {
	return b.cfg.RiskFreeRate
}

// Build constructs the volatility surface for symbol. When the chain is empty
// or every quote fails validity checks, it falls back to a synthetic surface
// derived from trailing realized volatility; the result carries the Synthetic
// flag so downstream consumers can tell.
func (b *Builder) Build(symbol string, chain []OptionQuote, spot float64, closes []float64, now time.Time) (Surface, error) {
	if spot <= 0 {
		return Surface{}, fmt.Errorf("invalid spot price %.4f for %s", spot, symbol)
	}

	realizedVol, err := b.realizedVolatility(closes)
	if err != nil {
		return Surface{}, err
	}

	valid := b.validQuotes(chain, now)
	if len(valid) == 0 {
		b.log.Debug().Str("symbol", symbol).Int("raw_quotes", len(chain)).
			Msg("No usable option quotes, building synthetic surface")
		return b.BuildSynthetic(symbol, spot, realizedVol), nil
	}

	// Resolve an IV per quote up front: vendor IV when present, numerical
	// inversion otherwise. Quotes that cannot be inverted are discarded.
	resolved := b.resolveIVs(symbol, valid, spot, now)
	if len(resolved) == 0 {
		b.log.Debug().Str("symbol", symbol).Msg("No quote survived IV inversion, building synthetic surface")
		return b.BuildSynthetic(symbol, spot, realizedVol), nil
	}

	s := Surface{
		Symbol:      symbol,
		Spot:        spot,
		RealizedVol: realizedVol,
	}

	s.IV1M, s.IV3M, s.IV6M, s.IV1Y, s.IVLeaps, s.Degraded = b.termStructure(resolved, spot, now)
	s.TermSlope = (s.IV1Y - s.IV1M) / 11.0

	skew, skewOK := b.volSkew(resolved, spot)
	s.Skew = skew
	if !skewOK {
		s.Degraded = true
	}

	s.TotalDelta, s.TotalGamma, s.TotalVega = b.aggregateGreeks(resolved, spot, now)
	s.IVRVSpread = s.IV3M - realizedVol
	s.CallPutRatio = b.callPutPriceRatio(resolved, spot)

	b.log.Debug().Str("symbol", symbol).
		Float64("iv_3m", s.IV3M).
		Float64("skew", s.Skew).
		Float64("realized_vol", s.RealizedVol).
		Bool("degraded", s.Degraded).
		Msg("Built surface from option chain")

	return s, nil
}

// resolvedQuote pairs a quote with its resolved implied volatility.
type resolvedQuote struct {
	OptionQuote
	iv  float64
	dte int
}

func (b *Builder) validQuotes(chain []OptionQuote, now time.Time) []OptionQuote {
	valid := make([]OptionQuote, 0, len(chain))
	for _, q := range chain {
		if q.Price <= 0 || q.Strike <= 0 {
			continue
		}
		if !q.Expiry.After(now) {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

func (b *Builder) resolveIVs(symbol string, quotes []OptionQuote, spot float64, now time.Time) []resolvedQuote {
	resolved := make([]resolvedQuote, 0, len(quotes))
	discarded := 0

	for _, q := range quotes {
		dte := q.DaysToExpiry(now)
		if dte <= 0 {
			continue
		}

		iv := q.ImpliedVol
		if iv <= 0 || iv > options.VolUpperBound {
			years := float64(dte) / 365.0
			inverted, err := options.ImpliedVolatility(q.Type, q.Price, spot, q.Strike, years, b.cfg.RiskFreeRate)
			if err != nil {
				// Per-quote condition: drop the quote, keep the surface.
				if errors.Is(err, options.ErrNoConvergence) {
					discarded++
					continue
				}
				discarded++
				continue
			}
			iv = inverted
		}

		resolved = append(resolved, resolvedQuote{OptionQuote: q, iv: iv, dte: dte})
	}

	if discarded > 0 {
		b.log.Debug().Str("symbol", symbol).Int("discarded", discarded).
			Msg("Discarded quotes with no feasible implied volatility")
	}

	return resolved
}

// termStructure computes the median near-ATM IV per canonical tenor bucket.
// Empty buckets fall back to fixed IVs and mark the surface degraded.
func (b *Builder) termStructure(quotes []resolvedQuote, spot float64, now time.Time) (iv1m, iv3m, iv6m, iv1y, ivLeaps float64, degraded bool) {
	windows := []TenorWindow{b.cfg.Window1M, b.cfg.Window3M, b.cfg.Window6M, b.cfg.Window1Y}
	out := [4]float64{}

	for i, w := range windows {
		bucket := b.nearestATM(quotes, spot, func(q resolvedQuote) bool {
			return q.dte >= w.MinDTE && q.dte <= w.MaxDTE
		}, b.cfg.ATMCount)

		if len(bucket) == 0 {
			out[i] = b.cfg.FallbackIVs[i]
			degraded = true
			continue
		}
		out[i] = medianIV(bucket)
	}

	leaps := b.nearestATM(quotes, spot, func(q resolvedQuote) bool {
		return q.dte > b.cfg.LeapsMinDTE
	}, 3)
	if len(leaps) > 0 {
		ivLeaps = medianIV(leaps)
	}

	return out[0], out[1], out[2], out[3], ivLeaps, degraded
}

// nearestATM returns up to limit quotes matching the filter, ordered by
// distance from the spot price.
func (b *Builder) nearestATM(quotes []resolvedQuote, spot float64, match func(resolvedQuote) bool, limit int) []resolvedQuote {
	bucket := make([]resolvedQuote, 0, limit)
	for _, q := range quotes {
		if match(q) {
			bucket = append(bucket, q)
		}
	}
	sort.Slice(bucket, func(i, j int) bool {
		di := math.Abs(bucket[i].Strike - spot)
		dj := math.Abs(bucket[j].Strike - spot)
		if di != dj {
			return di < dj
		}
		return bucket[i].Strike < bucket[j].Strike
	})
	if len(bucket) > limit {
		bucket = bucket[:limit]
	}
	return bucket
}

// volSkew computes the 25-delta style skew: median IV of out-of-money puts
// minus median IV of near-the-money calls. A missing leg yields skew 0.0 and
// an unhealthy flag so the surface is marked degraded.
func (b *Builder) volSkew(quotes []resolvedQuote, spot float64) (float64, bool) {
	var otmPuts, atmCalls []resolvedQuote

	for _, q := range quotes {
		switch q.Type {
		case options.Put:
			delta := b.quoteDelta(q, spot)
			if delta >= b.cfg.PutDeltaMin && delta <= b.cfg.PutDeltaMax {
				otmPuts = append(otmPuts, q)
			}
		case options.Call:
			if math.Abs(q.Strike-spot) < b.cfg.ATMBand*spot {
				atmCalls = append(atmCalls, q)
			}
		}
	}

	if len(otmPuts) == 0 || len(atmCalls) == 0 {
		return 0.0, false
	}

	// Sign convention: negative skew = put premium (downside fear priced in).
	return medianIV(atmCalls) - medianIV(otmPuts), true
}

// quoteDelta returns the vendor delta, or a Black-Scholes delta computed from
// the resolved IV when the vendor did not supply one.
func (b *Builder) quoteDelta(q resolvedQuote, spot float64) float64 {
	if q.Delta != 0 {
		return q.Delta
	}
	years := float64(q.dte) / 365.0
	return options.ComputeGreeks(q.Type, spot, q.Strike, years, b.cfg.RiskFreeRate, q.iv).Delta
}

// aggregateGreeks sums open-interest weighted delta/gamma/vega across the
// chain. Quotes missing vendor Greeks get Black-Scholes values from their
// resolved IV.
func (b *Builder) aggregateGreeks(quotes []resolvedQuote, spot float64, now time.Time) (delta, gamma, vega float64) {
	for _, q := range quotes {
		d, g, v := q.Delta, q.Gamma, q.Vega
		if d == 0 && g == 0 && v == 0 {
			years := float64(q.dte) / 365.0
			greeks := options.ComputeGreeks(q.Type, spot, q.Strike, years, b.cfg.RiskFreeRate, q.iv)
			d, g, v = greeks.Delta, greeks.Gamma, greeks.Vega
		}
		delta += d * q.OpenInterest
		gamma += g * q.OpenInterest
		vega += v * q.OpenInterest
	}
	return delta, gamma, vega
}

// callPutPriceRatio computes the volume-weighted mean price of near-ATM calls
// over near-ATM puts. Defaults to 1.0 (neutral) when either side is missing.
func (b *Builder) callPutPriceRatio(quotes []resolvedQuote, spot float64) float64 {
	var callValue, callVolume, putValue, putVolume float64

	for _, q := range quotes {
		if math.Abs(q.Strike-spot) >= b.cfg.ATMBand*spot {
			continue
		}
		weight := q.Volume
		if weight <= 0 {
			weight = 1
		}
		switch q.Type {
		case options.Call:
			callValue += q.Price * weight
			callVolume += weight
		case options.Put:
			putValue += q.Price * weight
			putVolume += weight
		}
	}

	if callVolume == 0 || putVolume == 0 {
		return 1.0
	}

	avgCall := callValue / callVolume
	avgPut := putValue / putVolume
	if avgPut <= 0 {
		return 1.0
	}
	return avgCall / avgPut
}

// realizedVolatility annualizes the standard deviation of daily log returns
// over the trailing window.
func (b *Builder) realizedVolatility(closes []float64) (float64, error) {
	if len(closes) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 closes, got %d", ErrInsufficientHistory, len(closes))
	}

	window := b.cfg.RealizedVolWindow
	if window > 0 && len(closes) > window+1 {
		closes = closes[len(closes)-window-1:]
	}

	returns := formulas.LogReturns(closes)
	return formulas.AnnualizedVolatility(returns), nil
}

func medianIV(quotes []resolvedQuote) float64 {
	ivs := make([]float64, len(quotes))
	for i, q := range quotes {
		ivs[i] = q.iv
	}
	return formulas.Median(ivs)
}
