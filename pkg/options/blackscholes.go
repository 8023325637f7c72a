// Package options provides European option pricing, Greeks and implied
// volatility inversion under the Black-Scholes model.
package options

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoConvergence is returned when a market price cannot be inverted to an
// implied volatility inside the search bounds. Callers treat it as a
// per-quote condition and discard the quote, not as a fatal error.
var ErrNoConvergence = errors.New("implied volatility did not converge")

// Type identifies the contract right.
type Type string

const (
	Call Type = "call"
	Put  Type = "put"
)

// Volatility search bounds for the IV inversion. Quotes implying a volatility
// outside this bracket are rejected.
const (
	VolLowerBound = 0.01
	VolUpperBound = 3.0
)

const (
	ivTolerance     = 1e-6
	ivMaxIterations = 100
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Greeks holds option price sensitivities. Theta is per calendar day, vega
// per 1% volatility change, rho per 1% rate change.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

func d1d2(spot, strike, years, rate, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*years) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	return d1, d2
}

// Price calculates the Black-Scholes price of a European option.
// years is time to expiry in years. Expired options price to intrinsic value.
func Price(typ Type, spot, strike, years, rate, sigma float64) float64 {
	if years <= 0 {
		if typ == Call {
			return math.Max(0, spot-strike)
		}
		return math.Max(0, strike-spot)
	}

	d1, d2 := d1d2(spot, strike, years, rate, sigma)
	discount := math.Exp(-rate * years)

	if typ == Call {
		return math.Max(0, spot*stdNormal.CDF(d1)-strike*discount*stdNormal.CDF(d2))
	}
	return math.Max(0, strike*discount*stdNormal.CDF(-d2)-spot*stdNormal.CDF(-d1))
}

// ComputeGreeks calculates delta, gamma, theta, vega and rho for an option.
func ComputeGreeks(typ Type, spot, strike, years, rate, sigma float64) Greeks {
	if years <= 0 || sigma <= 0 || spot <= 0 {
		return Greeks{}
	}

	d1, d2 := d1d2(spot, strike, years, rate, sigma)
	sqrtT := math.Sqrt(years)
	discount := math.Exp(-rate * years)

	pdfD1 := stdNormal.Prob(d1)
	cdfD1 := stdNormal.CDF(d1)
	cdfD2 := stdNormal.CDF(d2)

	var delta, theta, rho float64
	if typ == Call {
		delta = cdfD1
		rho = strike * years * discount * cdfD2
		theta = -spot*pdfD1*sigma/(2*sqrtT) - rate*strike*discount*cdfD2
	} else {
		delta = cdfD1 - 1
		rho = -strike * years * discount * stdNormal.CDF(-d2)
		theta = -spot*pdfD1*sigma/(2*sqrtT) + rate*strike*discount*stdNormal.CDF(-d2)
	}

	// Gamma and vega are identical for calls and puts.
	gamma := pdfD1 / (spot * sigma * sqrtT)
	vega := spot * pdfD1 * sqrtT

	return Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: theta / 365,
		Vega:  vega / 100,
		Rho:   rho / 100,
	}
}

// ImpliedVolatility inverts a market price to the Black-Scholes volatility by
// bisection on [VolLowerBound, VolUpperBound]. Bisection is preferred over
// Newton here: it cannot diverge when vega is near zero for deep in/out of
// the money quotes.
func ImpliedVolatility(typ Type, marketPrice, spot, strike, years, rate float64) (float64, error) {
	if years <= 0 || marketPrice <= 0 || spot <= 0 || strike <= 0 {
		return 0, fmt.Errorf("%w: unpriceable quote (price=%.4f dte=%.4fy)", ErrNoConvergence, marketPrice, years)
	}

	lo, hi := VolLowerBound, VolUpperBound
	priceLo := Price(typ, spot, strike, years, rate, lo)
	priceHi := Price(typ, spot, strike, years, rate, hi)

	// Price must be bracketed by the bounds; BS price is monotone in sigma.
	if marketPrice < priceLo || marketPrice > priceHi {
		return 0, fmt.Errorf("%w: price %.4f outside feasible range [%.4f, %.4f]", ErrNoConvergence, marketPrice, priceLo, priceHi)
	}

	for i := 0; i < ivMaxIterations; i++ {
		mid := 0.5 * (lo + hi)
		diff := Price(typ, spot, strike, years, rate, mid) - marketPrice

		if math.Abs(diff) < ivTolerance || (hi-lo) < ivTolerance {
			return mid, nil
		}

		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return 0, fmt.Errorf("%w: no convergence after %d iterations", ErrNoConvergence, ivMaxIterations)
}
