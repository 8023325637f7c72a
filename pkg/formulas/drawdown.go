package formulas

import "math"

// CalculateMaxDrawdown calculates the maximum drawdown from a value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Returns the maximum drawdown as a positive fraction (0.25 = 25% loss from
// peak), or nil when the series is too short.
func CalculateMaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// EstimateMaxDrawdown produces a closed-form drawdown estimate from annualized
// volatility alone. This is the parametric approximation used by the optimizer
// for its summary metrics; it is NOT a historical drawdown. A one-year horizon
// is assumed: roughly two annual standard deviations of downside, capped at a
// total loss.
func EstimateMaxDrawdown(annualVolatility float64) float64 {
	if annualVolatility <= 0 {
		return 0
	}
	return math.Min(1.0, 2.0*annualVolatility)
}
