package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// penaltyWeight scales the quadratic penalties that enforce the budget and
// volatility constraints inside the unconstrained solver.
const penaltyWeight = 1000.0

// buildProblem constructs the penalized optimization problem for a solver
// objective. Weights are projected to [0, maxPosition] before evaluation;
// the Σw=1 budget enters as a quadratic penalty. The growth objective adds
// a penalty for breaching the volatility cap.
func buildProblem(objective Objective, mu []float64, sigma *mat.SymDense, c Constraints) optimize.Problem {
	n := len(mu)
	maxPos := effectiveMaxPosition(objective, c.MaxPosition)

	project := func(x []float64) []float64 {
		proj := make([]float64, len(x))
		for i := range x {
			proj[i] = math.Max(0, math.Min(maxPos, x[i]))
		}
		return proj
	}

	moments := func(x []float64) (ret, variance, sum float64) {
		for i := 0; i < n; i++ {
			ret += mu[i] * x[i]
			sum += x[i]
			for j := 0; j < n; j++ {
				variance += x[i] * x[j] * sigma.At(i, j)
			}
		}
		return ret, variance, sum
	}

	return optimize.Problem{
		Func: func(x []float64) float64 {
			xp := project(x)
			ret, variance, sum := moments(xp)

			var obj float64
			switch objective {
			case ObjectiveSharpe:
				stdDev := math.Sqrt(math.Max(variance, 1e-10))
				obj = -(ret - c.RiskFreeRate) / stdDev
			case ObjectiveLowRisk:
				obj = variance
			case ObjectiveGrowth:
				obj = -ret
				if c.MaxVolatility > 0 {
					varCap := c.MaxVolatility * c.MaxVolatility
					if variance > varCap {
						obj += penaltyWeight * (variance - varCap) * (variance - varCap)
					}
				}
			default:
				// Closed-form objectives never reach the solver.
				obj = variance
			}

			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := project(x)
			ret, variance, sum := moments(xp)

			for i := 0; i < n; i++ {
				var dVar float64
				for j := 0; j < n; j++ {
					dVar += 2 * sigma.At(i, j) * xp[j]
				}

				switch objective {
				case ObjectiveSharpe:
					stdDev := math.Sqrt(math.Max(variance, 1e-10))
					grad[i] = -mu[i]/stdDev + (ret-c.RiskFreeRate)*dVar/(2*stdDev*stdDev*stdDev)
				case ObjectiveLowRisk:
					grad[i] = dVar
				case ObjectiveGrowth:
					grad[i] = -mu[i]
					if c.MaxVolatility > 0 {
						varCap := c.MaxVolatility * c.MaxVolatility
						if variance > varCap {
							grad[i] += 2 * penaltyWeight * (variance - varCap) * dVar
						}
					}
				default:
					grad[i] = dVar
				}

				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}
}

// effectiveMaxPosition resolves the per-name weight cap for an objective.
// Zero or out-of-range means uncapped. Growth concentrates by
// construction, so its cap is doubled.
func effectiveMaxPosition(objective Objective, maxPosition float64) float64 {
	if maxPosition <= 0 || maxPosition > 1 {
		maxPosition = 1.0
	}
	if objective == ObjectiveGrowth {
		maxPosition = math.Min(1.0, maxPosition*2)
	}
	return maxPosition
}

// projectAndNormalize clamps the solved vector to [0, maxPosition] and
// rescales it onto the simplex. Rescaling can push weights back over the
// cap, so the excess is then water-filled onto the uncapped names.
// Requires len(x) × maxPosition >= 1.
func projectAndNormalize(x []float64, maxPosition float64) []float64 {
	if maxPosition <= 0 || maxPosition > 1 {
		maxPosition = 1.0
	}

	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Max(0, math.Min(maxPosition, v))
		sum += out[i]
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return redistributeExcess(out, maxPosition)
}

// redistributeExcess pins weights above the cap to it and spreads the
// removed mass evenly over the names still below the cap, repeating until
// no weight breaches. Each pass pins at least one more name, so the loop
// runs at most len(w) times; the sum is preserved exactly.
func redistributeExcess(w []float64, maxPosition float64) []float64 {
	for range w {
		var excess float64
		var open []int
		for i, v := range w {
			switch {
			case v > maxPosition:
				excess += v - maxPosition
				w[i] = maxPosition
			case v < maxPosition:
				open = append(open, i)
			}
		}
		if excess <= 1e-12 || len(open) == 0 {
			break
		}
		share := excess / float64(len(open))
		for _, i := range open {
			w[i] += share
		}
	}
	return w
}
