package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/voltsurf/pkg/formulas"
)

// var95Z is the one-sided 95% z-score for the parametric VaR estimate.
const var95Z = 1.645

// buildResult computes portfolio-level metrics for a weight vector. The
// VaR reported here is the parametric normal approximation μp − 1.645·σp;
// the simulation engine reports an empirical percentile VaR instead, and
// the two are not interchangeable.
func buildResult(symbols []string, weights, mu []float64, sigma *mat.SymDense, objective Objective, riskFreeRate float64) *PortfolioResult {
	n := len(weights)

	var expReturn, variance float64
	for i := 0; i < n; i++ {
		expReturn += mu[i] * weights[i]
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * sigma.At(i, j)
		}
	}
	volatility := math.Sqrt(math.Max(variance, 0))

	sharpe := formulas.AnnualizedSharpe(expReturn, volatility, riskFreeRate)

	return &PortfolioResult{
		Symbols:        symbols,
		Weights:        weights,
		ExpectedReturn: expReturn,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
		VaR95:          formulas.ParametricVaR(expReturn, volatility, var95Z),
		MaxDrawdown:    formulas.EstimateMaxDrawdown(volatility),
		Objective:      objective.String(),
	}
}
