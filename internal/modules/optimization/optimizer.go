package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Optimizer solves portfolio weight problems from historical returns.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a portfolio optimizer.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize estimates return moments from the daily series and solves for
// weights under the given objective. Series are aligned to the shortest
// common length; fewer than MinHistoryRows aligned rows is
// ErrInsufficientData.
func (o *Optimizer) Optimize(symbols []string, returns map[string][]float64, objective Objective, c Constraints) (*PortfolioResult, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInsufficientData, len(symbols))
	}

	maxPos := effectiveMaxPosition(objective, c.MaxPosition)
	if float64(len(symbols))*maxPos < 1-1e-9 {
		return nil, fmt.Errorf("%w: %d positions capped at %.4f cannot sum to 1",
			ErrInfeasibleConstraints, len(symbols), maxPos)
	}

	aligned, rows, err := alignReturns(symbols, returns)
	if err != nil {
		return nil, err
	}
	if rows < MinHistoryRows {
		return nil, fmt.Errorf("%w: %d aligned rows, need %d", ErrInsufficientData, rows, MinHistoryRows)
	}

	mu, sigma := estimateMoments(aligned, c.Shrinkage)

	var weights []float64
	switch objective {
	case ObjectiveSharpe, ObjectiveLowRisk, ObjectiveGrowth:
		weights, err = o.solve(objective, mu, sigma, c)
		if err != nil {
			return nil, err
		}
	case ObjectiveRiskParity:
		weights = redistributeExcess(riskParityWeights(sigma), maxPos)
	case ObjectiveEqualWeight:
		weights = equalWeights(len(symbols))
	default:
		return nil, fmt.Errorf("unknown objective %v", objective)
	}

	result := buildResult(symbols, weights, mu, sigma, objective, c.RiskFreeRate)

	o.log.Debug().
		Str("objective", objective.String()).
		Int("symbols", len(symbols)).
		Int("rows", rows).
		Float64("expected_return", result.ExpectedReturn).
		Float64("volatility", result.Volatility).
		Float64("sharpe", result.SharpeRatio).
		Msg("Portfolio optimized")

	return result, nil
}

// solve runs the penalty-method solver: BFGS with the analytic gradient
// first, Nelder-Mead as the derivative-free fallback.
func (o *Optimizer) solve(objective Objective, mu []float64, sigma *mat.SymDense, c Constraints) ([]float64, error) {
	n := len(mu)
	problem := buildProblem(objective, mu, sigma, c)

	initial := equalWeights(n)

	settings := &optimize.Settings{}
	if c.MaxSolverSeconds > 0 {
		settings.Runtime = time.Duration(c.MaxSolverSeconds * float64(time.Second))
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		o.log.Debug().Err(err).Str("objective", objective.String()).
			Msg("BFGS did not converge, retrying with Nelder-Mead")
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOptimizationFailed, err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("%w: status=%v", ErrOptimizationFailed, result.Status)
		}
	}

	return projectAndNormalize(result.X, effectiveMaxPosition(objective, c.MaxPosition)), nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// riskParityWeights assigns weights proportional to inverse volatility.
func riskParityWeights(sigma *mat.SymDense) []float64 {
	n := sigma.SymmetricDim()
	weights := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		vol := math.Sqrt(math.Max(sigma.At(i, i), 0))
		weights[i] = 1.0 / math.Max(vol, 0.05)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func equalWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}
