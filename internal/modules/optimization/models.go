// Package optimization solves constrained portfolio weight problems over
// historical return series.
package optimization

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when fewer than MinHistoryRows aligned
// return observations are available.
var ErrInsufficientData = errors.New("insufficient return history")

// ErrOptimizationFailed is returned when the solver does not converge for
// the requested objective.
var ErrOptimizationFailed = errors.New("optimization failed to converge")

// ErrInfeasibleConstraints is returned when no weight vector can satisfy
// the constraint set, for instance when N × max_position < 1.
var ErrInfeasibleConstraints = errors.New("infeasible constraints")

// MinHistoryRows is the minimum number of aligned daily return rows needed
// to estimate a usable covariance matrix.
const MinHistoryRows = 30

// Objective selects the optimization target. The zero value is
// ObjectiveSharpe.
type Objective int

const (
	// ObjectiveSharpe maximizes the portfolio Sharpe ratio.
	ObjectiveSharpe Objective = iota
	// ObjectiveLowRisk minimizes portfolio variance.
	ObjectiveLowRisk
	// ObjectiveGrowth maximizes expected return under a volatility cap.
	ObjectiveGrowth
	// ObjectiveRiskParity weights positions by inverse volatility.
	ObjectiveRiskParity
	// ObjectiveEqualWeight assigns 1/N to every position.
	ObjectiveEqualWeight
)

// String returns the canonical lowercase name of the objective.
func (o Objective) String() string {
	switch o {
	case ObjectiveSharpe:
		return "sharpe"
	case ObjectiveLowRisk:
		return "low_risk"
	case ObjectiveGrowth:
		return "growth"
	case ObjectiveRiskParity:
		return "risk_parity"
	case ObjectiveEqualWeight:
		return "equal_weight"
	default:
		return fmt.Sprintf("objective(%d)", int(o))
	}
}

// ParseObjective maps an objective name to its enum value.
func ParseObjective(s string) (Objective, error) {
	switch s {
	case "sharpe":
		return ObjectiveSharpe, nil
	case "low_risk", "min_volatility":
		return ObjectiveLowRisk, nil
	case "growth", "max_return":
		return ObjectiveGrowth, nil
	case "risk_parity":
		return ObjectiveRiskParity, nil
	case "equal_weight":
		return ObjectiveEqualWeight, nil
	default:
		return 0, fmt.Errorf("unknown objective %q", s)
	}
}

// Constraints bound the weight vector the solver may return.
type Constraints struct {
	// MaxPosition caps any single weight. Zero means 1.0 (uncapped).
	MaxPosition float64 `json:"max_position"`

	// MaxVolatility caps annualized portfolio volatility for the growth
	// objective. Zero disables the cap.
	MaxVolatility float64 `json:"max_volatility"`

	// RiskFreeRate feeds the Sharpe objective and reported metrics.
	RiskFreeRate float64 `json:"risk_free_rate"`

	// MaxSolverSeconds bounds solver wall time. Zero means no limit.
	MaxSolverSeconds float64 `json:"max_solver_seconds"`

	// Shrinkage applies Ledoit-Wolf style shrinkage toward the diagonal
	// when estimating covariance.
	Shrinkage bool `json:"shrinkage"`
}

// PortfolioResult is the solved allocation with its portfolio-level
// metrics. VaR95 here is parametric (normal approximation), distinct from
// the empirical percentile VaR the Monte Carlo engine reports.
type PortfolioResult struct {
	Symbols        []string  `json:"symbols"`
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	VaR95          float64   `json:"var_95"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	Objective      string    `json:"objective"`
}
