// Package universe filters and ranks instruments by factor scores under a
// strategy configuration.
package universe

import (
	"github.com/aristath/voltsurf/internal/modules/optimization"
)

// FactorWeights blend the three composite scores into one ranking score.
// The weights should sum to 1.0.
type FactorWeights struct {
	Risk   float64 `json:"risk"`
	Sharpe float64 `json:"sharpe"`
	Growth float64 `json:"growth"`
}

// StrategyConfig is an immutable description of one portfolio strategy:
// what to optimize for, how to blend scores for ranking, and which
// constraints apply.
type StrategyConfig struct {
	Name           string                 `json:"name"`
	Objective      optimization.Objective `json:"objective"`
	Weights        FactorWeights          `json:"weights"`
	MaxVolatility  float64                `json:"max_volatility"`
	MaxSkewPenalty float64                `json:"max_skew_penalty"`
	MaxPosition    float64                `json:"max_position"`
	TargetSize     int                    `json:"target_size"`
}

// Candidate is one ranked instrument in a selection.
type Candidate struct {
	Symbol        string  `json:"symbol"`
	Score         float64 `json:"score"`
	InitialWeight float64 `json:"initial_weight"`
}

// Selection is the ranked, weighted universe a strategy will trade.
// Undersized is set when fewer instruments survived filtering than the
// strategy's target size.
type Selection struct {
	Strategy   string      `json:"strategy"`
	Candidates []Candidate `json:"candidates"`
	Undersized bool        `json:"undersized"`
}

// Symbols returns the selected tickers in rank order.
func (s Selection) Symbols() []string {
	out := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		out[i] = c.Symbol
	}
	return out
}

// Predefined strategy configurations mirroring the standard presets.
var (
	SharpeOptimized = StrategyConfig{
		Name:           "sharpe_optimized",
		Objective:      optimization.ObjectiveSharpe,
		Weights:        FactorWeights{Risk: 0.2, Sharpe: 0.6, Growth: 0.2},
		MaxVolatility:  0.30,
		MaxSkewPenalty: 0.15,
		MaxPosition:    0.15,
		TargetSize:     20,
	}

	GrowthFocused = StrategyConfig{
		Name:           "growth_focused",
		Objective:      optimization.ObjectiveGrowth,
		Weights:        FactorWeights{Risk: 0.1, Sharpe: 0.3, Growth: 0.6},
		MaxVolatility:  0.40,
		MaxSkewPenalty: 0.15,
		MaxPosition:    0.15,
		TargetSize:     20,
	}

	DefensiveStability = StrategyConfig{
		Name:           "defensive_stability",
		Objective:      optimization.ObjectiveLowRisk,
		Weights:        FactorWeights{Risk: 0.6, Sharpe: 0.3, Growth: 0.1},
		MaxVolatility:  0.20,
		MaxSkewPenalty: 0.15,
		MaxPosition:    0.15,
		TargetSize:     20,
	}

	HighIncome = StrategyConfig{
		Name:           "high_income",
		Objective:      optimization.ObjectiveRiskParity,
		Weights:        FactorWeights{Risk: 0.4, Sharpe: 0.4, Growth: 0.2},
		MaxVolatility:  0.25,
		MaxSkewPenalty: 0.15,
		MaxPosition:    0.15,
		TargetSize:     20,
	}

	MarketNeutral = StrategyConfig{
		Name:           "market_neutral",
		Objective:      optimization.ObjectiveEqualWeight,
		Weights:        FactorWeights{Risk: 0.33, Sharpe: 0.34, Growth: 0.33},
		MaxVolatility:  0.22,
		MaxSkewPenalty: 0.15,
		MaxPosition:    0.15,
		TargetSize:     20,
	}
)

// Presets maps strategy names to their configurations.
var Presets = map[string]StrategyConfig{
	SharpeOptimized.Name:    SharpeOptimized,
	GrowthFocused.Name:      GrowthFocused,
	DefensiveStability.Name: DefensiveStability,
	HighIncome.Name:         HighIncome,
	MarketNeutral.Name:      MarketNeutral,
}
