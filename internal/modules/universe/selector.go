package universe

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/factors"
	"github.com/aristath/voltsurf/internal/modules/optimization"
)

// Selector filters and ranks factor bundles into tradeable selections.
type Selector struct {
	log zerolog.Logger
}

// NewSelector creates a universe selector.
func NewSelector(log zerolog.Logger) *Selector {
	return &Selector{
		log: log.With().Str("component", "universe_selector").Logger(),
	}
}

// Select filters bundles against the strategy's constraints, ranks the
// survivors by weighted composite score, and returns the top TargetSize
// with strategy-specific initial weights. An empty qualifying set yields an
// empty selection, not an error.
func (s *Selector) Select(bundles map[string]factors.Bundle, cfg StrategyConfig) Selection {
	survivors := s.filter(bundles, cfg)

	sel := Selection{Strategy: cfg.Name}
	if len(survivors) == 0 {
		s.log.Debug().Str("strategy", cfg.Name).Int("candidates", len(bundles)).
			Msg("No instrument survived strategy filters")
		return sel
	}

	ranked := s.rank(survivors, cfg)
	if cfg.TargetSize > 0 && len(ranked) > cfg.TargetSize {
		ranked = ranked[:cfg.TargetSize]
	} else if cfg.TargetSize > 0 && len(ranked) < cfg.TargetSize {
		sel.Undersized = true
	}

	s.assignInitialWeights(ranked, survivors, cfg.Objective)

	sel.Candidates = ranked

	s.log.Debug().Str("strategy", cfg.Name).
		Int("selected", len(ranked)).
		Int("survivors", len(survivors)).
		Bool("undersized", sel.Undersized).
		Msg("Universe selected")

	return sel
}

// filter drops instruments breaching the strategy's volatility and skew
// constraints, plus the per-objective score floors.
func (s *Selector) filter(bundles map[string]factors.Bundle, cfg StrategyConfig) map[string]factors.Bundle {
	out := make(map[string]factors.Bundle, len(bundles))

	for symbol, b := range bundles {
		if b.Risk.ForwardVol > cfg.MaxVolatility {
			continue
		}
		if b.Risk.VolPremium < -cfg.MaxSkewPenalty {
			continue
		}

		switch cfg.Objective {
		case optimization.ObjectiveLowRisk:
			if b.Scores.Risk < 6.0 {
				continue
			}
		case optimization.ObjectiveGrowth:
			if b.Scores.Growth < 5.0 {
				continue
			}
		case optimization.ObjectiveSharpe:
			if b.Scores.Sharpe < 4.0 {
				continue
			}
		case optimization.ObjectiveRiskParity, optimization.ObjectiveEqualWeight:
			// No score floor for weighting-scheme objectives.
		}

		out[symbol] = b
	}

	return out
}

// rank orders survivors by weighted composite score, descending. Ties break
// lexicographically on symbol so ranking is deterministic.
func (s *Selector) rank(survivors map[string]factors.Bundle, cfg StrategyConfig) []Candidate {
	ranked := make([]Candidate, 0, len(survivors))
	for symbol, b := range survivors {
		composite := b.Scores.Risk*cfg.Weights.Risk +
			b.Scores.Sharpe*cfg.Weights.Sharpe +
			b.Scores.Growth*cfg.Weights.Growth
		ranked = append(ranked, Candidate{Symbol: symbol, Score: composite})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	return ranked
}

// assignInitialWeights sets the starting weights the optimizer refines:
// equal for equal_weight, inverse forward vol for risk_parity, inverse risk
// score for low_risk, score-proportional for sharpe and growth. Unknown
// objectives fall back to equal weight.
func (s *Selector) assignInitialWeights(ranked []Candidate, survivors map[string]factors.Bundle, objective optimization.Objective) {
	n := len(ranked)
	if n == 0 {
		return
	}

	raw := make([]float64, n)

	switch objective {
	case optimization.ObjectiveRiskParity:
		for i, c := range ranked {
			raw[i] = 1.0 / math.Max(survivors[c.Symbol].Risk.ForwardVol, 0.05)
		}
	case optimization.ObjectiveLowRisk:
		for i, c := range ranked {
			raw[i] = 1.0 / math.Max(survivors[c.Symbol].Scores.Risk, 0.1)
		}
	case optimization.ObjectiveSharpe:
		for i, c := range ranked {
			raw[i] = survivors[c.Symbol].Scores.Sharpe
		}
	case optimization.ObjectiveGrowth:
		for i, c := range ranked {
			raw[i] = survivors[c.Symbol].Scores.Growth
		}
	default:
		for i := range raw {
			raw[i] = 1.0
		}
	}

	var total float64
	for _, w := range raw {
		total += w
	}
	if total <= 0 {
		for i := range ranked {
			ranked[i].InitialWeight = 1.0 / float64(n)
		}
		return
	}
	for i := range ranked {
		ranked[i].InitialWeight = raw[i] / total
	}
}
