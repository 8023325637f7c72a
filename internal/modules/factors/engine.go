package factors

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/surface"
	"github.com/aristath/voltsurf/pkg/formulas"
)

// Score blend weights. These are calibration constants, not strategy
// parameters, so they stay fixed rather than living in EngineConfig.
const (
	riskWeightVol     = 0.5
	riskWeightCrash   = 0.3
	riskWeightPremium = 0.2

	sharpeWeightProxy = 0.3
	sharpeWeightTail  = 0.7

	growthWeightCheapness   = 0.4
	growthWeightOptionality = 0.3
	growthWeightTerm        = 0.2
	growthWeightConvexity   = 0.1
)

// Engine computes factor bundles from surfaces.
type Engine struct {
	cfg EngineConfig
	log zerolog.Logger
}

// NewEngine creates a factor engine.
func NewEngine(cfg EngineConfig, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "factor_engine").Logger(),
	}
}

// Compute derives the full factor bundle for one surface. Pure: no state,
// no I/O, same surface in means same bundle out.
func (e *Engine) Compute(s surface.Surface) Bundle {
	risk := e.riskFactors(s)
	growth := e.growthFactors(s)
	sharpe := e.sharpeFactors(s, growth.ImpliedDrift)

	return Bundle{
		Symbol: s.Symbol,
		Risk:   risk,
		Growth: growth,
		Sharpe: sharpe,
		Scores: Scores{
			Risk:   e.riskScore(risk),
			Growth: e.growthScore(s, growth),
			Sharpe: e.sharpeScore(sharpe),
		},
		Synthetic: s.Synthetic,
		Degraded:  s.Degraded,
	}
}

func (e *Engine) riskFactors(s surface.Surface) RiskFactors {
	return RiskFactors{
		ForwardVol: s.IV3M,
		// Negative skew means puts trade rich; scale that into a crash
		// probability proxy. Unbounded above on purpose.
		CrashProbability:  math.Max(0, -s.Skew/0.10),
		VolPremium:        s.IVRVSpread,
		TermStructureRisk: math.Abs(s.TermSlope),
	}
}

func (e *Engine) growthFactors(s surface.Surface) GrowthFactors {
	return GrowthFactors{
		ImpliedDrift:      e.impliedDrift(s.CallPutRatio),
		CallCheapness:     2.0 - s.CallPutRatio,
		GrowthOptionality: formulas.Clamp(2.0*s.IVRVSpread+math.Max(0, s.TermSlope), 0, 1),
		OptionsMomentum:   s.TotalDelta / math.Max(math.Abs(s.TotalVega), e.cfg.MinVegaFloor),
	}
}

func (e *Engine) sharpeFactors(s surface.Surface, impliedDrift float64) SharpeFactors {
	proxy := impliedDrift / math.Max(s.IV3M, 0.05)

	volAdjusted := proxy
	if s.RealizedVol > 0 {
		volAdjusted = proxy * (1 - math.Abs(s.IVRVSpread/s.RealizedVol))
	}

	return SharpeFactors{
		ProxySharpe:      proxy,
		TailRiskAdjusted: proxy - math.Max(0, -s.Skew*2),
		VolAdjusted:      volAdjusted,
		Convexity:        s.TotalGamma / math.Max(math.Abs(s.TotalDelta), 1.0),
	}
}

// impliedDrift maps the call/put pricing bias into an expected drift around
// the risk-free rate.
func (e *Engine) impliedDrift(callPutRatio float64) float64 {
	switch {
	case callPutRatio > 1.2:
		return e.cfg.RiskFreeRate + 0.05
	case callPutRatio < 0.8:
		return e.cfg.RiskFreeRate - 0.03
	default:
		return e.cfg.RiskFreeRate
	}
}

// riskScore blends volatility, crash probability and vol premium into a
// 0-10 score where higher means safer.
func (e *Engine) riskScore(r RiskFactors) float64 {
	volComponent := formulas.Clamp(10-r.ForwardVol*40, 0, 10)
	crashComponent := formulas.Clamp(10-r.CrashProbability*10, 0, 10)
	premiumComponent := formulas.Clamp(5-r.VolPremium*10, 0, 10)

	score := volComponent*riskWeightVol +
		crashComponent*riskWeightCrash +
		premiumComponent*riskWeightPremium
	return formulas.Clamp(score, 0, 10)
}

func (e *Engine) sharpeScore(f SharpeFactors) float64 {
	proxyComponent := formulas.Clamp(f.ProxySharpe*5+5, 0, 10)
	tailComponent := formulas.Clamp(f.TailRiskAdjusted*5+5, 0, 10)

	score := proxyComponent*sharpeWeightProxy + tailComponent*sharpeWeightTail
	return formulas.Clamp(score, 0, 10)
}

func (e *Engine) growthScore(s surface.Surface, g GrowthFactors) float64 {
	cheapnessComponent := formulas.Clamp(g.CallCheapness*5+5, 0, 10)
	optionalityComponent := g.GrowthOptionality * 10
	termComponent := formulas.Clamp(s.TermSlope*25+2, -2, 5)
	convexityComponent := formulas.Clamp(math.Abs(s.TotalGamma)/1000, 0, 3)

	score := cheapnessComponent*growthWeightCheapness +
		optionalityComponent*growthWeightOptionality +
		termComponent*growthWeightTerm +
		convexityComponent*growthWeightConvexity
	return formulas.Clamp(score, 0, 10)
}
