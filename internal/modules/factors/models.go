// Package factors derives predictive factor bundles and composite scores
// from volatility surfaces. All computations are pure functions of the
// surface passed in.
package factors

// RiskFactors capture downside and volatility risk signals.
type RiskFactors struct {
	ForwardVol        float64 `json:"forward_vol"`
	CrashProbability  float64 `json:"crash_probability"`
	VolPremium        float64 `json:"vol_premium"`
	TermStructureRisk float64 `json:"term_structure_risk"`
}

// GrowthFactors capture option-implied upside signals.
type GrowthFactors struct {
	ImpliedDrift      float64 `json:"implied_drift"`
	CallCheapness     float64 `json:"call_cheapness"`
	GrowthOptionality float64 `json:"growth_optionality"`
	OptionsMomentum   float64 `json:"options_momentum"`
}

// SharpeFactors capture risk-adjusted return signals.
type SharpeFactors struct {
	ProxySharpe      float64 `json:"proxy_sharpe"`
	TailRiskAdjusted float64 `json:"tail_risk_adjusted"`
	VolAdjusted      float64 `json:"vol_adjusted"`
	Convexity        float64 `json:"convexity"`
}

// Scores are the three composite scores on a 0-10 scale.
type Scores struct {
	Risk   float64 `json:"risk"`
	Growth float64 `json:"growth"`
	Sharpe float64 `json:"sharpe"`
}

// Bundle is the full factor output for one instrument. Synthetic and
// Degraded carry the surface provenance flags through to selection.
type Bundle struct {
	Symbol    string        `json:"symbol"`
	Risk      RiskFactors   `json:"risk_factors"`
	Growth    GrowthFactors `json:"growth_factors"`
	Sharpe    SharpeFactors `json:"sharpe_factors"`
	Scores    Scores        `json:"scores"`
	Synthetic bool          `json:"synthetic"`
	Degraded  bool          `json:"degraded"`
}

// EngineConfig holds the tunable inputs of the factor engine. The score
// blend constants are fixed; only market assumptions are configurable.
type EngineConfig struct {
	// RiskFreeRate anchors the implied drift estimate.
	RiskFreeRate float64

	// MinVegaFloor guards the momentum denominator.
	MinVegaFloor float64
}

// DefaultEngineConfig returns the standard engine configuration.
func DefaultEngineConfig(riskFreeRate float64) EngineConfig {
	return EngineConfig{
		RiskFreeRate: riskFreeRate,
		MinVegaFloor: 1.0,
	}
}
