// Package simulation runs Monte Carlo projections of portfolio value over
// a fixed horizon.
package simulation

import "errors"

// ErrInvalidParams is returned when the simulation request is malformed.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// Params describes one Monte Carlo run. MeanReturns and Covariance are
// annualized; Weights must line up with them positionally. KeepPaths
// retains every simulated path in the result instead of just its
// terminal value.
type Params struct {
	MeanReturns  []float64   `json:"mean_returns"`
	Covariance   [][]float64 `json:"covariance"`
	Weights      []float64   `json:"weights"`
	InitialValue float64     `json:"initial_value"`
	HorizonDays  int         `json:"horizon_days"`
	NumPaths     int         `json:"num_paths"`
	Seed         uint64      `json:"seed"`
	KeepPaths    bool        `json:"keep_paths"`
}

// PercentileBand is one percentile of the terminal value distribution.
type PercentileBand struct {
	Percentile int     `json:"percentile"`
	Value      float64 `json:"value"`
}

// Result aggregates the simulated paths. TerminalValues holds every
// terminal value in ascending order; BestCase and WorstCase are its
// extremes. VaR95 and VaR99 are empirical percentile losses on terminal
// returns, not the parametric VaR the optimizer reports. Paths is
// populated only when Params.KeepPaths is set; each path starts at the
// initial value and carries one entry per simulated day.
type Result struct {
	MeanTerminal      float64          `json:"mean_terminal"`
	MedianTerminal    float64          `json:"median_terminal"`
	StdDevTerminal    float64          `json:"stddev_terminal"`
	TerminalValues    []float64        `json:"terminal_values"`
	BestCase          float64          `json:"best_case"`
	WorstCase         float64          `json:"worst_case"`
	Percentiles       []PercentileBand `json:"percentiles"`
	VaR95             float64          `json:"var_95"`
	VaR99             float64          `json:"var_99"`
	ExpectedShortfall float64          `json:"expected_shortfall"`
	ProbLoss          float64          `json:"prob_loss"`
	ProbLargeLoss     float64          `json:"prob_large_loss"`
	MeanMaxDrawdown   float64          `json:"mean_max_drawdown"`
	SharpeRatio       float64          `json:"sharpe_ratio"`
	NumPaths          int              `json:"num_paths"`
	HorizonDays       int              `json:"horizon_days"`
	Paths             [][]float64      `json:"paths,omitempty"`
}

// largeLossThreshold defines the drawdown counted as a large loss in
// ProbLargeLoss.
const largeLossThreshold = 0.20

// percentileLevels is the fixed percentile table reported per run.
var percentileLevels = []int{5, 25, 50, 75, 95}
