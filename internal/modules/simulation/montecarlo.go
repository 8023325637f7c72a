package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/voltsurf/pkg/formulas"
)

// Engine runs Monte Carlo portfolio simulations across a bounded worker
// pool. Aggregation is order-independent, so a fixed seed always yields
// the same result regardless of scheduling.
type Engine struct {
	numWorkers int
	log        zerolog.Logger
}

// NewEngine creates a simulation engine. numWorkers <= 0 uses one worker
// per CPU.
func NewEngine(numWorkers int, log zerolog.Logger) *Engine {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Engine{
		numWorkers: numWorkers,
		log:        log.With().Str("component", "simulation").Logger(),
	}
}

// Simulate projects portfolio value over the horizon. The portfolio's
// annualized moments collapse to daily ones; each path compounds daily
// normal draws multiplicatively. Path i draws from its own PCG stream
// (Seed, i), so paths are independent and the whole run is reproducible.
func (e *Engine) Simulate(p Params) (*Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	dailyMean, dailyStd := dailyMoments(p)

	terminals := make([]float64, p.NumPaths)
	drawdowns := make([]float64, p.NumPaths)
	dailyReturns := make([]float64, p.NumPaths*p.HorizonDays)
	var paths [][]float64
	if p.KeepPaths {
		paths = make([][]float64, p.NumPaths)
	}

	var wg sync.WaitGroup
	chunk := (p.NumPaths + e.numWorkers - 1) / e.numWorkers
	for w := 0; w < e.numWorkers; w++ {
		start := w * chunk
		if start >= p.NumPaths {
			break
		}
		end := start + chunk
		if end > p.NumPaths {
			end = p.NumPaths
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			buf := make([]float64, p.HorizonDays+1)
			for i := start; i < end; i++ {
				if p.KeepPaths {
					buf = make([]float64, p.HorizonDays+1)
					paths[i] = buf
				}
				terminals[i] = e.runPath(p, dailyMean, dailyStd, uint64(i), buf)

				if dd := formulas.CalculateMaxDrawdown(buf); dd != nil {
					drawdowns[i] = *dd
				}
				base := i * p.HorizonDays
				for d := 1; d <= p.HorizonDays; d++ {
					if buf[d-1] > 0 {
						dailyReturns[base+d-1] = buf[d]/buf[d-1] - 1
					}
				}
			}
		}(start, end)
	}
	wg.Wait()

	result := e.aggregate(p, terminals, drawdowns, dailyReturns, paths)

	e.log.Debug().
		Int("paths", p.NumPaths).
		Int("horizon_days", p.HorizonDays).
		Float64("mean_terminal", result.MeanTerminal).
		Float64("var_95", result.VaR95).
		Msg("Simulation complete")

	return result, nil
}

func validate(p Params) error {
	n := len(p.Weights)
	if n == 0 {
		return fmt.Errorf("%w: empty weight vector", ErrInvalidParams)
	}
	if len(p.MeanReturns) != n {
		return fmt.Errorf("%w: %d mean returns for %d weights", ErrInvalidParams, len(p.MeanReturns), n)
	}
	if len(p.Covariance) != n {
		return fmt.Errorf("%w: covariance has %d rows, want %d", ErrInvalidParams, len(p.Covariance), n)
	}
	for i, row := range p.Covariance {
		if len(row) != n {
			return fmt.Errorf("%w: covariance row %d has %d columns, want %d", ErrInvalidParams, i, len(row), n)
		}
	}
	if p.InitialValue <= 0 {
		return fmt.Errorf("%w: initial value %.4f", ErrInvalidParams, p.InitialValue)
	}
	if p.HorizonDays < 1 {
		return fmt.Errorf("%w: horizon %d days", ErrInvalidParams, p.HorizonDays)
	}
	if p.NumPaths < 1 {
		return fmt.Errorf("%w: %d paths", ErrInvalidParams, p.NumPaths)
	}
	return nil
}

// dailyMoments collapses the annualized portfolio moments to daily scale:
// μd = wᵗμ/252, σd = sqrt(wᵗΣw)/sqrt(252).
func dailyMoments(p Params) (mean, std float64) {
	n := len(p.Weights)

	var annualMean, annualVar float64
	for i := 0; i < n; i++ {
		annualMean += p.Weights[i] * p.MeanReturns[i]
		for j := 0; j < n; j++ {
			annualVar += p.Weights[i] * p.Weights[j] * p.Covariance[i][j]
		}
	}

	mean = annualMean / formulas.TradingDaysPerYear
	std = math.Sqrt(math.Max(annualVar, 0)) / math.Sqrt(formulas.TradingDaysPerYear)
	return mean, std
}

// runPath compounds one path of daily returns into buf, which holds the
// initial value followed by one value per day, and returns the terminal
// value. Zero volatility degenerates to pure deterministic compounding.
// A path that hits zero stays there.
func (e *Engine) runPath(p Params, dailyMean, dailyStd float64, pathIdx uint64, buf []float64) float64 {
	buf[0] = p.InitialValue

	if dailyStd == 0 {
		for d := 1; d <= p.HorizonDays; d++ {
			buf[d] = p.InitialValue * math.Pow(1+dailyMean, float64(d))
		}
		return buf[p.HorizonDays]
	}

	normal := distuv.Normal{
		Mu:    dailyMean,
		Sigma: dailyStd,
		Src:   rand.New(rand.NewPCG(p.Seed, pathIdx)),
	}

	value := p.InitialValue
	for d := 1; d <= p.HorizonDays; d++ {
		if value > 0 {
			value *= 1 + normal.Rand()
			if value < 0 {
				value = 0
			}
		}
		buf[d] = value
	}
	return value
}

func (e *Engine) aggregate(p Params, terminals, drawdowns, dailyReturns []float64, paths [][]float64) *Result {
	sorted := make([]float64, len(terminals))
	copy(sorted, terminals)
	sort.Float64s(sorted)

	mean := formulas.Mean(sorted)
	std := formulas.StdDev(sorted)

	bands := make([]PercentileBand, len(percentileLevels))
	for i, lvl := range percentileLevels {
		bands[i] = PercentileBand{
			Percentile: lvl,
			Value:      formulas.Percentile(sorted, float64(lvl)),
		}
	}

	// Empirical tail metrics on terminal returns relative to the initial
	// value. VaR is the loss at the percentile; ES is the mean loss beyond
	// the 95th percentile tail.
	returns := make([]float64, len(sorted))
	for i, v := range sorted {
		returns[i] = v/p.InitialValue - 1
	}

	var95 := -formulas.Percentile(returns, 5)
	var99 := -formulas.Percentile(returns, 1)

	var lossCount, largeLossCount int
	for _, r := range returns {
		if r < 0 {
			lossCount++
		}
		if r < -largeLossThreshold {
			largeLossCount++
		}
	}

	// CVaR comes back as a (negative) tail return; report it as a loss.
	es := -formulas.CalculateCVaR(returns, 0.95)

	// Annualized Sharpe from the pooled simulated daily returns. Zero input
	// volatility reports zero rather than dividing by reconstruction noise.
	_, dailyStd := dailyMoments(p)
	sharpe := 0.0
	if dailyStd > 0 {
		if s := formulas.CalculateSharpeRatio(dailyReturns, 0, formulas.TradingDaysPerYear); s != nil {
			sharpe = *s
		}
	}

	return &Result{
		MeanTerminal:      mean,
		MedianTerminal:    formulas.Percentile(sorted, 50),
		StdDevTerminal:    std,
		TerminalValues:    sorted,
		BestCase:          sorted[len(sorted)-1],
		WorstCase:         sorted[0],
		Percentiles:       bands,
		VaR95:             var95,
		VaR99:             var99,
		ExpectedShortfall: es,
		ProbLoss:          float64(lossCount) / float64(len(returns)),
		ProbLargeLoss:     float64(largeLossCount) / float64(len(returns)),
		MeanMaxDrawdown:   formulas.Mean(drawdowns),
		SharpeRatio:       sharpe,
		NumPaths:          p.NumPaths,
		HorizonDays:       p.HorizonDays,
		Paths:             paths,
	}
}
