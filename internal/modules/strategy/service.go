// Package strategy orchestrates the analytics pipeline: option chains in,
// surfaces, factors, a ranked universe, optimized weights, and a Monte
// Carlo projection out.
package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/voltsurf/internal/modules/calculations"
	"github.com/aristath/voltsurf/internal/modules/factors"
	"github.com/aristath/voltsurf/internal/modules/history"
	"github.com/aristath/voltsurf/internal/modules/optimization"
	"github.com/aristath/voltsurf/internal/modules/simulation"
	"github.com/aristath/voltsurf/internal/modules/surface"
	"github.com/aristath/voltsurf/internal/modules/universe"
)

// returnsModelTTL is how long an estimated moment set stays cached.
const returnsModelTTL = 24 * time.Hour

// SymbolData packages the per-symbol market inputs for one analysis run.
type SymbolData struct {
	Symbol string                `json:"symbol"`
	Spot   float64               `json:"spot"`
	Chain  []surface.OptionQuote `json:"chain"`
	Closes []float64             `json:"closes"`
}

// Report is the combined output of one full pipeline run.
type Report struct {
	RunID      string                        `json:"run_id"`
	Strategy   string                        `json:"strategy"`
	Bundles    map[string]factors.Bundle     `json:"bundles"`
	Selection  universe.Selection            `json:"selection"`
	Portfolio  *optimization.PortfolioResult `json:"portfolio,omitempty"`
	Simulation *simulation.Result            `json:"simulation,omitempty"`
}

// Service wires the pipeline stages together.
type Service struct {
	builder   *surface.Builder
	engine    *factors.Engine
	selector  *universe.Selector
	optimizer *optimization.Optimizer
	simulator *simulation.Engine

	// Optional supporting infrastructure. When absent, callers must pass
	// return series explicitly and nothing is cached.
	hist  *history.DB
	cache *calculations.Cache

	log zerolog.Logger
}

// NewService creates the pipeline service. hist and cache may be nil.
func NewService(
	builder *surface.Builder,
	engine *factors.Engine,
	selector *universe.Selector,
	optimizer *optimization.Optimizer,
	simulator *simulation.Engine,
	hist *history.DB,
	cache *calculations.Cache,
	log zerolog.Logger,
) *Service {
	return &Service{
		builder:   builder,
		engine:    engine,
		selector:  selector,
		optimizer: optimizer,
		simulator: simulator,
		hist:      hist,
		cache:     cache,
		log:       log.With().Str("component", "strategy").Logger(),
	}
}

// AnalyzeUniverse builds surfaces and factor bundles for every symbol
// concurrently. Per-symbol failures are logged and skipped so one bad
// chain cannot sink the run.
func (s *Service) AnalyzeUniverse(data []SymbolData, now time.Time) map[string]factors.Bundle {
	bundles := make(map[string]factors.Bundle, len(data))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sd := range data {
		wg.Add(1)
		go func(sd SymbolData) {
			defer wg.Done()

			surf, err := s.builder.Build(sd.Symbol, sd.Chain, sd.Spot, sd.Closes, now)
			if err != nil {
				s.log.Warn().Str("symbol", sd.Symbol).Err(err).
					Msg("Skipping symbol, surface build failed")
				return
			}

			bundle := s.engine.Compute(surf)

			mu.Lock()
			bundles[sd.Symbol] = bundle
			mu.Unlock()
		}(sd)
	}
	wg.Wait()

	s.log.Info().
		Int("symbols", len(data)).
		Int("analyzed", len(bundles)).
		Msg("Universe analyzed")

	return bundles
}

// ConstructPortfolio selects the ranked universe for a strategy.
func (s *Service) ConstructPortfolio(bundles map[string]factors.Bundle, cfg universe.StrategyConfig) universe.Selection {
	return s.selector.Select(bundles, cfg)
}

// OptimizePortfolio solves weights for a selection. When returns is nil
// the series are loaded from the history store.
func (s *Service) OptimizePortfolio(sel universe.Selection, cfg universe.StrategyConfig, returns map[string][]float64, lookbackDays int) (*optimization.PortfolioResult, error) {
	symbols := sel.Symbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty selection", optimization.ErrInsufficientData)
	}

	if returns == nil {
		var err error
		returns, err = s.loadReturns(symbols, lookbackDays)
		if err != nil {
			return nil, err
		}
	}

	// An undersized selection cannot reach full investment under the preset
	// cap; relax it to 1/N so the vector stays investable.
	maxPos := cfg.MaxPosition
	if maxPos > 0 && maxPos*float64(len(symbols)) < 1 {
		maxPos = 1.0 / float64(len(symbols))
	}

	c := optimization.Constraints{
		MaxPosition:   maxPos,
		MaxVolatility: cfg.MaxVolatility,
		RiskFreeRate:  s.builder.RiskFreeRate(),
	}

	return s.optimizer.Optimize(symbols, returns, cfg.Objective, c)
}

// SimulatePortfolio projects an optimized portfolio forward. The moment
// model is estimated from the same return series the optimizer used,
// cached when a cache is configured.
func (s *Service) SimulatePortfolio(portfolio *optimization.PortfolioResult, returns map[string][]float64, lookbackDays int, initialValue float64, horizonDays, numPaths int, seed uint64) (*simulation.Result, error) {
	if returns == nil {
		var err error
		returns, err = s.loadReturns(portfolio.Symbols, lookbackDays)
		if err != nil {
			return nil, err
		}
	}

	model, err := s.returnsModel(portfolio.Symbols, returns, lookbackDays)
	if err != nil {
		return nil, err
	}

	return s.simulator.Simulate(simulation.Params{
		MeanReturns:  model.MeanReturns,
		Covariance:   model.Covariance,
		Weights:      portfolio.Weights,
		InitialValue: initialValue,
		HorizonDays:  horizonDays,
		NumPaths:     numPaths,
		Seed:         seed,
	})
}

// Run executes the full pipeline for one strategy.
func (s *Service) Run(data []SymbolData, cfg universe.StrategyConfig, returns map[string][]float64, lookbackDays int, initialValue float64, horizonDays, numPaths int, seed uint64, now time.Time) (*Report, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("strategy", cfg.Name).Logger()

	bundles := s.AnalyzeUniverse(data, now)
	selection := s.ConstructPortfolio(bundles, cfg)

	report := &Report{
		RunID:     runID,
		Strategy:  cfg.Name,
		Bundles:   bundles,
		Selection: selection,
	}

	if len(selection.Candidates) == 0 {
		log.Info().Msg("Run produced an empty selection")
		return report, nil
	}

	portfolio, err := s.OptimizePortfolio(selection, cfg, returns, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("optimize %s: %w", cfg.Name, err)
	}
	report.Portfolio = portfolio

	sim, err := s.SimulatePortfolio(portfolio, returns, lookbackDays, initialValue, horizonDays, numPaths, seed)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", cfg.Name, err)
	}
	report.Simulation = sim

	log.Info().
		Int("selected", len(selection.Candidates)).
		Float64("expected_return", portfolio.ExpectedReturn).
		Float64("volatility", portfolio.Volatility).
		Msg("Run complete")

	return report, nil
}

func (s *Service) loadReturns(symbols []string, lookbackDays int) (map[string][]float64, error) {
	if s.hist == nil {
		return nil, fmt.Errorf("no return series provided and no history store configured")
	}
	return s.hist.GetReturns(symbols, lookbackDays)
}

// returnsModel estimates the annualized moment set, consulting the cache
// first when configured.
func (s *Service) returnsModel(symbols []string, returns map[string][]float64, lookbackDays int) (*optimization.ReturnsModel, error) {
	if s.cache != nil {
		key := calculations.ReturnsModelKey(symbols, lookbackDays)
		var cached optimization.ReturnsModel
		hit, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("Returns model cache read failed")
		} else if hit && len(cached.Symbols) == len(symbols) {
			return &cached, nil
		}
	}

	model, err := optimization.EstimateModel(symbols, returns, false)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		key := calculations.ReturnsModelKey(symbols, lookbackDays)
		if err := s.cache.Set(key, model, returnsModelTTL); err != nil {
			s.log.Warn().Err(err).Msg("Returns model cache write failed")
		}
	}

	return model, nil
}
