// Package analysis ties loaders, metrics, optimizers and the backtest engine
// into the runs exposed by the CLI and the HTTP API.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/portfolio-analyzer/internal/analysisconfig"
	"github.com/wonny/portfolio-analyzer/internal/backtest"
	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/metrics"
	"github.com/wonny/portfolio-analyzer/internal/portfolio"
	"github.com/wonny/portfolio-analyzer/internal/pricesource"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// Orchestrator coordinates one analysis run
// ⭐ SSOT: 분석 실행 조율은 여기서만
type Orchestrator struct {
	source  pricesource.Source
	workers int
	logger  *logger.Logger
}

// NewOrchestrator creates a new orchestrator. workers bounds parallel
// per-asset metric estimation.
func NewOrchestrator(source pricesource.Source, workers int, log *logger.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{source: source, workers: workers, logger: log}
}

// Dataset is the loaded input of a run
type Dataset struct {
	Assets    *contracts.PriceTable
	Benchmark *contracts.Series // nil when not requested
	Skipped   []string          // tickers the loader returned nothing for
}

// MetricsResult holds a metrics run
type MetricsResult struct {
	ConfigHash string                   `json:"config_hash"`
	Report     *contracts.MetricsReport `json:"report"`
	Skipped    []string                 `json:"skipped,omitempty"`
	Duration   time.Duration            `json:"duration"`
}

// OptimizeResult holds an optimisation run
type OptimizeResult struct {
	ConfigHash string                 `json:"config_hash"`
	Objective  string                 `json:"objective"`
	Weights    contracts.WeightVector `json:"weights"`
	Skipped    []string               `json:"skipped,omitempty"`
}

// BacktestResult holds a backtest run
type BacktestResult struct {
	ConfigHash string                     `json:"config_hash"`
	Weights    contracts.WeightVector     `json:"weights"`
	Series     *contracts.PortfolioSeries `json:"series"`
	Summary    *backtest.Summary          `json:"summary"`
	Skipped    []string                   `json:"skipped,omitempty"`
}

// Load fetches prices for cfg. With withBenchmark the benchmark is loaded in
// the same aligned table and split off.
func (o *Orchestrator) Load(ctx context.Context, cfg *analysisconfig.Config, withBenchmark bool) (*Dataset, error) {
	req := cfg.AssetRequest()
	if withBenchmark {
		req = cfg.PriceRequest()
	}

	table, err := o.source.Load(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	ds := &Dataset{}
	if withBenchmark {
		bench, err := table.Series(cfg.Benchmark)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s returned no data: %w", cfg.Benchmark, contracts.ErrInsufficientData)
		}
		ds.Benchmark = &bench
	}

	var present []string
	for _, t := range cfg.Tickers {
		if _, ok := table.Column(t); ok {
			present = append(present, t)
		} else {
			ds.Skipped = append(ds.Skipped, t)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("no requested ticker returned data: %w", contracts.ErrInsufficientData)
	}

	if ds.Assets, err = table.Select(present...); err != nil {
		return nil, err
	}

	if len(ds.Skipped) > 0 {
		o.logger.WithField("skipped", ds.Skipped).Warn("Some tickers returned no data")
	}
	return ds, nil
}

// Metrics estimates every metric for cfg's tickers against its benchmark
func (o *Orchestrator) Metrics(ctx context.Context, cfg *analysisconfig.Config) (*MetricsResult, error) {
	start := time.Now()
	hash, err := analysisconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	ds, err := o.Load(ctx, cfg, true)
	if err != nil {
		return nil, err
	}

	est, err := metrics.NewEstimator(*ds.Benchmark, cfg.MetricsConfig(o.workers), o.logger)
	if err != nil {
		return nil, err
	}
	report, err := est.Estimate(ctx, ds.Assets)
	if err != nil {
		return nil, err
	}

	return &MetricsResult{
		ConfigHash: hash,
		Report:     report,
		Skipped:    ds.Skipped,
		Duration:   time.Since(start),
	}, nil
}

// Optimize computes weights with the given objective (a weighting mode).
// An empty objective uses cfg's weighting mode.
func (o *Orchestrator) Optimize(ctx context.Context, cfg *analysisconfig.Config, objective string) (*OptimizeResult, error) {
	if objective == "" {
		objective = cfg.Portfolio.WeightingMode
	}
	constructor, err := portfolio.NewConstructor(portfolio.PortfolioConfig{WeightingMode: objective}, o.logger)
	if err != nil {
		return nil, err
	}
	hash, err := analysisconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	ds, err := o.Load(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	weights, err := constructor.Construct(ctx, ds.Assets)
	if err != nil {
		return nil, err
	}

	return &OptimizeResult{ConfigHash: hash, Objective: objective, Weights: weights, Skipped: ds.Skipped}, nil
}

// Backtest runs cfg's portfolio: explicit weights when given, otherwise the
// weights of cfg's weighting mode.
func (o *Orchestrator) Backtest(ctx context.Context, cfg *analysisconfig.Config) (*BacktestResult, error) {
	hash, err := analysisconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	ds, err := o.Load(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	weights := contracts.WeightVector(cfg.Portfolio.Weights)
	if len(weights) == 0 {
		constructor, err := portfolio.NewConstructor(portfolio.PortfolioConfig{WeightingMode: cfg.Portfolio.WeightingMode}, o.logger)
		if err != nil {
			return nil, err
		}
		if weights, err = constructor.Construct(ctx, ds.Assets); err != nil {
			return nil, err
		}
	}

	engine, err := backtest.NewEngine(weights, ds.Assets, o.logger)
	if err != nil {
		return nil, err
	}
	series, err := engine.Run(cfg.Backtest.Capital)
	if err != nil {
		return nil, err
	}
	summary, err := engine.Summarize(series, cfg.Backtest.Capital)
	if err != nil {
		return nil, err
	}

	return &BacktestResult{
		ConfigHash: hash,
		Weights:    engine.Weights(),
		Series:     series,
		Summary:    summary,
		Skipped:    ds.Skipped,
	}, nil
}
