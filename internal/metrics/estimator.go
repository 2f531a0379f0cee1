package metrics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/regression"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// Config controls an estimation run
type Config struct {
	Workers int               // 병렬 처리 종목 수
	Ransac  regression.Config // alpha/beta 회귀 설정
}

// DefaultConfig returns the default estimator config
func DefaultConfig() Config {
	return Config{Workers: 4, Ransac: regression.DefaultConfig()}
}

// Estimator computes MetricsRecords for every asset of a price table
// against a fixed benchmark.
// ⭐ SSOT: 종목별 지표 계산은 여기서만
type Estimator struct {
	benchmark contracts.Series
	config    Config
	logger    *logger.Logger
}

// NewEstimator creates an estimator. The benchmark is copied and labelled
// "benchmark"; the caller's series is left untouched.
func NewEstimator(benchmark contracts.Series, cfg Config, log *logger.Logger) (*Estimator, error) {
	if len(benchmark.Dates) != len(benchmark.Values) {
		return nil, fmt.Errorf("benchmark has %d dates for %d values", len(benchmark.Dates), len(benchmark.Values))
	}
	for i := 1; i < len(benchmark.Dates); i++ {
		if !benchmark.Dates[i].After(benchmark.Dates[i-1]) {
			return nil, fmt.Errorf("benchmark dates not strictly ascending at row %d", i)
		}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Estimator{
		benchmark: benchmark.AsBenchmark(),
		config:    cfg,
		logger:    log,
	}, nil
}

// Benchmark returns the estimator's benchmark series
func (e *Estimator) Benchmark() contracts.Series {
	return e.benchmark
}

// Estimate computes every metric for every ticker in table. Assets are
// processed in parallel; an asset that cannot be evaluated gets NaN entries
// and never affects the others. Only context cancellation aborts the call.
func (e *Estimator) Estimate(ctx context.Context, table *contracts.PriceTable) (*contracts.MetricsReport, error) {
	if table == nil {
		return nil, fmt.Errorf("nil price table: %w", contracts.ErrInsufficientData)
	}

	tickers := append([]string(nil), table.Tickers...)
	records := make([]contracts.MetricsRecord, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series, err := table.Series(ticker)
			if err != nil {
				return err
			}
			records[i] = e.estimateAsset(series)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("estimate metrics: %w", err)
	}

	report := &contracts.MetricsReport{
		Tickers: tickers,
		Records: make(map[string]contracts.MetricsRecord, len(tickers)),
	}
	for i, ticker := range tickers {
		report.Records[ticker] = records[i]
	}

	e.logger.WithFields(map[string]interface{}{
		"assets":  len(tickers),
		"workers": e.config.Workers,
	}).Info("Metrics estimated")

	return report, nil
}

// estimateAsset computes one asset's record. Each metric fails on its own.
func (e *Estimator) estimateAsset(series contracts.Series) contracts.MetricsRecord {
	log := e.logger.WithField("ticker", series.Name)
	rec := contracts.NaNRecord()

	if series.Len() < 2 {
		log.Debug("Fewer than 2 observations, metrics undefined")
		return rec
	}

	keep := func(metric string, v float64, err error) {
		if err != nil {
			log.WithError(err).WithField("metric", metric).Debug("Metric undefined")
			return
		}
		rec[metric] = v
	}

	v, err := Correlation(series, e.benchmark)
	keep(contracts.MetricCorrelation, v, err)

	v, err = AverageReturn(series)
	keep(contracts.MetricAverageReturn, v, err)

	ab, err := AlphaBeta(series, e.benchmark, e.config.Ransac)
	keep(contracts.MetricAlpha, ab.Alpha, err)
	keep(contracts.MetricBeta, ab.Beta, err)
	if err == nil && ab.Degenerate {
		log.WithFields(map[string]interface{}{
			"mean_benchmark": ab.MeanBenchmark,
			"beta":           ab.Beta,
			"slope":          ab.Slope,
		}).Warn("Mean benchmark log-return is near zero, beta is unstable")
	}

	v, err = Sharpe(series.Values)
	keep(contracts.MetricSharpe, v, err)

	v, err = MaxDrawdown(series.Values)
	keep(contracts.MetricMaxDrawdown, v, err)

	return rec
}
