// Package analysisconfig loads the YAML file describing one analysis run.
package analysisconfig

import (
	"time"

	"github.com/wonny/portfolio-analyzer/internal/metrics"
	"github.com/wonny/portfolio-analyzer/internal/portfolio"
	"github.com/wonny/portfolio-analyzer/internal/pricesource"
	"github.com/wonny/portfolio-analyzer/internal/regression"
)

// DateLayout is the date format used in analysis files
const DateLayout = "2006-01-02"

// Defaults applied to omitted fields
const (
	DefaultFrom          = "2000-01-01"
	DefaultFrequency     = pricesource.Weekly
	DefaultWeightingMode = portfolio.ModeMinimalVariance
	DefaultCapital       = 100.0
)

// Config는 분석 실행 한 건의 전체 설정
type Config struct {
	Name      string                `yaml:"name" json:"name"`
	Tickers   []string              `yaml:"tickers" json:"tickers"`
	Benchmark string                `yaml:"benchmark" json:"benchmark"`
	From      string                `yaml:"from" json:"from"` // YYYY-MM-DD
	To        string                `yaml:"to" json:"to"`     // YYYY-MM-DD, 비우면 오늘
	Frequency pricesource.Frequency `yaml:"frequency" json:"frequency"`
	Portfolio Portfolio             `yaml:"portfolio" json:"portfolio"`
	Backtest  Backtest              `yaml:"backtest" json:"backtest"`
	Ransac    Ransac                `yaml:"ransac" json:"ransac"`
}

// Portfolio 비중 산출 설정
type Portfolio struct {
	WeightingMode string             `yaml:"weighting_mode" json:"weighting_mode"` // equal, minimal_variance, approximated_max_kelly
	Weights       map[string]float64 `yaml:"weights" json:"weights"`               // 지정 시 최적화 대신 사용
}

// Backtest 백테스트 설정
type Backtest struct {
	Capital float64 `yaml:"capital" json:"capital"`
}

// Ransac alpha/beta 회귀 설정 (0 = 기본값)
type Ransac struct {
	MaxTrials         int     `yaml:"max_trials" json:"max_trials"`
	ResidualThreshold float64 `yaml:"residual_threshold" json:"residual_threshold"`
	Seed              int64   `yaml:"seed" json:"seed"`
}

// Defaults are process-wide fallbacks (from the environment) for fields an
// analysis file leaves out
type Defaults struct {
	Capital float64
	Ransac  Ransac
}

// Inherit copies d into every zero field it covers
func (c *Config) Inherit(d Defaults) {
	if c.Backtest.Capital == 0 {
		c.Backtest.Capital = d.Capital
	}
	if c.Ransac.MaxTrials == 0 {
		c.Ransac.MaxTrials = d.Ransac.MaxTrials
	}
	if c.Ransac.ResidualThreshold == 0 {
		c.Ransac.ResidualThreshold = d.Ransac.ResidualThreshold
	}
	if c.Ransac.Seed == 0 {
		c.Ransac.Seed = d.Ransac.Seed
	}
}

// applyDefaults fills omitted fields
func (c *Config) applyDefaults() {
	if c.From == "" {
		c.From = DefaultFrom
	}
	if c.Frequency == "" {
		c.Frequency = DefaultFrequency
	}
	if c.Portfolio.WeightingMode == "" {
		c.Portfolio.WeightingMode = DefaultWeightingMode
	}
	if c.Backtest.Capital == 0 {
		c.Backtest.Capital = DefaultCapital
	}
}

// FromDate returns the parsed start date
func (c *Config) FromDate() time.Time {
	t, _ := time.Parse(DateLayout, c.From)
	return t
}

// ToDate returns the parsed end date, zero when open-ended
func (c *Config) ToDate() time.Time {
	if c.To == "" {
		return time.Time{}
	}
	t, _ := time.Parse(DateLayout, c.To)
	return t
}

// PriceRequest builds the loader request for tickers plus the benchmark
func (c *Config) PriceRequest() pricesource.Request {
	tickers := append([]string(nil), c.Tickers...)
	if c.Benchmark != "" && !contains(tickers, c.Benchmark) {
		tickers = append(tickers, c.Benchmark)
	}
	return pricesource.Request{
		Tickers:   tickers,
		From:      c.FromDate(),
		To:        c.ToDate(),
		Frequency: c.Frequency,
	}
}

// AssetRequest builds the loader request for the tickers alone. Optimisation
// and backtests use it so the benchmark's calendar does not trim rows.
func (c *Config) AssetRequest() pricesource.Request {
	return pricesource.Request{
		Tickers:   append([]string(nil), c.Tickers...),
		From:      c.FromDate(),
		To:        c.ToDate(),
		Frequency: c.Frequency,
	}
}

// RegressionConfig returns the RANSAC settings
func (c *Config) RegressionConfig() regression.Config {
	return regression.Config{
		MaxTrials:         c.Ransac.MaxTrials,
		ResidualThreshold: c.Ransac.ResidualThreshold,
		Seed:              c.Ransac.Seed,
	}
}

// MetricsConfig returns the estimator config with the given worker count
func (c *Config) MetricsConfig(workers int) metrics.Config {
	return metrics.Config{Workers: workers, Ransac: c.RegressionConfig()}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
