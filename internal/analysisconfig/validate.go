package analysisconfig

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/portfolio-analyzer/internal/portfolio"
)

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// weightSumTolerance for explicit portfolio.weights
const weightSumTolerance = 1e-6

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Universe ===
	if len(cfg.Tickers) == 0 {
		return ValidationError{"tickers", "at least one ticker required"}
	}
	seen := make(map[string]struct{}, len(cfg.Tickers))
	for i, t := range cfg.Tickers {
		if t == "" {
			return ValidationError{fmt.Sprintf("tickers[%d]", i), "empty ticker"}
		}
		if _, dup := seen[t]; dup {
			return ValidationError{fmt.Sprintf("tickers[%d]", i), fmt.Sprintf("duplicate ticker %q", t)}
		}
		seen[t] = struct{}{}
	}
	if cfg.Benchmark == "" {
		return ValidationError{"benchmark", "required"}
	}

	// === Range ===
	from, err := time.Parse(DateLayout, cfg.From)
	if err != nil {
		return ValidationError{"from", "must be YYYY-MM-DD"}
	}
	if cfg.To != "" {
		to, err := time.Parse(DateLayout, cfg.To)
		if err != nil {
			return ValidationError{"to", "must be YYYY-MM-DD"}
		}
		if !from.Before(to) {
			return ValidationError{"to", "must be after from"}
		}
	}
	if _, err := cfg.Frequency.Interval(); err != nil {
		return ValidationError{"frequency", "must be daily, weekly or monthly"}
	}

	// === Portfolio ===
	if !portfolio.ValidMode(cfg.Portfolio.WeightingMode) {
		return ValidationError{"portfolio.weighting_mode", fmt.Sprintf("unknown mode %q", cfg.Portfolio.WeightingMode)}
	}
	if len(cfg.Portfolio.Weights) > 0 {
		var sum float64
		for ticker, w := range cfg.Portfolio.Weights {
			if _, ok := seen[ticker]; !ok {
				return ValidationError{"portfolio.weights", fmt.Sprintf("%q is not in tickers", ticker)}
			}
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return ValidationError{"portfolio.weights", fmt.Sprintf("weight for %q is not finite", ticker)}
			}
			sum += w
		}
		if math.Abs(sum-1) > weightSumTolerance {
			return ValidationError{"portfolio.weights", fmt.Sprintf("must sum to 1, got %.6f", sum)}
		}
	}

	// === Backtest ===
	if cfg.Backtest.Capital <= 0 {
		return ValidationError{"backtest.capital", "must be > 0"}
	}

	// === Ransac ===
	if cfg.Ransac.MaxTrials < 0 {
		return ValidationError{"ransac.max_trials", "must be >= 0"}
	}
	if cfg.Ransac.ResidualThreshold < 0 {
		return ValidationError{"ransac.residual_threshold", "must be >= 0"}
	}

	return nil
}
