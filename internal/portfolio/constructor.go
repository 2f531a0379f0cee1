package portfolio

import (
	"context"
	"fmt"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// Weighting modes
const (
	ModeEqual                = "equal"
	ModeMinimalVariance      = "minimal_variance"
	ModeApproximatedMaxKelly = "approximated_max_kelly"
)

// Modes lists every supported weighting mode
var Modes = []string{ModeEqual, ModeMinimalVariance, ModeApproximatedMaxKelly}

// Constructor turns a price table into a weight vector
// ⭐ SSOT: 포트폴리오 비중 계산 진입점은 여기서만
type Constructor struct {
	config PortfolioConfig
	logger *logger.Logger
}

// PortfolioConfig defines portfolio construction parameters
type PortfolioConfig struct {
	WeightingMode string // "equal", "minimal_variance", "approximated_max_kelly"
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(config PortfolioConfig, log *logger.Logger) (*Constructor, error) {
	if !ValidMode(config.WeightingMode) {
		return nil, fmt.Errorf("unknown weighting mode %q", config.WeightingMode)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Constructor{config: config, logger: log}, nil
}

// ValidMode reports whether mode is a supported weighting mode
func ValidMode(mode string) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Construct computes weights for every ticker in table
func (c *Constructor) Construct(ctx context.Context, table *contracts.PriceTable) (contracts.WeightVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if table == nil || len(table.Tickers) == 0 {
		return nil, fmt.Errorf("empty price table: %w", contracts.ErrInsufficientData)
	}

	var (
		weights contracts.WeightVector
		err     error
	)
	switch c.config.WeightingMode {
	case ModeEqual:
		weights = EqualWeight(table.Tickers)
	case ModeMinimalVariance:
		weights, err = MinimalVariance(table)
	case ModeApproximatedMaxKelly:
		weights, err = ApproximatedMaxKelly(table)
	}
	if err != nil {
		c.logger.WithError(err).WithField("mode", c.config.WeightingMode).Warn("Weight optimisation failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"mode":         c.config.WeightingMode,
		"positions":    len(weights),
		"total_weight": weights.Sum(),
	}).Info("Portfolio constructed")

	return weights, nil
}

// EqualWeight allocates 1/n to each ticker
func EqualWeight(tickers []string) contracts.WeightVector {
	weights := make(contracts.WeightVector, len(tickers))
	if len(tickers) == 0 {
		return weights
	}
	w := 1.0 / float64(len(tickers))
	for _, ticker := range tickers {
		weights[ticker] = w
	}
	return weights
}
