// Package backtest compounds a fixed-weight portfolio over a price table.
package backtest

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/returns"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// DefaultCapital is the starting capital when none is given
const DefaultCapital = 100.0

// PortfolioLabel labels every backtest value series
const PortfolioLabel = "portfolio"

// Engine runs a buy-and-hold backtest of one weight vector
// ⭐ SSOT: 백테스트 수익 복리 계산은 여기서만
type Engine struct {
	weights contracts.WeightVector
	table   *contracts.PriceTable
	logger  *logger.Logger
}

// NewEngine creates an engine for weights over table. The table is
// restricted to the weighted tickers; a weight for a ticker the table does
// not carry is an error.
func NewEngine(weights contracts.WeightVector, table *contracts.PriceTable, log *logger.Logger) (*Engine, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("empty weight vector")
	}
	if table == nil {
		return nil, fmt.Errorf("nil price table: %w", contracts.ErrInsufficientData)
	}
	for ticker, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight for %s is not finite: %w", ticker, contracts.ErrArithmetic)
		}
	}

	restricted, err := table.Select(weights.Tickers()...)
	if err != nil {
		// 가중치 종목이 로딩되지 않음 (loader가 skip)
		return nil, fmt.Errorf("restrict price table: %v: %w", err, contracts.ErrInsufficientData)
	}
	if log == nil {
		log = logger.Nop()
	}

	w := make(contracts.WeightVector, len(weights))
	for k, v := range weights {
		w[k] = v
	}

	return &Engine{weights: w, table: restricted, logger: log}, nil
}

// Run compounds the portfolio from capital.
//
// Each period's aggregate is Σ wᵢ·(1+rᵢ). The log aggregates are summed
// cumulatively and exponentiated, so value[t] = capital·Π agg[1..t]. The
// first row has no return and is dropped. Any aggregate ≤ 0 aborts with
// ErrArithmetic.
func (e *Engine) Run(capital float64) (*contracts.PortfolioSeries, error) {
	if capital <= 0 || math.IsNaN(capital) || math.IsInf(capital, 0) {
		return nil, fmt.Errorf("starting capital %v must be positive", capital)
	}

	m, err := returns.Matrix(e.table)
	if err != nil {
		return nil, fmt.Errorf("backtest returns: %w", err)
	}
	periods, _ := m.Dims()

	weights := make([]float64, len(e.table.Tickers))
	for j, ticker := range e.table.Tickers {
		weights[j] = e.weights[ticker]
	}

	logAgg := make([]float64, periods)
	for t := 0; t < periods; t++ {
		agg := 0.0
		for j, w := range weights {
			agg += w * (1 + m.At(t, j))
		}
		if math.IsNaN(agg) || agg <= 0 {
			return nil, fmt.Errorf("period %s aggregate %v: %w",
				e.table.Dates[t+1].Format("2006-01-02"), agg, contracts.ErrArithmetic)
		}
		logAgg[t] = math.Log(agg)
	}

	values := make([]float64, periods)
	floats.CumSum(values, logAgg)
	for t := range values {
		values[t] = capital * math.Exp(values[t])
	}

	series := &contracts.PortfolioSeries{
		Label:  PortfolioLabel,
		Dates:  append([]time.Time(nil), e.table.Dates[1:]...),
		Values: values,
	}

	e.logger.WithFields(map[string]interface{}{
		"assets":      len(weights),
		"periods":     periods,
		"capital":     capital,
		"final_value": series.Last(),
		"weight_sum":  e.weights.Sum(),
	}).Info("Backtest completed")

	return series, nil
}

// StartDate is the date the starting capital is invested
func (e *Engine) StartDate() time.Time {
	if e.table.Len() == 0 {
		return time.Time{}
	}
	return e.table.Dates[0]
}

// Weights returns a copy of the engine's weights
func (e *Engine) Weights() contracts.WeightVector {
	w := make(contracts.WeightVector, len(e.weights))
	for k, v := range e.weights {
		w[k] = v
	}
	return w
}
