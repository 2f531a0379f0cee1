// Package returns converts price series into period-over-period returns.
package returns

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// Simple returns p[t]/p[t-1] - 1 for t >= 1. The first period has no return,
// so the result is one element shorter than prices.
func Simple(prices []float64) ([]float64, error) {
	if err := check(prices); err != nil {
		return nil, err
	}

	out := make([]float64, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		out[t-1] = prices[t]/prices[t-1] - 1
	}
	return out, nil
}

// Log returns ln(p[t]/p[t-1]) for t >= 1
func Log(prices []float64) ([]float64, error) {
	if err := check(prices); err != nil {
		return nil, err
	}

	out := make([]float64, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		out[t-1] = math.Log(prices[t] / prices[t-1])
	}
	return out, nil
}

// Matrix builds the (rows-1) × assets matrix of simple returns for table,
// columns in table.Tickers order.
func Matrix(table *contracts.PriceTable) (*mat.Dense, error) {
	if len(table.Tickers) == 0 {
		return nil, fmt.Errorf("empty price table: %w", contracts.ErrInsufficientData)
	}
	if table.Len() < 2 {
		return nil, insufficient(table.Len())
	}

	m := mat.NewDense(table.Len()-1, len(table.Tickers), nil)
	for j, ticker := range table.Tickers {
		col, _ := table.Column(ticker)
		r, err := Simple(col)
		if err != nil {
			return nil, fmt.Errorf("returns for %s: %w", ticker, err)
		}
		m.SetCol(j, r)
	}
	return m, nil
}

// check rejects series that cannot produce a defined return
func check(prices []float64) error {
	if len(prices) < 2 {
		return insufficient(len(prices))
	}
	for i, p := range prices {
		if math.IsNaN(p) || p <= 0 {
			return fmt.Errorf("price %v at row %d is not positive: %w", p, i, contracts.ErrArithmetic)
		}
	}
	return nil
}

func insufficient(n int) error {
	return fmt.Errorf("need at least 2 prices, got %d: %w: %w", n, contracts.ErrInsufficientData, contracts.ErrArithmetic)
}
