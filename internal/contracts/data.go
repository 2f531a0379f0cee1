package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// BenchmarkLabel is the column label every benchmark series carries
const BenchmarkLabel = "benchmark"

// PriceTable is a time-ascending table of closing prices, one column per ticker
// ⭐ SSOT: 가격 테이블 구조는 여기서만 정의
type PriceTable struct {
	Dates   []time.Time          `json:"dates"`
	Tickers []string             `json:"tickers"` // 컬럼 순서
	Closes  map[string][]float64 `json:"closes"`
}

// NewPriceTable builds a validated PriceTable. Columns are copied, so the
// caller's slices are never aliased.
func NewPriceTable(dates []time.Time, tickers []string, closes map[string][]float64) (*PriceTable, error) {
	t := &PriceTable{
		Dates:   append([]time.Time(nil), dates...),
		Tickers: append([]string(nil), tickers...),
		Closes:  make(map[string][]float64, len(tickers)),
	}

	for _, ticker := range tickers {
		col, ok := closes[ticker]
		if !ok {
			return nil, fmt.Errorf("missing column for ticker %q", ticker)
		}
		t.Closes[ticker] = append([]float64(nil), col...)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the table invariants: unique tickers, equal column lengths,
// strictly ascending dates and no NaN values.
func (t *PriceTable) Validate() error {
	seen := make(map[string]struct{}, len(t.Tickers))
	for _, ticker := range t.Tickers {
		if _, dup := seen[ticker]; dup {
			return fmt.Errorf("duplicate ticker %q", ticker)
		}
		seen[ticker] = struct{}{}

		col, ok := t.Closes[ticker]
		if !ok {
			return fmt.Errorf("missing column for ticker %q", ticker)
		}
		if len(col) != len(t.Dates) {
			return fmt.Errorf("column %q has %d rows, want %d", ticker, len(col), len(t.Dates))
		}
		for i, v := range col {
			if math.IsNaN(v) {
				return fmt.Errorf("column %q row %d is NaN", ticker, i)
			}
		}
	}

	for i := 1; i < len(t.Dates); i++ {
		if !t.Dates[i].After(t.Dates[i-1]) {
			return fmt.Errorf("dates not strictly ascending at row %d", i)
		}
	}
	return nil
}

// Len returns the number of rows
func (t *PriceTable) Len() int {
	return len(t.Dates)
}

// Column returns the price column for ticker
func (t *PriceTable) Column(ticker string) ([]float64, bool) {
	col, ok := t.Closes[ticker]
	return col, ok
}

// Series returns a single ticker as a Series
func (t *PriceTable) Series(ticker string) (Series, error) {
	col, ok := t.Closes[ticker]
	if !ok {
		return Series{}, fmt.Errorf("unknown ticker %q", ticker)
	}
	return Series{Name: ticker, Dates: t.Dates, Values: col}, nil
}

// Select restricts the table to the given tickers, in the given order
func (t *PriceTable) Select(tickers ...string) (*PriceTable, error) {
	closes := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		col, ok := t.Closes[ticker]
		if !ok {
			return nil, fmt.Errorf("unknown ticker %q", ticker)
		}
		closes[ticker] = col
	}
	return NewPriceTable(t.Dates, tickers, closes)
}

// Series is a single named price (or value) column indexed by time
type Series struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Values)
}

// AsBenchmark returns a copy labelled as the benchmark. The receiver is
// never modified.
func (s Series) AsBenchmark() Series {
	return Series{
		Name:   BenchmarkLabel,
		Dates:  append([]time.Time(nil), s.Dates...),
		Values: append([]float64(nil), s.Values...),
	}
}

// WeightVector maps ticker to allocation. Weights may be negative (short).
type WeightVector map[string]float64

// Sum returns the total allocation
func (w WeightVector) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Tickers returns the tickers in sorted order
func (w WeightVector) Tickers() []string {
	tickers := make([]string, 0, len(w))
	for ticker := range w {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// PortfolioSeries is the compounded value of a weighted portfolio over time
type PortfolioSeries struct {
	Label  string      `json:"label"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Last returns the final portfolio value, or NaN for an empty series
func (p *PortfolioSeries) Last() float64 {
	if len(p.Values) == 0 {
		return math.NaN()
	}
	return p.Values[len(p.Values)-1]
}
