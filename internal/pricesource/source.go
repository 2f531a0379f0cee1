// Package pricesource loads aligned closing-price tables from market data
// providers.
package pricesource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// Frequency is the sampling frequency of a price table
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Interval returns the provider interval code (1d, 1wk, 1mo)
func (f Frequency) Interval() (string, error) {
	switch f {
	case Daily:
		return "1d", nil
	case Weekly:
		return "1wk", nil
	case Monthly:
		return "1mo", nil
	default:
		return "", fmt.Errorf("unknown frequency %q", f)
	}
}

// Source loads a PriceTable for a request
// ⭐ SSOT: 가격 데이터 로더 인터페이스는 여기서만 정의
type Source interface {
	Load(ctx context.Context, req Request) (*contracts.PriceTable, error)
}

// Request selects tickers, an inclusive date range and a frequency
type Request struct {
	Tickers   []string  `json:"tickers"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Frequency Frequency `json:"frequency"`
}

// Validate checks the request before any I/O
func (r Request) Validate() error {
	if len(r.Tickers) == 0 {
		return fmt.Errorf("no tickers requested")
	}
	seen := make(map[string]struct{}, len(r.Tickers))
	for _, t := range r.Tickers {
		if t == "" {
			return fmt.Errorf("empty ticker")
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("duplicate ticker %q", t)
		}
		seen[t] = struct{}{}
	}
	if !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("range end %s before start %s", r.To.Format("2006-01-02"), r.From.Format("2006-01-02"))
	}
	if _, err := r.Frequency.Interval(); err != nil {
		return err
	}
	return nil
}

// Hash returns a stable SHA-256 digest of the request, used as a cache key
func (r Request) Hash() string {
	canonical := struct {
		Tickers   []string `json:"tickers"`
		From      string   `json:"from"`
		To        string   `json:"to"`
		Frequency string   `json:"frequency"`
	}{
		Tickers:   r.Tickers,
		From:      r.From.UTC().Format("2006-01-02"),
		To:        r.To.UTC().Format("2006-01-02"),
		Frequency: string(r.Frequency),
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PricePoint is one raw close observation
type PricePoint struct {
	Date  time.Time
	Close float64 // NaN when the provider reported no close
}

// TickerPrices is the raw history of one ticker before alignment
type TickerPrices struct {
	Ticker string
	Points []PricePoint
}
