package pricesource

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// Align turns raw per-ticker histories into a PriceTable.
//
// Per ticker, duplicate dates keep their first observation. Tickers with no
// usable observation are skipped and logged. The remaining tickers are
// joined on date and any row missing a value for some ticker is dropped.
// Column order follows raw.
func Align(raw []TickerPrices, log *logger.Logger) (*contracts.PriceTable, error) {
	if log == nil {
		log = logger.Nop()
	}

	var (
		tickers []string
		byDate  = make(map[string]map[time.Time]float64, len(raw))
	)

	for _, tp := range raw {
		if _, dup := byDate[tp.Ticker]; dup {
			log.WithField("ticker", tp.Ticker).Warn("Duplicate ticker history ignored")
			continue
		}

		closes := make(map[time.Time]float64, len(tp.Points))
		usable := 0
		for _, p := range tp.Points {
			d := dayOf(p.Date)
			if _, seen := closes[d]; seen {
				continue // keep first
			}
			closes[d] = p.Close
			if !math.IsNaN(p.Close) {
				usable++
			}
		}

		if usable == 0 {
			log.WithField("ticker", tp.Ticker).Warn("No price data, ticker skipped")
			continue
		}
		tickers = append(tickers, tp.Ticker)
		byDate[tp.Ticker] = closes
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("no ticker returned price data: %w", contracts.ErrInsufficientData)
	}

	// inner join: dates where every ticker has a close
	var dates []time.Time
	for d, v := range byDate[tickers[0]] {
		if math.IsNaN(v) {
			continue
		}
		complete := true
		for _, t := range tickers[1:] {
			if c, ok := byDate[t][d]; !ok || math.IsNaN(c) {
				complete = false
				break
			}
		}
		if complete {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = byDate[t][d]
		}
		closes[t] = col
	}

	table, err := contracts.NewPriceTable(dates, tickers, closes)
	if err != nil {
		return nil, fmt.Errorf("align prices: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"skipped": len(raw) - len(tickers),
		"rows":    len(dates),
	}).Debug("Prices aligned")

	return table, nil
}

// Resample keeps the last observation of every week or month. Daily
// histories are returned unchanged. points must be ascending.
func Resample(points []PricePoint, freq Frequency) []PricePoint {
	if freq == Daily || len(points) == 0 {
		return points
	}

	bucket := func(t time.Time) [2]int {
		if freq == Weekly {
			y, w := t.ISOWeek()
			return [2]int{y, w}
		}
		return [2]int{t.Year(), int(t.Month())}
	}

	out := make([]PricePoint, 0, len(points))
	for i, p := range points {
		if i+1 < len(points) && bucket(points[i+1].Date) == bucket(p.Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// dayOf truncates t to its calendar date in UTC
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
