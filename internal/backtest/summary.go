package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/metrics"
	"github.com/wonny/portfolio-analyzer/internal/returns"
	"github.com/wonny/portfolio-analyzer/internal/risk"
)

// Summary holds headline statistics of a backtest value series
type Summary struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Periods        int       `json:"periods"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`

	// Performance metrics
	TotalReturn float64 `json:"total_return"`
	CAGR        float64 `json:"cagr"`
	Volatility  float64 `json:"volatility"`   // 연환산, 모표준편차
	SharpeRatio float64 `json:"sharpe_ratio"` // 기간 기준, 연환산 없음
	MaxDrawdown float64 `json:"max_drawdown"` // [-1, 0]

	// Tail risk of per-period portfolio returns
	Risk           risk.VaRResult  `json:"risk"`                      // historical simulation
	ParametricRisk *risk.VaRResult `json:"parametric_risk,omitempty"` // 정규분포 가정, 수익률 2개 미만이면 nil
}

// Summarize computes headline statistics for series, which started from
// capital on start.
func Summarize(series *contracts.PortfolioSeries, capital float64, start time.Time) (*Summary, error) {
	if series == nil || len(series.Values) == 0 {
		return nil, fmt.Errorf("empty portfolio series: %w", contracts.ErrInsufficientData)
	}
	if len(series.Dates) != len(series.Values) {
		return nil, fmt.Errorf("portfolio series has %d dates for %d values", len(series.Dates), len(series.Values))
	}

	// capital is the value at start, before the first return
	path := append([]float64{capital}, series.Values...)
	end := series.Dates[len(series.Dates)-1]

	s := &Summary{
		StartDate:      start,
		EndDate:        end,
		Periods:        len(series.Values),
		InitialCapital: capital,
		FinalValue:     series.Last(),
		TotalReturn:    series.Last()/capital - 1,
		CAGR:           math.NaN(),
		Volatility:     math.NaN(),
	}

	r, err := returns.Simple(path)
	if err != nil {
		return nil, fmt.Errorf("portfolio returns: %w", err)
	}

	if years := end.Sub(start).Hours() / 24 / metrics.DaysPerYear; years > 0 {
		s.CAGR = math.Pow(s.FinalValue/capital, 1/years) - 1

		periodsPerYear := float64(len(r)) / years
		_, std := stat.PopMeanStdDev(r, nil)
		s.Volatility = std * math.Sqrt(periodsPerYear)
	}

	if s.SharpeRatio, err = metrics.Sharpe(path); err != nil {
		return nil, err
	}
	if s.MaxDrawdown, err = metrics.MaxDrawdown(path); err != nil {
		return nil, err
	}
	if s.Risk, err = risk.CalculateVaR(r, risk.DefaultConfidence); err != nil {
		return nil, err
	}
	if len(r) >= 2 {
		pv, err := risk.CalculateParametricVaR(r, risk.DefaultConfidence)
		if err != nil {
			return nil, err
		}
		s.ParametricRisk = &pv
	}

	return s, nil
}

// Summarize computes headline statistics for a series produced by this engine
func (e *Engine) Summarize(series *contracts.PortfolioSeries, capital float64) (*Summary, error) {
	return Summarize(series, capital, e.StartDate())
}

// MarshalJSON encodes undefined statistics (NaN, ±Inf) as null
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		CAGR        *float64 `json:"cagr"`
		Volatility  *float64 `json:"volatility"`
		SharpeRatio *float64 `json:"sharpe_ratio"`
	}{
		plain:       plain(s),
		CAGR:        finiteOrNil(s.CAGR),
		Volatility:  finiteOrNil(s.Volatility),
		SharpeRatio: finiteOrNil(s.SharpeRatio),
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
