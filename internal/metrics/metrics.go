// Package metrics computes per-asset performance metrics against a benchmark.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/regression"
	"github.com/wonny/portfolio-analyzer/internal/returns"
)

// DaysPerYear is the calendar-day count used for annualisation
const DaysPerYear = 365.0

// betaDegenerateEpsilon: |mean benchmark log-return| below this makes beta unstable
const betaDegenerateEpsilon = 1e-8

// Correlation returns the Pearson correlation of simple returns of asset and
// benchmark over the periods both series cover. Fewer than 2 overlapping
// returns give NaN.
func Correlation(asset, benchmark contracts.Series) (float64, error) {
	x, y, err := pairedReturns(asset, benchmark, returns.Simple)
	if err != nil {
		return math.NaN(), err
	}
	if len(x) < 2 {
		return math.NaN(), fmt.Errorf("%d overlapping returns: %w", len(x), contracts.ErrInsufficientData)
	}
	return stat.Correlation(x, y, nil), nil
}

// AverageReturn is the annualised geometric mean return:
// exp(mean(log(1+r)))^(365/freq) - 1, freq being the day gap between the
// first two observations.
func AverageReturn(s contracts.Series) (float64, error) {
	lr, err := returns.Log(s.Values)
	if err != nil {
		return math.NaN(), err
	}
	if len(s.Dates) < 2 {
		return math.NaN(), fmt.Errorf("series %s has no dates: %w", s.Name, contracts.ErrInsufficientData)
	}

	freq := s.Dates[1].Sub(s.Dates[0]).Hours() / 24
	if freq <= 0 {
		return math.NaN(), fmt.Errorf("non-positive observation gap %v days: %w", freq, contracts.ErrArithmetic)
	}
	yearEvents := DaysPerYear / freq

	periodic := math.Exp(stat.Mean(lr, nil))
	return math.Pow(periodic, yearEvents) - 1, nil
}

// AlphaBetaResult holds the robust regression outcome
type AlphaBetaResult struct {
	Alpha         float64
	Beta          float64
	Slope         float64 // raw RANSAC slope, for reference
	MeanBenchmark float64
	Degenerate    bool // mean benchmark log-return ≈ 0, beta unstable
}

// AlphaBeta regresses asset log-returns (y) on benchmark log-returns (x) with
// RANSAC. Alpha is the intercept; beta is (mean(y) - alpha) / mean(x).
func AlphaBeta(asset, benchmark contracts.Series, cfg regression.Config) (AlphaBetaResult, error) {
	nan := AlphaBetaResult{Alpha: math.NaN(), Beta: math.NaN(), Slope: math.NaN(), MeanBenchmark: math.NaN()}

	y, x, err := pairedReturns(asset, benchmark, returns.Log)
	if err != nil {
		return nan, err
	}

	fit, err := regression.Fit(x, y, cfg)
	if err != nil {
		return nan, fmt.Errorf("robust regression: %w", err)
	}

	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)

	return AlphaBetaResult{
		Alpha:         fit.Intercept,
		Beta:          (meanY - fit.Intercept) / meanX,
		Slope:         fit.Slope,
		MeanBenchmark: meanX,
		Degenerate:    math.Abs(meanX) < betaDegenerateEpsilon,
	}, nil
}

// Sharpe is mean / population standard deviation of simple returns, with no
// risk-free rate and no annualisation. A zero-variance series yields NaN or
// ±Inf, never an error.
func Sharpe(prices []float64) (float64, error) {
	r, err := returns.Simple(prices)
	if err != nil {
		return math.NaN(), err
	}
	mean, std := stat.PopMeanStdDev(r, nil)
	return mean / std, nil
}

// MaxDrawdown returns the most negative (price - running peak) / running peak.
// The running peak starts at 0, so the first price is always a new peak.
// The result lies in [-1, 0].
func MaxDrawdown(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return math.NaN(), fmt.Errorf("empty price series: %w", contracts.ErrInsufficientData)
	}

	peak, worst := 0.0, 0.0
	for i, p := range prices {
		if math.IsNaN(p) || p <= 0 {
			return math.NaN(), fmt.Errorf("price %v at row %d is not positive: %w", p, i, contracts.ErrArithmetic)
		}
		if p > peak {
			peak = p
		}
		if dd := (p - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst, nil
}

// pairedReturns computes returns on each series' own dates, then keeps the
// periods present in both. Both date slices must be ascending.
func pairedReturns(a, b contracts.Series, fn func([]float64) ([]float64, error)) ([]float64, []float64, error) {
	for _, s := range []contracts.Series{a, b} {
		if len(s.Dates) != len(s.Values) {
			return nil, nil, fmt.Errorf("series %s has %d dates for %d values", s.Name, len(s.Dates), len(s.Values))
		}
	}

	ra, err := fn(a.Values)
	if err != nil {
		return nil, nil, fmt.Errorf("%s returns: %w", a.Name, err)
	}
	rb, err := fn(b.Values)
	if err != nil {
		return nil, nil, fmt.Errorf("%s returns: %w", b.Name, err)
	}

	// return k belongs to Dates[k+1]
	da, db := a.Dates[1:], b.Dates[1:]
	xa := make([]float64, 0, len(ra))
	xb := make([]float64, 0, len(ra))
	for i, j := 0, 0; i < len(da) && j < len(db); {
		switch {
		case da[i].Equal(db[j]):
			xa = append(xa, ra[i])
			xb = append(xb, rb[j])
			i++
			j++
		case da[i].Before(db[j]):
			i++
		default:
			j++
		}
	}
	return xa, xb, nil
}
