// Package regression provides a consensus-sampling (RANSAC) line fit that
// tolerates outlier observations.
package regression

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// Defaults
const (
	DefaultMaxTrials  = 100
	DefaultMinSamples = 2

	// MAD가 0일 때(값 절반 이상 동일) 부동소수 오차 허용
	minThreshold = 1e-12
)

// ErrNoConsensus is returned when no trial produced a usable model
var ErrNoConsensus = errors.New("no valid consensus model")

// Config controls a RANSAC fit. Zero values select defaults.
type Config struct {
	MaxTrials         int     // 샘플링 반복 횟수
	MinSamples        int     // 모델당 최소 샘플 수 (>= 2)
	ResidualThreshold float64 // 0 이면 MAD(y)
	Seed              int64   // 0 이면 시간 기반
}

// DefaultConfig returns the default RANSAC config
func DefaultConfig() Config {
	return Config{MaxTrials: DefaultMaxTrials, MinSamples: DefaultMinSamples}
}

// Result is a fitted line plus its consensus set
type Result struct {
	Intercept float64
	Slope     float64
	Inliers   []bool
	NInliers  int
	Threshold float64
}

// Fit estimates y = Intercept + Slope·x robustly.
//
// Each trial draws MinSamples distinct points, fits them by least squares and
// counts the points whose absolute residual is within the threshold. The model
// with the most inliers wins (ties go to the lower inlier SSE), and the final
// line is an ordinary least squares refit on that model's inliers.
//
// Every call owns its random source, so concurrent fits never share state.
func Fit(x, y []float64, cfg Config) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("x has %d points, y has %d", len(x), len(y))
	}
	cfg = cfg.withDefaults()
	if len(x) < cfg.MinSamples {
		return nil, fmt.Errorf("need at least %d points, got %d: %w",
			cfg.MinSamples, len(x), contracts.ErrInsufficientData)
	}
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			return nil, fmt.Errorf("non-finite observation at %d: %w", i, contracts.ErrArithmetic)
		}
	}

	threshold := cfg.ResidualThreshold
	if threshold <= 0 {
		mad, err := medianAbsoluteDeviation(y)
		if err != nil {
			return nil, err
		}
		threshold = math.Max(mad, minThreshold)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var (
		best    []bool
		bestN   = -1
		bestSSE = math.Inf(1)
		sampleX = make([]float64, cfg.MinSamples)
		sampleY = make([]float64, cfg.MinSamples)
		mask    = make([]bool, len(x))
		n       = len(x)
	)

	for trial := 0; trial < cfg.MaxTrials; trial++ {
		idx := rng.Perm(n)[:cfg.MinSamples]
		for k, i := range idx {
			sampleX[k] = x[i]
			sampleY[k] = y[i]
		}
		if degenerate(sampleX) {
			continue
		}

		a, b := stat.LinearRegression(sampleX, sampleY, nil, false)
		if !finite(a) || !finite(b) {
			continue
		}

		count, sse := 0, 0.0
		for i := range x {
			r := y[i] - (a + b*x[i])
			mask[i] = math.Abs(r) <= threshold
			if mask[i] {
				count++
				sse += r * r
			}
		}

		if count > bestN || (count == bestN && sse < bestSSE) {
			bestN, bestSSE = count, sse
			best = append(best[:0], mask...)
		}
	}

	if bestN < cfg.MinSamples {
		return nil, fmt.Errorf("%d trials: %w", cfg.MaxTrials, ErrNoConsensus)
	}

	inX := make([]float64, 0, bestN)
	inY := make([]float64, 0, bestN)
	for i, ok := range best {
		if ok {
			inX = append(inX, x[i])
			inY = append(inY, y[i])
		}
	}
	if degenerate(inX) {
		return nil, fmt.Errorf("inliers share a single x value: %w", ErrNoConsensus)
	}

	intercept, slope := stat.LinearRegression(inX, inY, nil, false)
	if !finite(intercept) || !finite(slope) {
		return nil, fmt.Errorf("refit is not finite: %w", contracts.ErrNumericalInstability)
	}

	return &Result{
		Intercept: intercept,
		Slope:     slope,
		Inliers:   best,
		NInliers:  bestN,
		Threshold: threshold,
	}, nil
}

func (c Config) withDefaults() Config {
	if c.MaxTrials <= 0 {
		c.MaxTrials = DefaultMaxTrials
	}
	if c.MinSamples < DefaultMinSamples {
		c.MinSamples = DefaultMinSamples
	}
	return c
}

// medianAbsoluteDeviation returns median(|y - median(y)|)
func medianAbsoluteDeviation(y []float64) (float64, error) {
	med, err := stats.Median(y)
	if err != nil {
		return 0, fmt.Errorf("median: %w", err)
	}
	dev := make([]float64, len(y))
	for i, v := range y {
		dev[i] = math.Abs(v - med)
	}
	mad, err := stats.Median(dev)
	if err != nil {
		return 0, fmt.Errorf("median absolute deviation: %w", err)
	}
	return mad, nil
}

// degenerate: every x equal, so no slope is defined
func degenerate(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
