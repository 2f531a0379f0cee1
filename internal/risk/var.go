// Package risk provides tail-risk measures for a return series.
package risk

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// DefaultConfidence is the confidence level reported by backtest summaries
const DefaultConfidence = 0.95

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// CalculateVaR 과거 수익률 기반 VaR 계산 (Historical Simulation)
// returns: 기간별 수익률 (양수=이익, 음수=손실)
// 반환값: 손실을 양수로 표현, 손실이 없으면 0
func CalculateVaR(returns []float64, confidence float64) (VaRResult, error) {
	if err := checkConfidence(confidence); err != nil {
		return VaRResult{}, err
	}
	if len(returns) == 0 {
		return VaRResult{}, fmt.Errorf("no returns: %w", contracts.ErrInsufficientData)
	}

	// 오름차순: 손실이 앞에
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        asLoss(sorted[idx]),
		CVaR:       CalculateCVaR(sorted, idx),
	}, nil
}

// CalculateCVaR returns the mean loss of sorted[0..varIdx] (expected shortfall)
func CalculateCVaR(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}
	if varIdx >= len(sorted) {
		varIdx = len(sorted) - 1
	}
	return asLoss(stat.Mean(sorted[:varIdx+1], nil))
}

// CalculateParametricVaR 정규분포 가정 VaR 계산 (sample mean/stdev)
func CalculateParametricVaR(returns []float64, confidence float64) (VaRResult, error) {
	if err := checkConfidence(confidence); err != nil {
		return VaRResult{}, err
	}
	if len(returns) < 2 {
		return VaRResult{}, fmt.Errorf("need at least 2 returns, got %d: %w", len(returns), contracts.ErrInsufficientData)
	}

	mean, std := stat.MeanStdDev(returns, nil)
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	z := norm.Quantile(confidence)

	varValue := math.Max(z*std-mean, 0)
	// E[loss | loss > VaR] for a normal tail
	cvar := math.Max(std*norm.Prob(z)/(1-confidence)-mean, 0)

	return VaRResult{Confidence: confidence, VaR: varValue, CVaR: cvar}, nil
}

func checkConfidence(c float64) error {
	if c <= 0 || c >= 1 || math.IsNaN(c) {
		return fmt.Errorf("confidence %v outside (0, 1)", c)
	}
	return nil
}

func asLoss(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
