package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

func TestCalculateVaR(t *testing.T) {
	// 20 returns: -0.10, -0.05 in the 5% tail (idx = floor(0.05*20) = 1)
	returns := []float64{
		0.01, -0.05, 0.02, 0.00, 0.03, -0.10, 0.01, 0.02, -0.01, 0.00,
		0.01, 0.02, 0.01, -0.02, 0.00, 0.01, 0.03, -0.01, 0.02, 0.01,
	}

	res, err := CalculateVaR(returns, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 0.95, res.Confidence)
	assert.InDelta(t, 0.05, res.VaR, 1e-12)
	assert.InDelta(t, 0.075, res.CVaR, 1e-12)
	assert.GreaterOrEqual(t, res.CVaR, res.VaR)
}

func TestCalculateVaR_NoLosses(t *testing.T) {
	res, err := CalculateVaR([]float64{0.01, 0.02, 0.03}, 0.95)
	require.NoError(t, err)
	assert.Zero(t, res.VaR)
	assert.Zero(t, res.CVaR)
}

func TestCalculateVaR_Errors(t *testing.T) {
	_, err := CalculateVaR(nil, 0.95)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = CalculateVaR([]float64{0.1}, 1.5)
	assert.Error(t, err)
}

func TestCalculateParametricVaR(t *testing.T) {
	returns := []float64{-0.02, 0.01, 0.015, -0.005, 0.0, 0.02, -0.01}

	res, err := CalculateParametricVaR(returns, 0.95)
	require.NoError(t, err)
	assert.Greater(t, res.VaR, 0.0)
	assert.Greater(t, res.CVaR, res.VaR)

	_, err = CalculateParametricVaR([]float64{0.1}, 0.95)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}
