package analysisconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/portfolio-analyzer/internal/pricesource"
)

const sampleYAML = `
name: tech-vs-spx
tickers: [AAPL, MSFT, TLT]
benchmark: ^GSPC
from: 2020-01-01
to: 2024-12-31
frequency: weekly
portfolio:
  weighting_mode: approximated_max_kelly
  weights:
    AAPL: 0.5
    MSFT: 0.3
    TLT: 0.2
backtest:
  capital: 1000
ransac:
  max_trials: 250
  seed: 42
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, "tech-vs-spx", cfg.Name)
	assert.Equal(t, []string{"AAPL", "MSFT", "TLT"}, cfg.Tickers)
	assert.Equal(t, pricesource.Weekly, cfg.Frequency)
	assert.Equal(t, 1000.0, cfg.Backtest.Capital)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), cfg.ToDate())

	req := cfg.PriceRequest()
	assert.Equal(t, []string{"AAPL", "MSFT", "TLT", "^GSPC"}, req.Tickers)
	assert.NoError(t, req.Validate())

	rc := cfg.RegressionConfig()
	assert.Equal(t, 250, rc.MaxTrials)
	assert.Equal(t, int64(42), rc.Seed)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("tickers: [AAPL]\nbenchmark: SPY\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultFrom, cfg.From)
	assert.Equal(t, DefaultFrequency, cfg.Frequency)
	assert.Equal(t, DefaultWeightingMode, cfg.Portfolio.WeightingMode)
	assert.Equal(t, DefaultCapital, cfg.Backtest.Capital)
	assert.True(t, cfg.ToDate().IsZero())
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte("tickers: [AAPL]\nbenchmark: SPY\nbenchmrak: QQQ\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"no tickers", "benchmark: SPY\n", "tickers"},
		{"duplicate ticker", "tickers: [A, A]\nbenchmark: SPY\n", "tickers[1]"},
		{"no benchmark", "tickers: [A]\n", "benchmark"},
		{"bad from", "tickers: [A]\nbenchmark: SPY\nfrom: 01/02/2020\n", "from"},
		{"to before from", "tickers: [A]\nbenchmark: SPY\nfrom: 2021-01-01\nto: 2020-01-01\n", "to"},
		{"bad frequency", "tickers: [A]\nbenchmark: SPY\nfrequency: hourly\n", "frequency"},
		{"bad mode", "tickers: [A]\nbenchmark: SPY\nportfolio:\n  weighting_mode: risk_parity\n", "portfolio.weighting_mode"},
		{"weights off sum", "tickers: [A, B]\nbenchmark: SPY\nportfolio:\n  weights: {A: 0.5, B: 0.6}\n", "portfolio.weights"},
		{"weights unknown ticker", "tickers: [A]\nbenchmark: SPY\nportfolio:\n  weights: {Z: 1}\n", "portfolio.weights"},
		{"negative capital", "tickers: [A]\nbenchmark: SPY\nbacktest:\n  capital: -5\n", "backtest.capital"},
		{"negative threshold", "tickers: [A]\nbenchmark: SPY\nransac:\n  residual_threshold: -1\n", "ransac.residual_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb, "same config must hash identically")

	b.Backtest.Capital = 2000
	hc, _ := Hash(b)
	assert.NotEqual(t, ha, hc)
}

func TestLoad_InheritsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickers: [AAPL]\nbenchmark: SPY\nransac:\n  seed: 9\n"), 0o600))

	cfg, err := Load(path, Defaults{Capital: 5000, Ransac: Ransac{MaxTrials: 300, Seed: 1}})
	require.NoError(t, err)

	assert.Equal(t, 5000.0, cfg.Backtest.Capital)
	assert.Equal(t, 300, cfg.Ransac.MaxTrials)
	assert.Equal(t, int64(9), cfg.Ransac.Seed, "file value wins")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), Defaults{})
	assert.Error(t, err)
}
