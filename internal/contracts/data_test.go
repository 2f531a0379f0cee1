package contracts

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestNewPriceTable(t *testing.T) {
	tests := []struct {
		name    string
		dates   []time.Time
		tickers []string
		closes  map[string][]float64
		wantErr string
	}{
		{
			name:    "valid",
			dates:   days(3),
			tickers: []string{"AAA", "BBB"},
			closes:  map[string][]float64{"AAA": {1, 2, 3}, "BBB": {4, 5, 6}},
		},
		{
			name:    "missing column",
			dates:   days(3),
			tickers: []string{"AAA", "BBB"},
			closes:  map[string][]float64{"AAA": {1, 2, 3}},
			wantErr: "missing column",
		},
		{
			name:    "length mismatch",
			dates:   days(3),
			tickers: []string{"AAA"},
			closes:  map[string][]float64{"AAA": {1, 2}},
			wantErr: "has 2 rows",
		},
		{
			name:    "NaN value",
			dates:   days(2),
			tickers: []string{"AAA"},
			closes:  map[string][]float64{"AAA": {1, math.NaN()}},
			wantErr: "NaN",
		},
		{
			name:    "descending dates",
			dates:   []time.Time{days(2)[1], days(2)[0]},
			tickers: []string{"AAA"},
			closes:  map[string][]float64{"AAA": {1, 2}},
			wantErr: "ascending",
		},
		{
			name:    "duplicate ticker",
			dates:   days(2),
			tickers: []string{"AAA", "AAA"},
			closes:  map[string][]float64{"AAA": {1, 2}},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewPriceTable(tt.dates, tt.tickers, tt.closes)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.dates), table.Len())
		})
	}
}

func TestNewPriceTable_CopiesInput(t *testing.T) {
	col := []float64{1, 2, 3}
	table, err := NewPriceTable(days(3), []string{"AAA"}, map[string][]float64{"AAA": col})
	require.NoError(t, err)

	col[0] = 99
	got, _ := table.Column("AAA")
	assert.Equal(t, 1.0, got[0])
}

func TestPriceTable_Select(t *testing.T) {
	table, err := NewPriceTable(days(2), []string{"AAA", "BBB", "CCC"}, map[string][]float64{
		"AAA": {1, 2}, "BBB": {3, 4}, "CCC": {5, 6},
	})
	require.NoError(t, err)

	sub, err := table.Select("CCC", "AAA")
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC", "AAA"}, sub.Tickers)
	_, ok := sub.Column("BBB")
	assert.False(t, ok)

	_, err = table.Select("ZZZ")
	assert.Error(t, err)
}

func TestSeries_AsBenchmark(t *testing.T) {
	s := Series{Name: "^GSPC", Dates: days(2), Values: []float64{10, 11}}

	b := s.AsBenchmark()
	b.Values[0] = 0

	assert.Equal(t, BenchmarkLabel, b.Name)
	assert.Equal(t, "^GSPC", s.Name, "input label must not be renamed")
	assert.Equal(t, 10.0, s.Values[0], "input values must not be aliased")
}

func TestWeightVector(t *testing.T) {
	w := WeightVector{"MSFT": 0.7, "AAPL": 0.5, "TLT": -0.2}

	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.Equal(t, []string{"AAPL", "MSFT", "TLT"}, w.Tickers())
}

func TestPortfolioSeries_Last(t *testing.T) {
	p := &PortfolioSeries{Values: []float64{110, 121}}
	assert.Equal(t, 121.0, p.Last())
	assert.True(t, math.IsNaN((&PortfolioSeries{}).Last()))
}

func TestMetricsRecord_MarshalJSON(t *testing.T) {
	rec := MetricsRecord{MetricAlpha: 0.01, MetricBeta: math.NaN(), MetricSharpe: math.Inf(1)}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.01, decoded[MetricAlpha])
	assert.Nil(t, decoded[MetricBeta])
	assert.Nil(t, decoded[MetricSharpe])
}

func TestNaNRecord(t *testing.T) {
	rec := NaNRecord()
	require.Len(t, rec, len(MetricNames))
	for _, name := range MetricNames {
		assert.True(t, math.IsNaN(rec[name]), name)
	}

	report := &MetricsReport{Tickers: []string{"AAA"}, Records: map[string]MetricsRecord{"AAA": rec}}
	assert.True(t, math.IsNaN(report.Value("AAA", MetricAlpha)))
	assert.True(t, math.IsNaN(report.Value("ZZZ", MetricAlpha)))
}
