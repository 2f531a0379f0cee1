package contracts

import (
	"math"

	"github.com/goccy/go-json"
)

// Metric names reported per asset
const (
	MetricCorrelation   = "benchmark correlation"
	MetricAverageReturn = "average return"
	MetricAlpha         = "alpha"
	MetricBeta          = "beta"
	MetricSharpe        = "sharpe ratio"
	MetricMaxDrawdown   = "max draw down"
)

// MetricNames lists every metric in report order
var MetricNames = []string{
	MetricCorrelation,
	MetricAverageReturn,
	MetricAlpha,
	MetricBeta,
	MetricSharpe,
	MetricMaxDrawdown,
}

// MetricsRecord maps metric name to value for one asset
type MetricsRecord map[string]float64

// NaNRecord returns a record with every metric undefined
func NaNRecord() MetricsRecord {
	rec := make(MetricsRecord, len(MetricNames))
	for _, name := range MetricNames {
		rec[name] = math.NaN()
	}
	return rec
}

// MetricsReport is the metric name × ticker table produced by an estimation
type MetricsReport struct {
	Tickers []string                 `json:"tickers"`
	Records map[string]MetricsRecord `json:"records"`
}

// Value returns a single cell, NaN when absent
func (r *MetricsReport) Value(ticker, metric string) float64 {
	rec, ok := r.Records[ticker]
	if !ok {
		return math.NaN()
	}
	v, ok := rec[metric]
	if !ok {
		return math.NaN()
	}
	return v
}

// MarshalJSON encodes undefined values (NaN, ±Inf) as null
func (m MetricsRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[k] = nil
			continue
		}
		v := v
		out[k] = &v
	}
	return json.Marshal(out)
}
