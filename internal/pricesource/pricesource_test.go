package pricesource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/config"
	"github.com/wonny/portfolio-analyzer/pkg/httputil"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAlign(t *testing.T) {
	raw := []TickerPrices{
		{Ticker: "AAA", Points: []PricePoint{
			{day(4), 10}, {day(1), 11}, {day(2), 12}, {day(2), 99}, {day(3), 13},
		}},
		{Ticker: "BBB", Points: []PricePoint{
			{day(1), 20}, {day(2), math.NaN()}, {day(3), 23}, {day(4), 24}, {day(5), 25},
		}},
		{Ticker: "BROKEN"},
	}

	table, err := Align(raw, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, table.Tickers)
	assert.Equal(t, []time.Time{day(1), day(3), day(4)}, table.Dates)

	aaa, _ := table.Column("AAA")
	bbb, _ := table.Column("BBB")
	assert.Equal(t, []float64{11, 13, 10}, aaa)
	assert.Equal(t, []float64{20, 23, 24}, bbb)
}

func TestAlign_KeepsFirstDuplicate(t *testing.T) {
	raw := []TickerPrices{{Ticker: "AAA", Points: []PricePoint{
		{day(1), 1}, {day(2), 2}, {day(2).Add(4 * time.Hour), 3},
	}}}

	table, err := Align(raw, nil)
	require.NoError(t, err)
	col, _ := table.Column("AAA")
	assert.Equal(t, []float64{1, 2}, col)
}

func TestAlign_NothingLoaded(t *testing.T) {
	_, err := Align([]TickerPrices{{Ticker: "X"}}, nil)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestResample(t *testing.T) {
	// Mon 4 .. Fri 8, Mon 11, Tue 12 March 2024
	var pts []PricePoint
	for _, d := range []int{4, 5, 6, 7, 8, 11, 12} {
		pts = append(pts, PricePoint{Date: day(d), Close: float64(d)})
	}

	weekly := Resample(pts, Weekly)
	require.Len(t, weekly, 2)
	assert.Equal(t, 8.0, weekly[0].Close)
	assert.Equal(t, 12.0, weekly[1].Close)

	monthly := Resample(pts, Monthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, 12.0, monthly[0].Close)

	assert.Equal(t, pts, Resample(pts, Daily))
}

func TestRequest_Validate(t *testing.T) {
	ok := Request{Tickers: []string{"AAPL"}, From: day(1), To: day(5), Frequency: Weekly}

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr bool
	}{
		{"valid", func(r *Request) {}, false},
		{"no tickers", func(r *Request) { r.Tickers = nil }, true},
		{"duplicate ticker", func(r *Request) { r.Tickers = []string{"A", "A"} }, true},
		{"reversed range", func(r *Request) { r.From, r.To = r.To, r.From }, true},
		{"unknown frequency", func(r *Request) { r.Frequency = "hourly" }, true},
		{"open ended", func(r *Request) { r.To = time.Time{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ok
			tt.mutate(&r)
			if tt.wantErr {
				assert.Error(t, r.Validate())
			} else {
				assert.NoError(t, r.Validate())
			}
		})
	}
}

func TestRequest_Hash(t *testing.T) {
	a := Request{Tickers: []string{"A", "B"}, From: day(1), To: day(5), Frequency: Daily}
	b := a
	b.Tickers = []string{"A", "B"}
	c := a
	c.Frequency = Weekly

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
}

func chartBody(ts []int64, closes []interface{}) string {
	body := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{map[string]interface{}{
				"meta":      map[string]interface{}{"symbol": "X", "gmtoffset": -14400},
				"timestamp": ts,
				"indicators": map[string]interface{}{
					"quote": []interface{}{map[string]interface{}{"close": closes}},
				},
			}},
			"error": nil,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func newTestClient(t *testing.T) *httputil.Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Yahoo.Timeout = 5 * time.Second
	return httputil.New(cfg, logger.Nop()).DisableRetry()
}

func TestYahooSource_Load(t *testing.T) {
	// 13:30 UTC bars (09:30 New York)
	ts := []int64{
		day(4).Add(13*time.Hour + 30*time.Minute).Unix(),
		day(5).Add(13*time.Hour + 30*time.Minute).Unix(),
		day(6).Add(13*time.Hour + 30*time.Minute).Unix(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/AAPL"):
			fmt.Fprint(w, chartBody(ts, []interface{}{170.1, 171.2, 169.9}))
		case strings.HasSuffix(r.URL.Path, "/MSFT"):
			fmt.Fprint(w, chartBody(ts, []interface{}{400.0, nil, 402.5}))
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
		}
	}))
	defer server.Close()

	src := NewYahooSource(newTestClient(t), server.URL, logger.Nop())
	table, err := src.Load(context.Background(), Request{
		Tickers:   []string{"AAPL", "MSFT", "NOPE"},
		From:      day(1),
		To:        day(10),
		Frequency: Daily,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, table.Tickers)
	assert.Equal(t, []time.Time{day(4), day(6)}, table.Dates)
	aapl, _ := table.Column("AAPL")
	assert.Equal(t, []float64{170.1, 169.9}, aapl)
}

func TestParseChart_Errors(t *testing.T) {
	_, err := parseChart([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data"}}}`))
	assert.ErrorContains(t, err, "Not Found")

	_, err = parseChart([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseChart([]byte(chartBody([]int64{1, 2}, []interface{}{1.0})))
	assert.Error(t, err)
}

type stubSource struct {
	calls atomic.Int32
	table *contracts.PriceTable
	err   error
}

func (s *stubSource) Load(ctx context.Context, req Request) (*contracts.PriceTable, error) {
	s.calls.Add(1)
	return s.table, s.err
}

type mapCache struct {
	data   map[string][]byte
	getErr error
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func TestCachedSource(t *testing.T) {
	table, err := contracts.NewPriceTable([]time.Time{day(1), day(2)}, []string{"A"}, map[string][]float64{"A": {1, 2}})
	require.NoError(t, err)

	next := &stubSource{table: table}
	cache := &mapCache{data: map[string][]byte{}}
	src := NewCachedSource(next, cache, "yahoo", time.Hour, logger.Nop())
	req := Request{Tickers: []string{"A"}, From: day(1), To: day(2), Frequency: Daily}

	first, err := src.Load(context.Background(), req)
	require.NoError(t, err)
	second, err := src.Load(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, first.Tickers, second.Tickers)
	assert.True(t, first.Dates[1].Equal(second.Dates[1]))
	assert.Equal(t, first.Closes, second.Closes)
}

func TestCachedSource_CacheErrorFallsThrough(t *testing.T) {
	table, err := contracts.NewPriceTable([]time.Time{day(1)}, []string{"A"}, map[string][]float64{"A": {1}})
	require.NoError(t, err)

	next := &stubSource{table: table}
	src := NewCachedSource(next, &mapCache{data: map[string][]byte{}, getErr: errors.New("down")}, "pg", 0, nil)

	got, err := src.Load(context.Background(), Request{Tickers: []string{"A"}, Frequency: Daily})
	require.NoError(t, err)
	assert.Same(t, table, got)
}

func TestCachedSource_PropagatesLoadError(t *testing.T) {
	next := &stubSource{err: contracts.ErrInsufficientData}
	src := NewCachedSource(next, &mapCache{data: map[string][]byte{}}, "pg", 0, nil)

	_, err := src.Load(context.Background(), Request{Tickers: []string{"A"}, Frequency: Daily})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}
