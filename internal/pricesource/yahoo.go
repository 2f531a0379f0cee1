package pricesource

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/httputil"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// DefaultYahooBaseURL is the public chart API host
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// yahooConcurrency bounds parallel ticker downloads; the client limiter
// still applies on top.
const yahooConcurrency = 4

// YahooSource loads closing prices from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance API 호출은 이 소스에서만
type YahooSource struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewYahooSource creates a Yahoo Finance source. An empty baseURL selects the
// public endpoint.
func NewYahooSource(httpClient *httputil.Client, baseURL string, log *logger.Logger) *YahooSource {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &YahooSource{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Load fetches every ticker and aligns them. A ticker that fails to load is
// logged and left out of the table.
func (s *YahooSource) Load(ctx context.Context, req Request) (*contracts.PriceTable, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	raw := make([]TickerPrices, len(req.Tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(yahooConcurrency)
	for i, ticker := range req.Tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			points, err := s.FetchPrices(gctx, ticker, req)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.WithError(err).WithField("ticker", ticker).Warn("Failed to load prices")
				points = nil
			}
			raw[i] = TickerPrices{Ticker: ticker, Points: points}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Align(raw, s.logger)
}

// FetchPrices fetches one ticker's close history
func (s *YahooSource) FetchPrices(ctx context.Context, ticker string, req Request) ([]PricePoint, error) {
	interval, err := req.Frequency.Interval()
	if err != nil {
		return nil, err
	}

	to := req.To
	if to.IsZero() {
		to = time.Now()
	}

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", req.From.Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", to.AddDate(0, 0, 1).Unix()))
	params.Set("interval", interval)
	params.Set("events", "history")
	params.Set("includeAdjustedClose", "true")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.baseURL, url.PathEscape(ticker), params.Encode())

	resp, err := s.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	points, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"interval": interval,
		"count":    len(points),
	}).Debug("Fetched prices")

	return points, nil
}

// parseChart converts a chart API response into price points. Dates are the
// exchange-local calendar day of each bar.
func parseChart(body []byte) ([]PricePoint, error) {
	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data")
	}

	res := yc.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	if len(res.Timestamp) != len(closes) {
		return nil, fmt.Errorf("%d timestamps for %d closes", len(res.Timestamp), len(closes))
	}

	offset := time.Duration(res.Meta.GMTOffset) * time.Second
	points := make([]PricePoint, len(closes))
	for i, ts := range res.Timestamp {
		c := math.NaN()
		if closes[i] != nil {
			c = *closes[i]
		}
		points[i] = PricePoint{
			Date:  dayOf(time.Unix(ts, 0).UTC().Add(offset)),
			Close: c,
		}
	}
	return points, nil
}
