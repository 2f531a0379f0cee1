package pricesource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// PostgresSource reads daily closes from data.daily_prices.
// Weekly and monthly requests are resampled from the daily rows.
// ⭐ SSOT: DB 가격 조회는 여기서만 (읽기 전용)
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresSource creates a new Postgres price source
func NewPostgresSource(pool *pgxpool.Pool, log *logger.Logger) *PostgresSource {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresSource{pool: pool, logger: log}
}

const selectDailyPrices = `
	SELECT stock_code, trade_date, close_price::float8 AS close_price
	FROM data.daily_prices
	WHERE stock_code = ANY($1) AND trade_date BETWEEN $2 AND $3
	ORDER BY stock_code, trade_date ASC
`

// Load queries every requested ticker in one round trip and aligns them
func (s *PostgresSource) Load(ctx context.Context, req Request) (*contracts.PriceTable, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	to := req.To
	if to.IsZero() {
		to = time.Now()
	}

	rows, err := s.pool.Query(ctx, selectDailyPrices, req.Tickers, req.From, to)
	if err != nil {
		return nil, fmt.Errorf("query daily prices: %w", err)
	}

	byTicker, err := collectPrices(rows)
	if err != nil {
		return nil, err
	}

	raw := make([]TickerPrices, len(req.Tickers))
	for i, ticker := range req.Tickers {
		raw[i] = TickerPrices{Ticker: ticker, Points: Resample(byTicker[ticker], req.Frequency)}
	}

	s.logger.WithFields(map[string]interface{}{
		"tickers":   len(req.Tickers),
		"frequency": req.Frequency,
	}).Debug("Loaded prices from database")

	return Align(raw, s.logger)
}

type priceRow struct {
	StockCode  string    `db:"stock_code"`
	TradeDate  time.Time `db:"trade_date"`
	ClosePrice float64   `db:"close_price"`
}

// collectPrices groups rows by ticker, preserving row order
func collectPrices(rows pgx.Rows) (map[string][]PricePoint, error) {
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[priceRow])
	if err != nil {
		return nil, fmt.Errorf("scan daily prices: %w", err)
	}

	out := make(map[string][]PricePoint)
	for _, r := range records {
		out[r.StockCode] = append(out[r.StockCode], PricePoint{Date: r.TradeDate, Close: r.ClosePrice})
	}
	return out, nil
}
