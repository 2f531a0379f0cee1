package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wonny/portfolio-analyzer/internal/analysis"
	"github.com/wonny/portfolio-analyzer/internal/analysisconfig"
	"github.com/wonny/portfolio-analyzer/internal/pricesource"
	"github.com/wonny/portfolio-analyzer/pkg/config"
	"github.com/wonny/portfolio-analyzer/pkg/database"
	"github.com/wonny/portfolio-analyzer/pkg/httputil"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
	"github.com/wonny/portfolio-analyzer/pkg/redis"
)

// cachePrefix namespaces redis keys
const cachePrefix = "portfolio-analyzer"

// deps holds the process-wide dependencies shared by every command
type deps struct {
	cfg          *config.Config
	log          *logger.Logger
	orchestrator *analysis.Orchestrator
	closers      []func()
}

// Close releases database and redis connections
func (r *deps) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// loadEnvConfig loads the environment config, honouring --env and --verbose
func loadEnvConfig() (*config.Config, error) {
	// ⭐ 플래그는 환경변수보다 우선 (config.Load만 os.Getenv 호출)
	if env != "" {
		if err := os.Setenv("ENV", env); err != nil {
			return nil, err
		}
	}
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newDeps wires the price source selected by PRICE_SOURCE, optionally
// behind the redis cache, into an orchestrator.
func newDeps(ctx context.Context) (*deps, error) {
	cfg, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)
	rt := &deps{cfg: cfg, log: log}

	var source pricesource.Source
	switch cfg.Analysis.PriceSource {
	case config.SourcePostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		log.Info("Connected to database")
		source = pricesource.NewPostgresSource(db.Pool, log)
	default:
		httpClient := httputil.New(cfg, log).WithRetry(cfg.Yahoo.MaxRetries, cfg.Yahoo.RetryDelay)
		source = pricesource.NewYahooSource(httpClient, cfg.Yahoo.BaseURL, log)
	}

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		log.Info("Connected to redis")
		source = pricesource.NewCachedSource(source, redis.NewCache(client, cachePrefix), cfg.Analysis.PriceSource, cfg.Redis.TTL, log)
	}

	rt.orchestrator = analysis.NewOrchestrator(source, cfg.Analysis.Workers, log)
	return rt, nil
}

// analysisDefaults turns env-level analysis settings into config fallbacks
func analysisDefaults(cfg *config.Config) analysisconfig.Defaults {
	return analysisconfig.Defaults{
		Capital: cfg.Analysis.StartingCapital,
		Ransac: analysisconfig.Ransac{
			MaxTrials:         cfg.Analysis.RansacMaxTrials,
			ResidualThreshold: cfg.Analysis.RansacResidualThreshold,
			Seed:              cfg.Analysis.RansacSeed,
		},
	}
}

// loadAnalysis reads --config with env defaults applied
func (r *deps) loadAnalysis() (*analysisconfig.Config, error) {
	cfg, err := analysisconfig.Load(configFile, analysisDefaults(r.cfg))
	if err != nil {
		return nil, fmt.Errorf("load analysis config: %w", err)
	}

	r.log.WithFields(map[string]interface{}{
		"config":    configFile,
		"tickers":   len(cfg.Tickers),
		"benchmark": cfg.Benchmark,
		"frequency": cfg.Frequency,
	}).Debug("Analysis config loaded")
	return cfg, nil
}
