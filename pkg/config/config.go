package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Price source identifiers
const (
	SourceYahoo    = "yahoo"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (read-only price source)
	Database DatabaseConfig

	// Redis (price table cache)
	Redis RedisConfig

	// External APIs
	Yahoo YahooConfig

	// Analysis defaults
	Analysis AnalysisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration // 가격 테이블 캐시 유지 시간
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int           // 5xx/429 재시도 횟수
	RetryDelay        time.Duration // 첫 재시도 대기, 이후 지수 증가
}

// AnalysisConfig holds defaults for estimation, optimisation and backtests.
// Values from an analysis YAML file take precedence.
type AnalysisConfig struct {
	PriceSource             string  // yahoo | postgres
	Workers                 int     // 종목별 병렬 추정 워커 수
	RansacMaxTrials         int     // RANSAC 최대 샘플링 횟수
	RansacResidualThreshold float64 // 0 = MAD of y
	RansacSeed              int64   // 0 = random
	StartingCapital         float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_PRICE_TTL", "6h"),
		},

		// External APIs
		Yahoo: YahooConfig{
			BaseURL:           getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:           getEnvAsDuration("YAHOO_TIMEOUT", "30s"),
			RequestsPerSecond: getEnvAsFloat("YAHOO_RPS", 2),
			MaxRetries:        getEnvAsInt("YAHOO_MAX_RETRIES", 3),
			RetryDelay:        getEnvAsDuration("YAHOO_RETRY_DELAY", "1s"),
		},

		// Analysis
		Analysis: AnalysisConfig{
			PriceSource:             getEnv("PRICE_SOURCE", SourceYahoo),
			Workers:                 getEnvAsInt("ANALYSIS_WORKERS", 4),
			RansacMaxTrials:         getEnvAsInt("RANSAC_MAX_TRIALS", 100),
			RansacResidualThreshold: getEnvAsFloat("RANSAC_RESIDUAL_THRESHOLD", 0),
			RansacSeed:              int64(getEnvAsInt("RANSAC_SEED", 0)),
			StartingCapital:         getEnvAsFloat("STARTING_CAPITAL", 100.0),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Analysis.PriceSource {
	case SourceYahoo:
	case SourcePostgres:
		// Database URL is only required when prices come from Postgres
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PRICE_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("PRICE_SOURCE must be one of: %s, %s", SourceYahoo, SourcePostgres)
	}

	if c.Yahoo.MaxRetries < 0 {
		return fmt.Errorf("YAHOO_MAX_RETRIES must be >= 0")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be >= 1")
	}
	if c.Analysis.RansacMaxTrials < 1 {
		return fmt.Errorf("RANSAC_MAX_TRIALS must be >= 1")
	}
	if c.Analysis.StartingCapital <= 0 {
		return fmt.Errorf("STARTING_CAPITAL must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
