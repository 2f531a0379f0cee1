package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/portfolio-analyzer/internal/api"
	"github.com/wonny/portfolio-analyzer/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

요청 본문은 analysis YAML과 같은 필드의 JSON입니다.

Endpoints:
  GET  /health                     - Health check
  POST /api/metrics                - 종목별 지표
  POST /api/optimize/{objective}   - 비중 최적화
  POST /api/backtest               - 백테스트

Example:
  go run ./cmd/analyzer api
  go run ./cmd/analyzer api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Analyzer API Server ===")

	// 1. Config, logger, price source
	rt, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, log := rt.cfg, rt.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":   cfg.Port,
		"env":    cfg.Env,
		"source": cfg.Analysis.PriceSource,
	}).Info("Initializing API server")

	// 2. Handler, router, server
	analysisHandler := handlers.NewAnalysisHandler(rt.orchestrator, analysisDefaults(cfg), log)
	router := api.NewRouter(analysisHandler, log)
	server := api.New(cfg, log, router)

	// 3. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/metrics")
	fmt.Println("  POST /api/optimize/{objective}")
	fmt.Println("  POST /api/backtest")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
