package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Portfolio Analyzer - 포트폴리오 지표, 최적화, 백테스트",
	Long: `Portfolio Analyzer CLI

종목별 성과 지표(상관계수, 알파/베타, 샤프, MDD) 계산,
최소분산/근사 Kelly 비중 최적화, 고정 비중 백테스트.

Usage:
  go run ./cmd/analyzer [command]

Examples:
  go run ./cmd/analyzer metrics --config analysis.yaml
  go run ./cmd/analyzer optimize --config analysis.yaml --objective approximated_max_kelly
  go run ./cmd/analyzer backtest --config analysis.yaml --chart portfolio.png
  go run ./cmd/analyzer api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "analysis.yaml", "analysis config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
