package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/portfolio-analyzer/internal/portfolio"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "포트폴리오 비중 최적화",
	Long: `설정 파일의 종목으로 비중을 계산합니다.

Objectives:
  equal                  - 동일 비중
  minimal_variance       - 최소분산 (공분산 기반, 비중 합 = 1)
  approximated_max_kelly - 근사 Kelly (평균 수익률 / 공분산, 정규화)

비중은 음수(공매도)가 될 수 있습니다.

Example:
  go run ./cmd/analyzer optimize --config analysis.yaml
  go run ./cmd/analyzer optimize --objective approximated_max_kelly`,
	RunE: runOptimize,
}

var (
	optimizeObjective string
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	// Flags
	optimizeCmd.Flags().StringVar(&optimizeObjective, "objective", "", "최적화 목표 ("+strings.Join(portfolio.Modes, "|")+", 기본: 설정 파일)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Analyzer: Optimize ===")

	if optimizeObjective != "" && !portfolio.ValidMode(optimizeObjective) {
		return fmt.Errorf("unknown objective %q (want one of %s)", optimizeObjective, strings.Join(portfolio.Modes, ", "))
	}

	ctx := cmd.Context()
	rt, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, err := rt.loadAnalysis()
	if err != nil {
		return err
	}

	res, err := rt.orchestrator.Optimize(ctx, cfg, optimizeObjective)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	PrintRunHeader("Weights: "+res.Objective, cfg.From+" ~ "+cfg.To, strings.Join(cfg.Tickers, ", "))
	widths := []int{12, 12}
	PrintTableHeader([]string{"ticker", "weight"}, widths)
	for _, ticker := range res.Weights.Tickers() {
		PrintTableRow([]string{ticker, formatPercent(res.Weights[ticker])}, widths)
	}
	PrintSeparator()
	PrintTableRow([]string{"sum", formatPercent(res.Weights.Sum())}, widths)

	if len(res.Skipped) > 0 {
		PrintWarning("No data for: " + strings.Join(res.Skipped, ", "))
	}
	return nil
}
