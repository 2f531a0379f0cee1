package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "종목별 성과 지표 계산",
	Long: `설정 파일의 종목별로 벤치마크 대비 지표를 계산합니다.

지표:
- benchmark correlation (수익률 상관계수)
- average return (기하평균, 연환산)
- alpha / beta (RANSAC 회귀)
- sharpe ratio (기간 기준)
- max draw down

Example:
  go run ./cmd/analyzer metrics --config analysis.yaml`,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Analyzer: Metrics ===")

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

	res, err := rt.orchestrator.Metrics(ctx, cfg)
	if err != nil {
		return fmt.Errorf("estimate metrics: %w", err)
	}

	PrintRunHeader("Metrics vs "+cfg.Benchmark, cfg.From+" ~ "+cfg.To, strings.Join(res.Report.Tickers, ", "))
	printMetricsReport(res.Report)

	if len(res.Skipped) > 0 {
		PrintWarning("No data for: " + strings.Join(res.Skipped, ", "))
	}
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Estimated %d assets in %.2fs", len(res.Report.Tickers), res.Duration.Seconds()))
	return nil
}

// printMetricsReport prints one row per metric, one column per ticker
func printMetricsReport(report *contracts.MetricsReport) {
	columns := append([]string{"metric"}, report.Tickers...)
	widths := make([]int, len(columns))
	widths[0] = 22
	for i := 1; i < len(widths); i++ {
		widths[i] = 12
	}

	PrintTableHeader(columns, widths)
	for _, metric := range contracts.MetricNames {
		row := []string{metric}
		for _, ticker := range report.Tickers {
			row = append(row, formatFloat(report.Value(ticker, metric), 4))
		}
		PrintTableRow(row, widths)
	}
}
