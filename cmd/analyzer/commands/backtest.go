package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/portfolio-analyzer/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "고정 비중 백테스트",
	Long: `설정 파일의 비중(또는 weighting_mode로 계산한 비중)으로
포트폴리오 가치를 기간별로 복리 계산합니다.

리밸런싱 없이 매 기간 같은 비중을 적용합니다.

Flags:
  --capital  초기 자본 (기본: 설정 파일, 없으면 STARTING_CAPITAL)
  --chart    가치 곡선 PNG 저장 경로

Example:
  go run ./cmd/analyzer backtest --config analysis.yaml
  go run ./cmd/analyzer backtest --capital 10000 --chart portfolio.png`,
	RunE: runBacktest,
}

var (
	backtestCapital float64
	backtestChart   string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	// Flags
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "초기 자본 (0 = 설정 파일)")
	backtestCmd.Flags().StringVar(&backtestChart, "chart", "", "가치 곡선 PNG 저장 경로")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Analyzer: Backtest ===")

	if backtestCapital < 0 {
		return fmt.Errorf("--capital must be positive")
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
	if backtestCapital > 0 {
		cfg.Backtest.Capital = backtestCapital
	}

	res, err := rt.orchestrator.Backtest(ctx, cfg)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	PrintRunHeader("Backtest: "+res.Series.Label, cfg.From+" ~ "+cfg.To, strings.Join(res.Weights.Tickers(), ", "))
	printSummary(res.Summary)

	if backtestChart != "" {
		png, err := backtest.RenderChart(res.Series, res.Summary)
		if err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		if err := os.WriteFile(backtestChart, png, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		PrintSuccess("Chart saved to " + backtestChart)
	}

	if len(res.Skipped) > 0 {
		PrintWarning("No data for: " + strings.Join(res.Skipped, ", "))
	}
	return nil
}

// printSummary prints the headline statistics of a backtest
func printSummary(s *backtest.Summary) {
	const keyWidth = 16
	PrintKeyValue("Start", s.StartDate.Format("2006-01-02"), keyWidth)
	PrintKeyValue("End", s.EndDate.Format("2006-01-02"), keyWidth)
	PrintKeyValue("Periods", fmt.Sprintf("%d", s.Periods), keyWidth)
	PrintKeyValue("Initial Capital", formatFloat(s.InitialCapital, 2), keyWidth)
	PrintKeyValue("Final Value", formatFloat(s.FinalValue, 2), keyWidth)
	PrintSeparator()
	PrintKeyValue("Total Return", formatPercent(s.TotalReturn), keyWidth)
	PrintKeyValue("CAGR", formatPercent(s.CAGR), keyWidth)
	PrintKeyValue("Volatility", formatPercent(s.Volatility), keyWidth)
	PrintKeyValue("Sharpe Ratio", formatFloat(s.SharpeRatio, 4), keyWidth)
	PrintKeyValue("Max Drawdown", formatPercent(s.MaxDrawdown), keyWidth)
	PrintKeyValue("VaR", formatPercent(s.Risk.VaR), keyWidth)
	PrintKeyValue("CVaR", formatPercent(s.Risk.CVaR), keyWidth)
	if p := s.ParametricRisk; p != nil {
		PrintKeyValue("VaR (normal)", formatPercent(p.VaR), keyWidth)
		PrintKeyValue("CVaR (normal)", formatPercent(p.CVaR), keyWidth)
	}
}
