package backtest

import (
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
)

// RenderChart draws the portfolio value series as a PNG line chart.
// summary is optional and adds a statistics subtitle.
func RenderChart(series *contracts.PortfolioSeries, summary *Summary) ([]byte, error) {
	if series == nil || len(series.Values) == 0 {
		return nil, fmt.Errorf("empty portfolio series: %w", contracts.ErrInsufficientData)
	}

	xLabels := make([]string, len(series.Dates))
	for i, d := range series.Dates {
		xLabels[i] = d.Format("2006-01-02")
	}

	minVal, maxVal := series.Values[0], series.Values[0]
	for _, v := range series.Values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	title := fmt.Sprintf("Portfolio value (%s)", series.Label)
	if summary != nil {
		title += fmt.Sprintf("\nReturn: %.2f%% | Sharpe: %.2f | MaxDD: %.2f%% | VaR95: %.2f%%",
			summary.TotalReturn*100, summary.SharpeRatio, summary.MaxDrawdown*100, summary.Risk.VaR*100)
	}

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{series.Values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
