// Package reporting renders backtest and sweep results to the console and to
// CSV, Excel and JSON files.
package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/optimize"
)

// DefaultConsoleReporter implements console output functionality.
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter.
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputResults prints backtest results to console.
func (r *DefaultConsoleReporter) OutputResults(results *backtest.Results) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 BACKTEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Printf("💰 Initial Balance:    $%.2f\n", results.StartBalance)
	fmt.Printf("💰 Final Balance:      $%.2f\n", results.EndBalance)
	fmt.Printf("📈 Total Return:       %.2f%%\n", results.TotalReturn*100)
	fmt.Printf("📈 Annualized Return:  %.2f%%\n", results.AnnualizedReturn*100)
	fmt.Printf("📉 Max Drawdown:       %.2f%%\n", results.MaxDrawdown*100)
	fmt.Printf("📊 Sortino Ratio:      %.2f\n", results.SortinoRatio)
	fmt.Printf("💹 Profit Factor:      %.2f\n", results.ProfitFactor)
	fmt.Printf("🔄 Total Trades:       %d\n", results.TotalTrades)

	winRate := 0.0
	loseRate := 0.0
	if results.TotalTrades > 0 {
		winRate = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
		loseRate = float64(results.LosingTrades) / float64(results.TotalTrades) * 100
	}

	fmt.Printf("✅ Winning Trades:     %d (%.1f%%)\n", results.WinningTrades, winRate)
	fmt.Printf("❌ Losing Trades:      %d (%.1f%%)\n", results.LosingTrades, loseRate)
	if results.OpenAtEnd {
		fmt.Println("⚠️  Position still open at end of series (marked to market)")
	}
}

// PrintRunInfo prints the run context before a backtest starts.
func (r *DefaultConsoleReporter) PrintRunInfo(symbol, interval, dataFile string, bars int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RUN")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", symbol},
		{"⏰ Interval", interval},
		{"📂 Data File", dataFile},
		{"🕯️ Bars", bars},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintSweepReport renders the ranked sweep results as a table, followed by
// the baselines when any were evaluated.
func (r *DefaultConsoleReporter) PrintSweepReport(report *optimize.Report) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔍 PARAMETER SWEEP RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("🧮 Combinations: %d evaluated, %d skipped, %d invalid (of %d)\n",
		report.Evaluated, report.Skipped, report.Invalid, report.Total+report.Invalid)
	fmt.Printf("⏱️ Elapsed: %s, ranked by %s\n", report.Elapsed.Round(10*time.Millisecond), report.Metric)

	r.renderEvaluations("TOP PARAMETER SETS", report.Metric, report.Ranked, true)

	if len(report.Baselines) > 0 {
		r.renderEvaluations("BASELINES", report.Metric, report.Baselines, false)
	}
}

func (r *DefaultConsoleReporter) renderEvaluations(title string, metric optimize.Metric, evals []optimize.Evaluation, ranked bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	header := table.Row{"#", "K", "Smooth", "Window", "MA", strings.ToUpper(string(metric)),
		"Return %", "Win %", "Max DD %", "Sortino", "PF", "Trades"}
	t.AppendHeader(header)

	for i, e := range evals {
		rank := "-"
		if ranked {
			rank = fmt.Sprintf("%d", i+1)
		}
		t.AppendRow(table.Row{
			rank,
			e.Params.K,
			e.Params.SmoothingPeriod,
			e.Params.WindowSize,
			e.Params.MALen,
			fmt.Sprintf("%.4f", e.Score(metric)),
			fmt.Sprintf("%.2f", e.Results.TotalReturn*100),
			fmt.Sprintf("%.1f", e.Results.WinRate*100),
			fmt.Sprintf("%.2f", e.Results.MaxDrawdown*100),
			fmt.Sprintf("%.2f", e.Results.SortinoRatio),
			fmt.Sprintf("%.2f", e.Results.ProfitFactor),
			e.Results.TotalTrades,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	t.Render()
	fmt.Println()
}

// OutputConsole is a package-level convenience function.
func OutputConsole(results *backtest.Results) {
	NewDefaultConsoleReporter().OutputResults(results)
}

// OutputSweepConsole is a package-level convenience function.
func OutputSweepConsole(report *optimize.Report) {
	NewDefaultConsoleReporter().PrintSweepReport(report)
}
