package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/optimize"
)

// ExcelStyles holds the style IDs shared by the workbook writers.
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
}

// DefaultExcelReporter implements Excel output functionality.
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter.
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes a workbook with the closed trades and the run
// metrics.
func (r *DefaultExcelReporter) WriteTradesXLSX(results *backtest.Results, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const metricsSheet = "Metrics"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(metricsSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, results, styles); err != nil {
		return err
	}
	if err := r.writeMetricsSheet(fx, metricsSheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// WriteSweepXLSX writes a workbook with the ranked sweep results and the
// baseline comparisons.
func (r *DefaultExcelReporter) WriteSweepXLSX(report *optimize.Report, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const rankedSheet = "Ranked"
	const baselineSheet = "Baselines"

	fx.SetSheetName(fx.GetSheetName(0), rankedSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeEvaluationSheet(fx, rankedSheet, report, report.Ranked, true, styles); err != nil {
		return err
	}

	if len(report.Baselines) > 0 {
		fx.NewSheet(baselineSheet)
		if err := r.writeEvaluationSheet(fx, baselineSheet, report, report.Baselines, false, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7, // currency
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10, // percent, two decimals
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, styles ExcelStyles) error {
	headers := []string{"Entry Time", "Exit Time", "Entry Price", "Exit Price", "Return %", "Win/Loss"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for i, t := range results.Trades {
		row := i + 2
		winLoss := "L"
		if t.Profitable {
			winLoss = "W"
		}
		values := []interface{}{
			t.EntryTime.Format(timeLayout),
			t.ExitTime.Format(timeLayout),
			t.EntryPrice,
			t.ExitPrice,
			t.ReturnPct,
			winLoss,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, v)
		}
		pctCell, _ := excelize.CoordinatesToCellName(5, row)
		fx.SetCellStyle(sheet, pctCell, pctCell, styles.PercentStyle)
	}

	fx.SetColWidth(sheet, "A", "B", 20)
	fx.SetColWidth(sheet, "C", "E", 14)
	return nil
}

func (r *DefaultExcelReporter) writeMetricsSheet(fx *excelize.File, sheet string, results *backtest.Results, styles ExcelStyles) error {
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Initial Balance", results.StartBalance, styles.CurrencyStyle},
		{"Final Balance", results.EndBalance, styles.CurrencyStyle},
		{"Total Return", results.TotalReturn, styles.PercentStyle},
		{"Annualized Return", results.AnnualizedReturn, styles.PercentStyle},
		{"Win Rate", results.WinRate, styles.PercentStyle},
		{"Max Drawdown", results.MaxDrawdown, styles.PercentStyle},
		{"Sortino Ratio", results.SortinoRatio, styles.BaseStyle},
		{"Profit Factor", results.ProfitFactor, styles.BaseStyle},
		{"Total Trades", results.TotalTrades, styles.BaseStyle},
		{"Winning Trades", results.WinningTrades, styles.BaseStyle},
		{"Losing Trades", results.LosingTrades, styles.BaseStyle},
		{"Open At End", results.OpenAtEnd, styles.BaseStyle},
	}

	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		fx.SetCellValue(sheet, labelCell, row.label)
		fx.SetCellValue(sheet, valueCell, row.value)
		fx.SetCellStyle(sheet, valueCell, valueCell, row.style)
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func (r *DefaultExcelReporter) writeEvaluationSheet(fx *excelize.File, sheet string, report *optimize.Report, evals []optimize.Evaluation, ranked bool, styles ExcelStyles) error {
	headers := []string{"Rank", "K", "Smoothing", "Window", "MA Len", string(report.Metric),
		"Total Return", "Annualized", "Win Rate", "Max Drawdown", "Sortino", "Profit Factor", "Trades"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for i, e := range evals {
		row := i + 2
		rank := interface{}("-")
		if ranked {
			rank = i + 1
		}
		values := []interface{}{
			rank,
			e.Params.K,
			e.Params.SmoothingPeriod,
			e.Params.WindowSize,
			e.Params.MALen,
			e.Score(report.Metric),
			e.Results.TotalReturn,
			e.Results.AnnualizedReturn,
			e.Results.WinRate,
			e.Results.MaxDrawdown,
			e.Results.SortinoRatio,
			e.Results.ProfitFactor,
			e.Results.TotalTrades,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, v)
		}
		for _, col := range []int{7, 8, 9, 10} {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			fx.SetCellStyle(sheet, cell, cell, styles.PercentStyle)
		}
	}

	fx.SetColWidth(sheet, "A", "E", 10)
	fx.SetColWidth(sheet, "F", "M", 14)
	return nil
}

// WriteTradesXLSX is a package-level convenience function.
func WriteTradesXLSX(results *backtest.Results, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
}

// WriteSweepXLSX is a package-level convenience function.
func WriteSweepXLSX(report *optimize.Report, path string) error {
	return NewDefaultExcelReporter().WriteSweepXLSX(report, path)
}
