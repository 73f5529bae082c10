package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"micromes/pkg/contracts/domain"
)

const (
	chartDataSheet    = "Data"
	chartSummarySheet = "Summary"
)

var chartDataHeaders = []interface{}{"Subgroup", "Size", "X-bar", "UCL", "LCL", "AVG", "Range", "R AVG"}

// WriteChartWorkbook writes the chart as an .xlsx with a data sheet, a
// summary sheet and native X-bar and R line charts
func WriteChartWorkbook(w io.Writer, chart *domain.ControlChart) error {
	if chart == nil {
		return fmt.Errorf("nil control chart")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", chartDataSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeChartData(f, chart); err != nil {
		return err
	}
	if err := writeChartSummary(f, chart); err != nil {
		return err
	}
	if len(chart.Subgroups) > 0 {
		if err := addControlCharts(f, chart); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeChartData(f *excelize.File, chart *domain.ControlChart) error {
	if err := f.SetSheetRow(chartDataSheet, "A1", &chartDataHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, sg := range chart.Subgroups {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{sg.Index, sg.Size, sg.Mean, chart.UCL, chart.LCL, chart.Mean, sg.Range, chart.RCenter}
		if err := f.SetSheetRow(chartDataSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write subgroup %d: %w", sg.Index, err)
		}
	}
	return nil
}

func writeChartSummary(f *excelize.File, chart *domain.ControlChart) error {
	if _, err := f.NewSheet(chartSummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	month := "all"
	if !chart.Request.Month.IsZero() {
		month = chart.Request.Month.String()
	}

	rows := [][]interface{}{
		{"Part Number", chart.Request.PartNumber},
		{"Module", chart.ModuleName},
		{"Parameter", chart.Request.Parameter},
		{"Month", month},
		{"Sample Size", chart.SampleSize},
		{"Subgroup Size", chart.SubgroupSize},
		{"Mean", chart.Mean},
		{"Std Dev", chart.StdDev},
		{"UCL", chart.UCL},
		{"LCL", chart.LCL},
		{"R Center", chart.RCenter},
		{"Lower Limit", optionalCell(chart.Capability.Limits.Lower)},
		{"Upper Limit", optionalCell(chart.Capability.Limits.Upper)},
		{"Capability", string(chart.Capability.Status)},
		{"CPU", optionalCell(chart.Capability.CPU)},
		{"CPL", optionalCell(chart.Capability.CPL)},
		{"CPK", optionalCell(chart.Capability.CPK)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(chartSummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

func addControlCharts(f *excelize.File, chart *domain.ControlChart) error {
	last := len(chart.Subgroups) + 1
	categories := seriesRange("A", last)

	xbar := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{Name: headerRef("C"), Categories: categories, Values: seriesRange("C", last)},
			{Name: headerRef("D"), Categories: categories, Values: seriesRange("D", last)},
			{Name: headerRef("E"), Categories: categories, Values: seriesRange("E", last)},
			{Name: headerRef("F"), Categories: categories, Values: seriesRange("F", last)},
		},
		Title:     []excelize.RichTextRun{{Text: fmt.Sprintf("X-bar Chart: %s", chart.Request.Parameter)}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 320},
	}
	if err := f.AddChart(chartDataSheet, "J2", xbar); err != nil {
		return fmt.Errorf("failed to add X-bar chart: %w", err)
	}

	rchart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{Name: headerRef("G"), Categories: categories, Values: seriesRange("G", last)},
			{Name: headerRef("H"), Categories: categories, Values: seriesRange("H", last)},
		},
		Title:     []excelize.RichTextRun{{Text: fmt.Sprintf("R Chart: %s", chart.Request.Parameter)}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 320},
	}
	if err := f.AddChart(chartDataSheet, "J20", rchart); err != nil {
		return fmt.Errorf("failed to add R chart: %w", err)
	}
	return nil
}

func headerRef(col string) string {
	return fmt.Sprintf("%s!$%s$1", chartDataSheet, col)
}

func seriesRange(col string, last int) string {
	return fmt.Sprintf("%s!$%s$2:$%s$%d", chartDataSheet, col, col, last)
}

func optionalCell(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}
