// Package exporter writes the files operators open outside the service.
//
// CSVWriter is the shared CSV primitive with append and header-once
// semantics. ErrorLog builds on it for the intake error_log.csv.
//
// Control charts are exported either as an .xlsx workbook with native
// X-bar and R line charts (WriteChartWorkbook) or as a flat CSV
// (WriteChartCSV):
//
//	var buf bytes.Buffer
//	if err := exporter.WriteChartWorkbook(&buf, chart); err != nil {
//		return err
//	}
package exporter
