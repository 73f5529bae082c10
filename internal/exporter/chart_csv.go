package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"micromes/pkg/contracts/domain"
)

var chartCSVHeaders = []string{"Subgroup", "Size", "X-bar", "UCL", "LCL", "AVG", "Range", "R AVG", "Lower Limit", "Upper Limit", "CPK"}

// WriteChartCSV writes one row per subgroup with the chart lines repeated
// on every row, the shape spreadsheet tools plot directly
func WriteChartCSV(w io.Writer, chart *domain.ControlChart) error {
	if chart == nil {
		return fmt.Errorf("nil control chart")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(chartCSVHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, sg := range chart.Subgroups {
		record := []string{
			formatInt(sg.Index),
			formatInt(sg.Size),
			formatFloat(sg.Mean),
			formatFloat(chart.UCL),
			formatFloat(chart.LCL),
			formatFloat(chart.Mean),
			formatFloat(sg.Range),
			formatFloat(chart.RCenter),
			formatOptional(chart.Capability.Limits.Lower),
			formatOptional(chart.Capability.Limits.Upper),
			formatOptional(chart.Capability.CPK),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write subgroup %d: %w", sg.Index, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
