package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"micromes/internal/app"
	"micromes/internal/exporter"
	"micromes/pkg/contracts/domain"
)

func newChartCommand(ctx *commandContext) *cobra.Command {
	var (
		partNumber string
		parameter  string
		month      string
		exportPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Compute an X-bar/R control chart for a part number and parameter",
		Example: `  micromes chart -p 03232-0010-000 -m "Y Direction Measurement on Front Rail Z3" --month 2024-03
  micromes chart -p 03232-0010-000 -m Gap --export gap.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.ChartRequest{
				PartNumber: strings.TrimSpace(partNumber),
				Parameter:  parameter,
			}
			if strings.TrimSpace(month) != "" {
				m, err := domain.ParseMonth(month)
				if err != nil {
					return err
				}
				req.Month = m
			}

			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				chart, err := a.Charts.Chart(cmd.Context(), req)
				if err != nil {
					return err
				}

				if exportPath != "" {
					if err := exportChart(exportPath, chart); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Chart exported to %s\n", exportPath)
				}

				if jsonOutput {
					return writeJSON(cmd, chart)
				}
				printChart(cmd, chart)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&partNumber, "part-number", "p", "", "Part number to chart")
	cmd.Flags().StringVarP(&parameter, "parameter", "m", "", "Measurement parameter name")
	cmd.Flags().StringVar(&month, "month", "", "Restrict to a calendar month (YYYY-MM)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the chart to a .xlsx or .csv file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the chart as JSON")
	_ = cmd.MarkFlagRequired("part-number")
	_ = cmd.MarkFlagRequired("parameter")
	return cmd
}

func exportChart(path string, chart *domain.ControlChart) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" {
		return fmt.Errorf("unsupported export format %q: want .xlsx or .csv", ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if ext == ".csv" {
		err = exporter.WriteChartCSV(f, chart)
	} else {
		err = exporter.WriteChartWorkbook(f, chart)
	}
	if err != nil {
		return fmt.Errorf("export chart: %w", err)
	}
	return f.Close()
}

func printChart(cmd *cobra.Command, chart *domain.ControlChart) {
	out := cmd.OutOrStdout()

	monthLabel := "all"
	if !chart.Request.Month.IsZero() {
		monthLabel = chart.Request.Month.String()
	}
	cpk := string(chart.Capability.Status)
	if chart.Capability.CPK != nil {
		cpk = formatFloat(*chart.Capability.CPK)
	}

	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Part Number", chart.Request.PartNumber},
		{"Module", chart.ModuleName},
		{"Parameter", chart.Request.Parameter},
		{"Month", monthLabel},
		{"Sample Size", strconv.Itoa(chart.SampleSize)},
		{"Subgroup Size", strconv.Itoa(chart.SubgroupSize)},
		{"Mean", formatFloat(chart.Mean)},
		{"Std Dev", formatFloat(chart.StdDev)},
		{"UCL", formatFloat(chart.UCL)},
		{"LCL", formatFloat(chart.LCL)},
		{"R Center", formatFloat(chart.RCenter)},
		{"Lower Limit", formatOptional(chart.Capability.Limits.Lower)},
		{"Upper Limit", formatOptional(chart.Capability.Limits.Upper)},
		{"CPK", cpk},
	}))

	rows := make([][]string, 0, len(chart.Subgroups))
	for _, sg := range chart.Subgroups {
		rows = append(rows, []string{
			strconv.Itoa(sg.Index),
			strconv.Itoa(sg.Size),
			formatFloat(sg.Mean),
			formatFloat(sg.Range),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Subgroup", "Size", "X-bar", "Range"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
}
