package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"micromes/internal/app"
	"micromes/internal/ingestion"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every workbook waiting in the intake directory",
		Long: `Scan the intake directory for Excel workbooks, extract the configured
measurements, store them and move each processed file to intake/success.
Problems are appended to intake/error_log.csv.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				report, err := a.Ingestion.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				printIngestReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

func printIngestReport(cmd *cobra.Command, report *ingestion.Report) {
	out := cmd.OutOrStdout()
	if report.FilesScanned == 0 {
		fmt.Fprintln(out, "No workbooks found in the intake directory")
		return
	}

	rows := make([][]string, 0, len(report.Files))
	for _, f := range report.Files {
		rows = append(rows, []string{
			f.Name,
			f.PartNumber,
			f.Outcome,
			strconv.Itoa(f.Records),
			strconv.Itoa(f.Issues),
			yesNo(f.Moved),
			f.Reason,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Part Number", "Outcome", "Records", "Issues", "Moved", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))

	fmt.Fprintf(out, "Scanned %d, moved %d, wrote %d records, %d errors logged in %s\n",
		report.FilesScanned, report.FilesMoved, report.RecordsWritten, report.Errors,
		report.Duration.Round(time.Millisecond))
	if report.Errors > 0 && report.ErrorLog != "" {
		fmt.Fprintf(out, "Error log: %s\n", report.ErrorLog)
	}
}
