package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"micromes/internal/app"
)

func newParamsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the measurement parameter registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				params := a.Charts.Parameters()
				if jsonOutput {
					return writeJSON(cmd, params)
				}

				rows := make([][]string, 0, len(params))
				for _, p := range params {
					rows = append(rows, []string{
						p.Name,
						p.MatchPartNumber,
						strconv.Itoa(p.SerialColumn),
						strconv.Itoa(p.ValueColumn),
						strconv.Itoa(p.StartRow),
						formatOptional(p.Limits.Lower),
						formatOptional(p.Limits.Upper),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Parameter", "Part Number", "SN Col", "Value Col", "Start Row", "Lower", "Upper"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the registry as JSON")
	return cmd
}
