package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"micromes/internal/app"
)

func newSelectionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "selections",
		Short: "List part numbers, parameters and months with enough data to chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				selections, err := a.Charts.Selections(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, selections)
				}
				if len(selections) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No part number has %d or more measurements yet\n", a.Registry.MinimumSampleSize)
					return nil
				}

				var rows [][]string
				for _, sel := range selections {
					for _, p := range sel.Parameters {
						months := make([]string, 0, len(p.Months))
						for _, m := range p.Months {
							months = append(months, m.String())
						}
						rows = append(rows, []string{
							sel.Label,
							strconv.Itoa(sel.Records),
							p.Parameter,
							strings.Join(months, ", "),
						})
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Part Number", "Records", "Parameter", "Months"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the selections as JSON")
	return cmd
}
