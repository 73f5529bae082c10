package main

import (
	"github.com/spf13/cobra"

	"micromes/internal/app"
	"micromes/pkg/contracts"
)

func newRootCommand(opts ...app.Option) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)
	ctx.appOptions = opts

	rootCmd := &cobra.Command{
		Use:           "micromes",
		Short:         "Micro MES statistical process control",
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate(contracts.GetVersionString() + "\n")

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newParamsCommand(ctx))
	rootCmd.AddCommand(newSelectionsCommand(ctx))
	rootCmd.AddCommand(newChartCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
