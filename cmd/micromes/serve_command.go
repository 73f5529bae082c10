package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"micromes/internal/app"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and WebSocket progress feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			a, err := app.New(cmd.Context(), cfg, ctx.appOptions...)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", a.Server.Addr)
			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override the configured listen port")
	return cmd
}
