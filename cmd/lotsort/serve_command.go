package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lotsort/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}
			if err := cfg.RequireLLMKey(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: ctx.logLevel(cfg),
				Ready: func(address string) {
					fmt.Fprintf(out, "lotsort API listening on http://%s\n", address)
				},
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
