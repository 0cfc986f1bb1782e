package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lotsort/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running lotsort API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			status, err := daemonctl.NewClient(cfg).Status(runCtx)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("lotsort", colorize) {
				fmt.Fprintln(out, line)
			}
			runKind := statusOK
			if !status.Running {
				runKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Running", runKind, yesNo(status.Running)+" (pid "+strconv.Itoa(status.PID)+")", colorize))
			fmt.Fprintln(out, renderStatusLine("API", statusInfo, status.APIAddress, colorize))
			fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo, strconv.Itoa(status.Sessions), colorize))
			fmt.Fprintln(out, renderStatusLine("Gap threshold", statusInfo, status.GapThreshold, colorize))
			keyKind := statusOK
			if !status.LLMKeyPresent {
				keyKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("LLM", keyKind, status.LLMModel+", key "+yesNo(status.LLMKeyPresent), colorize))
			fmt.Fprintln(out, renderStatusLine("Partial results", statusInfo, yesNo(status.PartialResults), colorize))
			fmt.Fprintln(out, renderStatusLine("Webhook", statusInfo, yesNo(status.WebhookEnabled), colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}
