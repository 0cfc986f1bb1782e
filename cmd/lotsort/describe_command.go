package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lotsort/internal/daemonrun"
	"lotsort/internal/enrichment"
)

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var gap time.Duration
	var jsonOut bool
	var partial bool
	cmd := &cobra.Command{
		Use:   "describe DIR",
		Short: "Cluster a directory and generate a listing for every lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partition, cfg, err := loadPartition(cmd, ctx, args[0], gap)
			if err != nil {
				return err
			}
			if err := cfg.RequireLLMKey(); err != nil {
				return err
			}
			if cmd.Flags().Changed("partial") {
				cfg.Enrichment.PartialResults = partial
			}
			logger, err := ctx.commandLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			outcome, enrichErr := daemonrun.NewEnricher(cfg, logger).Enrich(runCtx, partition)
			var batchErr *enrichment.BatchError
			if enrichErr != nil && !errors.As(enrichErr, &batchErr) {
				return enrichErr
			}

			if jsonOut {
				if err := writeJSON(cmd, describeViews(outcome)); err != nil {
					return err
				}
			} else {
				renderOutcome(cmd, outcome)
			}
			if batchErr != nil {
				return fmt.Errorf("%d of %d lots could not be described", len(batchErr.Failures), batchErr.Total)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&gap, "gap", 0, "Gap threshold between lots (default from clustering.gap_threshold_ms)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&partial, "partial", false, "Print successful listings even when some lots fail")
	return cmd
}
