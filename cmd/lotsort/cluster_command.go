package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"lotsort/internal/clustering"
	"lotsort/internal/config"
	"lotsort/internal/daemonrun"
	"lotsort/internal/groups"
	"lotsort/internal/logging"
	"lotsort/internal/photo"
)

type clusterOptions struct {
	gap     time.Duration
	jsonOut bool
}

func newClusterCommand(ctx *commandContext) *cobra.Command {
	var opts clusterOptions
	cmd := &cobra.Command{
		Use:   "cluster DIR",
		Short: "Group the photos in a directory into lots by capture time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partition, _, err := loadPartition(cmd, ctx, args[0], opts.gap)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd, lotViews(partition, nil))
			}
			renderPartition(cmd, partition)
			return nil
		},
	}
	cmd.Flags().DurationVar(&opts.gap, "gap", 0, "Gap threshold between lots (default from clustering.gap_threshold_ms)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

// loadPartition reads dir, resolves capture times and clusters the result.
func loadPartition(cmd *cobra.Command, ctx *commandContext, dir string, gap time.Duration) (groups.Partition, *config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := ctx.commandLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	if gap < 0 {
		return nil, nil, errors.New("--gap must not be negative")
	}
	if !cmd.Flags().Changed("gap") {
		gap = cfg.GapThreshold()
	}

	sources, err := photo.LoadDir(dir, cfg.Ingest.Extensions)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no photos found in %s", dir)
	}
	items, err := ingest(cmd.Context(), cfg, logger, sources)
	if err != nil {
		return nil, nil, err
	}
	partition := clustering.Cluster(items, gap)
	logger.Debug("clustered directory",
		logging.String("dir", dir),
		logging.Int("photos", len(items)),
		logging.Int("lots", len(partition)),
		logging.Duration("gap", gap),
	)
	return partition, cfg, nil
}

func ingest(ctx context.Context, cfg *config.Config, logger *slog.Logger, sources []photo.Source) ([]photo.Item, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return daemonrun.NewIngester(cfg, logger).Ingest(ctx, sources)
}
