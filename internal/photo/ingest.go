package photo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lotsort/internal/logging"
)

const defaultWorkers = 8

// Ingester resolves capture timestamps for a batch of uploads.
type Ingester struct {
	resolver Resolver
	workers  int
	logger   *slog.Logger
}

// NewIngester builds an ingester that resolves up to workers files at once.
func NewIngester(resolver Resolver, workers int, logger *slog.Logger) *Ingester {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if resolver == nil {
		resolver = NewExifResolver(logger)
	}
	return &Ingester{
		resolver: resolver,
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest resolves every source and returns one item per source in input order.
// It returns only after all resolutions finished; a canceled context yields no
// items at all so callers never cluster a partial batch.
func (in *Ingester) Ingest(ctx context.Context, sources []Source) ([]Item, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	started := time.Now()
	items := make([]Item, len(sources))
	sem := make(chan struct{}, in.workers)
	var wg sync.WaitGroup

	for i, src := range sources {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, src Source) {
			defer wg.Done()
			defer func() { <-sem }()
			res := in.resolver.Resolve(ctx, src)
			items[idx] = NewItem(Image{
				Name:        src.Name,
				ContentType: contentTypeFor(src),
				Data:        src.Data,
			}, res)
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest canceled: %w", err)
	}

	fallbacks := 0
	for _, item := range items {
		if item.Source.IsFallback() {
			fallbacks++
		}
	}
	logging.WithContext(ctx, in.logger).Info("batch ingested",
		logging.Int("files", len(items)),
		logging.Int("timestamp_fallbacks", fallbacks),
		logging.Duration("elapsed", time.Since(started)),
	)
	return items, nil
}
