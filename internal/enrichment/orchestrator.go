package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"lotsort/internal/groups"
	"lotsort/internal/logging"
	"lotsort/internal/photo"
)

// Result is the outcome of describing one lot.
type Result struct {
	GroupIndex int          `json:"group_index"`
	Items      []photo.Item `json:"items"`
	Text       string       `json:"text,omitempty"`
	Err        error        `json:"-"`
}

// Outcome collects the results of one confirmation, ordered by group index.
type Outcome struct {
	Listings []Result
	Failures []Result
}

// Options tunes the orchestrator.
type Options struct {
	// CallTimeout bounds each description call. Zero disables the deadline.
	CallTimeout time.Duration
	// PartialResults keeps successful listings when some lots fail.
	PartialResults bool
}

// Orchestrator fans one description call out per lot and joins them all.
type Orchestrator struct {
	describer Describer
	opts      Options
	logger    *slog.Logger
}

// New constructs an orchestrator.
func New(describer Describer, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		describer: describer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "enrichment"),
	}
}

// Enrich describes every non-empty group of p concurrently and returns once
// all calls have finished.
//
// With the default policy any failed lot fails the whole batch: the returned
// Outcome has no listings and the error is a *BatchError. With PartialResults
// the successful listings are kept alongside the failures, and the error is
// still a *BatchError. Cancelling ctx aborts outstanding calls.
func (o *Orchestrator) Enrich(ctx context.Context, p groups.Partition) (Outcome, error) {
	logger := logging.WithContext(ctx, o.logger)
	results := make([]Result, len(p))
	var wg sync.WaitGroup
	started := time.Now()
	calls := 0
	for i, group := range p {
		if len(group) == 0 {
			continue
		}
		calls++
		items := append([]photo.Item(nil), group...)
		results[i] = Result{GroupIndex: i, Items: items}
		wg.Add(1)
		go func(res *Result) {
			defer wg.Done()
			res.Text, res.Err = o.describe(ctx, res.Items)
		}(&results[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Info("enrichment canceled", logging.Int("lots", calls), logging.Error(err))
		return Outcome{}, fmt.Errorf("enrich: %w", err)
	}

	var (
		outcome  Outcome
		failures []*GroupError
	)
	for _, res := range results {
		if res.Items == nil {
			continue
		}
		if res.Err == nil {
			outcome.Listings = append(outcome.Listings, res)
			continue
		}
		gerr := &GroupError{GroupIndex: res.GroupIndex, Kind: classify(res.Err), Err: res.Err}
		res.Err = gerr
		outcome.Failures = append(outcome.Failures, res)
		failures = append(failures, gerr)
		logging.WarnWithContext(logger, "lot description failed", "enrichment_lot_failed",
			logging.Int(logging.FieldGroupIndex, res.GroupIndex),
			logging.String("failure_kind", string(gerr.Kind)),
			logging.Int("images", len(res.Items)),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "check llm api key, base_url and network reachability"),
			logging.String(logging.FieldImpact, "confirmation will not produce this listing"),
		)
	}

	if len(failures) == 0 {
		logger.Info("enrichment completed",
			logging.Int("lots", calls),
			logging.Duration("elapsed", time.Since(started)),
		)
		return outcome, nil
	}

	batchErr := &BatchError{Total: calls, Failures: failures}
	if !o.opts.PartialResults {
		outcome.Listings = nil
	}
	logger.Info("enrichment finished with failures",
		logging.Int("lots", calls),
		logging.Int("failed", len(failures)),
		logging.Bool("partial_results", o.opts.PartialResults),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcome, batchErr
}

func (o *Orchestrator) describe(ctx context.Context, items []photo.Item) (string, error) {
	callCtx := ctx
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}
	text, err := o.describer.DescribeLot(callCtx, photo.Images(items))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("call exceeded %s: %w", o.opts.CallTimeout, err)
		}
		return "", err
	}
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return "", fmt.Errorf("%w: empty description", ErrService)
	}
	return text, nil
}
