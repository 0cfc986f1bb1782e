package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lotsort/internal/clustering"
	"lotsort/internal/enrichment"
	"lotsort/internal/groups"
	"lotsort/internal/logging"
	"lotsort/internal/notifications"
	"lotsort/internal/photo"
)

// Page is what the session currently presents to the user.
type Page string

const (
	// PageEditing shows the editable partition.
	PageEditing Page = "editing"
	// PageViewing shows the generated listings.
	PageViewing Page = "viewing"
)

// Ingester resolves capture times for a batch of uploads.
type Ingester interface {
	Ingest(ctx context.Context, sources []photo.Source) ([]photo.Item, error)
}

// Enricher describes every lot of a partition.
type Enricher interface {
	Enrich(ctx context.Context, p groups.Partition) (enrichment.Outcome, error)
}

// Dependencies are shared by every session of a registry.
type Dependencies struct {
	Ingester Ingester
	Enricher Enricher
	Notifier notifications.Service
	Gap      time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Session owns the state of one sorting session: the accumulated photos, the
// editable partition and, after confirmation, the listings.
//
// Edits are serialized by the session mutex. Enrichment runs on a snapshot
// without holding the lock; while it runs the session rejects edits with
// ErrBusy.
type Session struct {
	id        string
	createdAt time.Time
	deps      Dependencies
	logger    *slog.Logger

	mu         sync.Mutex
	items      []photo.Item
	store      *groups.Store
	page       Page
	confirming bool
	listings   []enrichment.Result
	lastError  string
	updatedAt  time.Time
}

// Snapshot is a consistent read of a session.
type Snapshot struct {
	ID         string              `json:"id"`
	Page       Page                `json:"page"`
	Confirming bool                `json:"confirming"`
	ItemCount  int                 `json:"item_count"`
	Groups     groups.Partition    `json:"groups"`
	Listings   []enrichment.Result `json:"listings"`
	LastError  string              `json:"last_error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// ConfirmResult reports the outcome of a confirmation.
type ConfirmResult struct {
	Snapshot     Snapshot            `json:"session"`
	Listings     []enrichment.Result `json:"listings"`
	Failures     []enrichment.Result `json:"failures,omitempty"`
	WebhookError string              `json:"webhook_error,omitempty"`
}

func newSession(id string, deps Dependencies) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	now := deps.Now()
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		deps:      deps,
		logger:    logging.NewComponentLogger(deps.Logger, "session").With(logging.String(logging.FieldSessionID, id)),
		store:     groups.NewStore(nil),
		page:      PageEditing,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.id,
		Page:       s.page,
		Confirming: s.confirming,
		ItemCount:  len(s.items),
		Groups:     s.store.Snapshot(),
		Listings:   append([]enrichment.Result{}, s.listings...),
		LastError:  s.lastError,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) checkEditableLocked() error {
	if s.confirming {
		return ErrBusy
	}
	if s.page != PageEditing {
		return ErrNotEditing
	}
	return nil
}

// Ingest resolves capture times for every source, then re-clusters the full
// accumulated photo set. Manual edits made before the upload are replaced by
// the new clustering.
func (s *Session) Ingest(ctx context.Context, sources []photo.Source) (Snapshot, error) {
	if len(sources) == 0 {
		return Snapshot{}, ErrNoPhotos
	}
	s.mu.Lock()
	err := s.checkEditableLocked()
	s.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}

	ctx = logging.WithSessionID(ctx, s.id)
	items, err := s.deps.Ingester.Ingest(ctx, sources)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ingest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return Snapshot{}, err
	}
	s.items = append(s.items, items...)
	partition := s.store.Reseed(clustering.Cluster(s.items, s.deps.Gap))
	s.touchLocked()

	fallbacks := 0
	for _, item := range items {
		if item.Source.IsFallback() {
			fallbacks++
		}
	}
	s.logger.Info("photos ingested",
		logging.Int("added", len(items)),
		logging.Int("total", len(s.items)),
		logging.Int("groups", len(partition)),
		logging.Int("timestamp_fallbacks", fallbacks),
	)
	return s.snapshotLocked(), nil
}

// MoveItem moves one photo between (or within) groups.
func (s *Session) MoveItem(srcGroup, dstGroup, srcItem, dstItem int) (Snapshot, error) {
	return s.mutate(func(store *groups.Store) error {
		_, err := store.MoveItem(srcGroup, dstGroup, srcItem, dstItem)
		return err
	})
}

// MoveItemToNewGroup moves one photo into a new group of its own.
func (s *Session) MoveItemToNewGroup(srcGroup, srcItem int) (Snapshot, error) {
	return s.mutate(func(store *groups.Store) error {
		_, err := store.MoveItemToNewGroup(srcGroup, srcItem)
		return err
	})
}

// AddEmptyGroup appends an empty group awaiting a placement.
func (s *Session) AddEmptyGroup() (Snapshot, error) {
	return s.mutate(func(store *groups.Store) error {
		store.AddEmptyGroup()
		return nil
	})
}

func (s *Session) mutate(apply func(*groups.Store) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return Snapshot{}, err
	}
	if err := apply(s.store); err != nil {
		return Snapshot{}, err
	}
	s.touchLocked()
	return s.snapshotLocked(), nil
}

// Edit returns from the listings view to the editable partition and discards
// the listings.
func (s *Session) Edit() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirming {
		return Snapshot{}, ErrBusy
	}
	s.page = PageEditing
	s.listings = nil
	s.touchLocked()
	return s.snapshotLocked(), nil
}

// Confirm describes every lot of the current partition. On success the session
// switches to the listings view and the grouping is submitted to the webhook;
// a webhook failure is reported in the result but does not undo the
// confirmation. On failure the session stays in editing mode and the error
// wraps the enrichment failure. The webhook is never sent for a failed batch,
// even when partial listings are returned; only the error notification fires.
func (s *Session) Confirm(ctx context.Context) (ConfirmResult, error) {
	s.mu.Lock()
	if err := s.checkEditableLocked(); err != nil {
		s.mu.Unlock()
		return ConfirmResult{}, err
	}
	if s.store.ItemCount() == 0 {
		s.mu.Unlock()
		return ConfirmResult{}, ErrNothingToConfirm
	}
	s.confirming = true
	partition := s.store.Snapshot()
	s.mu.Unlock()

	ctx = logging.WithSessionID(ctx, s.id)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("confirmation started", logging.Int("groups", len(partition)))
	outcome, enrichErr := s.deps.Enricher.Enrich(ctx, partition)

	s.mu.Lock()
	s.confirming = false
	s.touchLocked()
	if enrichErr != nil {
		s.lastError = enrichErr.Error()
		result := ConfirmResult{
			Snapshot: s.snapshotLocked(),
			Listings: outcome.Listings,
			Failures: outcome.Failures,
		}
		s.mu.Unlock()
		if errors.Is(enrichErr, enrichment.ErrBatchFailed) {
			if err := s.deps.Notifier.NotifyError(ctx, enrichErr, "confirm "+s.id); err != nil {
				logging.WarnWithContext(logger, "error notification failed", "notification_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check notifications.webhook_url"),
				)
			}
		}
		return result, fmt.Errorf("confirm: %w", enrichErr)
	}
	s.page = PageViewing
	s.listings = outcome.Listings
	s.lastError = ""
	result := ConfirmResult{
		Snapshot: s.snapshotLocked(),
		Listings: outcome.Listings,
	}
	s.mu.Unlock()

	if err := s.deps.Notifier.SubmitLots(ctx, s.submission(outcome.Listings)); err != nil {
		result.WebhookError = err.Error()
		logging.WarnWithContext(logger, "lot submission webhook failed", "webhook_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.webhook_url"),
			logging.String(logging.FieldImpact, "listings were generated but not delivered"),
		)
	}
	logger.Info("confirmation completed", logging.Int("listings", len(outcome.Listings)))
	return result, nil
}

func (s *Session) submission(listings []enrichment.Result) notifications.Submission {
	lots := make([]notifications.Lot, 0, len(listings))
	for _, listing := range listings {
		lots = append(lots, notifications.NewLot(listing.GroupIndex, listing.Items, listing.Text))
	}
	return notifications.Submission{
		SessionID:   s.id,
		SubmittedAt: s.deps.Now().UTC(),
		Groups:      lots,
	}
}

func (s *Session) touchLocked() {
	s.updatedAt = s.deps.Now()
}

type noopNotifier struct{}

func (noopNotifier) SubmitLots(context.Context, notifications.Submission) error { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error           { return nil }
func (noopNotifier) Enabled() bool                                              { return false }
