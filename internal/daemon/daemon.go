package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"lotsort/internal/config"
	"lotsort/internal/logging"
	"lotsort/internal/session"
)

// Daemon serves the session API and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *session.Registry
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	startedAt atomic.Pointer[time.Time]
	running   atomic.Bool
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	StartedAt      time.Time `json:"started_at,omitzero"`
	LockFilePath   string    `json:"lock_file"`
	APIAddress     string    `json:"api_address,omitempty"`
	Sessions       int       `json:"sessions"`
	LLMModel       string    `json:"llm_model"`
	LLMKeyPresent  bool      `json:"llm_key_present"`
	GapThreshold   string    `json:"gap_threshold"`
	PartialResults bool      `json:"partial_results"`
	WebhookEnabled bool      `json:"webhook_enabled"`
}

// New constructs a daemon over registry.
func New(cfg *config.Config, registry *session.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || registry == nil {
		return nil, errors.New("daemon requires config and session registry")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: registry,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lotsort daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("lotsort daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops serving and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("lotsort daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Address returns the bound API address while running.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		Sessions:       d.registry.Len(),
		LLMModel:       d.cfg.LLM.Model,
		LLMKeyPresent:  d.cfg.LLM.APIKey != "",
		GapThreshold:   d.cfg.GapThreshold().String(),
		PartialResults: d.cfg.Enrichment.PartialResults,
		WebhookEnabled: d.cfg.Notifications.WebhookURL != "",
	}
	if status.Running {
		status.APIAddress = d.api.address()
		if started := d.startedAt.Load(); started != nil {
			status.StartedAt = *started
		}
	}
	return status
}
