package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"lotsort/internal/config"
	"lotsort/internal/daemon"
	"lotsort/internal/enrichment"
	"lotsort/internal/logging"
	"lotsort/internal/notifications"
	"lotsort/internal/photo"
	"lotsort/internal/services/llm"
	"lotsort/internal/session"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the bound API address once serving.
	Ready func(address string)
}

// Run starts the lotsort API server and blocks until ctx is canceled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lotsort-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update lotsort.log link: %v\n", err)
	}
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, "lotsort.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	registry := session.NewRegistry(SessionDependencies(cfg, logger))
	d, err := daemon.New(cfg, registry, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind and the lock file in state_dir"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.Address())
	}

	<-signalCtx.Done()
	logger.Info("lotsort daemon shutting down")
	return nil
}

// SessionDependencies builds the collaborators shared by every session from
// configuration: the EXIF ingester, the LLM-backed enrichment orchestrator,
// and the confirmation webhook.
func SessionDependencies(cfg *config.Config, logger *slog.Logger) session.Dependencies {
	return session.Dependencies{
		Ingester: NewIngester(cfg, logger),
		Enricher: NewEnricher(cfg, logger),
		Notifier: notifications.NewService(cfg),
		Gap:      cfg.GapThreshold(),
		Logger:   logger,
	}
}

// NewIngester returns the timestamp-resolving ingester configured by cfg.
func NewIngester(cfg *config.Config, logger *slog.Logger) *photo.Ingester {
	return photo.NewIngester(photo.NewExifResolver(logger), cfg.Ingest.Workers, logger)
}

// NewEnricher returns an orchestrator that describes lots through the
// configured chat completion endpoint.
func NewEnricher(cfg *config.Config, logger *slog.Logger) *enrichment.Orchestrator {
	settings := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		MaxTokens:      settings.MaxTokens,
		Prompt:         settings.Prompt,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(settings.RetryAttempts))
	return enrichment.New(enrichment.NewLLMDescriber(client), enrichment.Options{
		CallTimeout:    cfg.CallTimeout(),
		PartialResults: cfg.Enrichment.PartialResults,
	}, logger)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "lotsort.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", cfg.LLM.APIKey != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.String("llm_base_url", cfg.LLM.BaseURL),
		logging.Duration("gap_threshold", cfg.GapThreshold()),
		logging.Duration("call_timeout", cfg.CallTimeout()),
		logging.Bool("partial_results", cfg.Enrichment.PartialResults),
		logging.Bool("webhook_enabled", cfg.Notifications.WebhookURL != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
	)
}
