package daemonrun_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lotsort/internal/daemonctl"
	"lotsort/internal/daemonrun"
	"lotsort/internal/testsupport"
)

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{
			LogLevel: "error",
			Ready:    func(address string) { ready <- address },
		})
	}()

	var address string
	select {
	case address = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for daemon")
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "lotsort.pid")); err != nil {
		t.Fatalf("expected pid file: %v", err)
	}
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || !running || pid != os.Getpid() {
		t.Fatalf("process info = %v, %d, %v", running, pid, err)
	}

	clientCfg := *cfg
	clientCfg.Paths.APIBind = address
	status, err := daemonctl.NewClient(&clientCfg).Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.Sessions != 0 {
		t.Fatalf("unexpected status %+v", status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "lotsort.pid")); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed, stat err = %v", err)
	}
}

func TestSessionDependenciesFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithGapMS(60_000))
	deps := daemonrun.SessionDependencies(cfg, nil)
	if deps.Ingester == nil || deps.Enricher == nil || deps.Notifier == nil {
		t.Fatalf("expected all collaborators, got %+v", deps)
	}
	if deps.Gap != time.Minute {
		t.Fatalf("gap = %s", deps.Gap)
	}
	if deps.Notifier.Enabled() {
		t.Fatal("notifier should be disabled without a webhook url")
	}
}
