package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lotsort/internal/daemon"
	"lotsort/internal/daemonrun"
	"lotsort/internal/logging"
	"lotsort/internal/session"
	"lotsort/internal/testsupport"
)

func writeTwoLots(t *testing.T, dir string) {
	t.Helper()
	base := time.Date(2024, 3, 2, 10, 0, 0, 0, time.Local)
	testsupport.WriteJPEG(t, dir, "a.jpg", base)
	testsupport.WriteJPEG(t, dir, "b.jpg", base.Add(time.Minute))
	testsupport.WriteJPEG(t, dir, "c.jpg", base.Add(30*time.Minute))
	testsupport.WriteJPEG(t, dir, "d.jpg", base.Add(31*time.Minute))
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("skip me"))
}

func llmServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"finish_reason": "stop",
				"message":       map[string]any{"content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClusterCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTwoLots(t, env.photoDir)

	out, _, err := runCLI(t, env.configPath, "cluster", env.photoDir, "--json")
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	var lots []lotView
	if err := json.Unmarshal([]byte(out), &lots); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(lots) != 2 {
		t.Fatalf("expected 2 lots, got %d: %s", len(lots), out)
	}
	if lots[0].Lot != 1 || len(lots[0].Images) != 2 || lots[0].Images[0].Name != "a.jpg" {
		t.Fatalf("unexpected first lot %+v", lots[0])
	}
	if lots[1].Images[1].Name != "d.jpg" || lots[1].Images[1].Source != "exif_original" {
		t.Fatalf("unexpected second lot %+v", lots[1])
	}
}

func TestClusterCommandGapFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTwoLots(t, env.photoDir)

	out, _, err := runCLI(t, env.configPath, "cluster", env.photoDir, "--gap", "1h")
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	requireContains(t, out, "4 photos in 1 lots")
	requireContains(t, out, "c.jpg")

	out, _, err = runCLI(t, env.configPath, "cluster", env.photoDir, "--gap", "0s")
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	requireContains(t, out, "4 photos in 4 lots")
}

func TestClusterCommandEmptyDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.photoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, env.configPath, "cluster", env.photoDir)
	if err == nil || !strings.Contains(err.Error(), "no photos found") {
		t.Fatalf("expected no photos error, got %v", err)
	}
}

func TestDescribeCommandPrintsListings(t *testing.T) {
	srv := llmServer(t, http.StatusOK, "  Gold signet ring  ")
	env := setupCLITestEnv(t, testsupport.WithLLMEndpoint(srv.URL))
	writeTwoLots(t, env.photoDir)

	out, _, err := runCLI(t, env.configPath, "describe", env.photoDir, "--json")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	var view describeView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(view.Listings) != 2 || len(view.Failures) != 0 {
		t.Fatalf("unexpected outcome %+v", view)
	}
	for i, listing := range view.Listings {
		if listing.Lot != i+1 || listing.Description != "Gold signet ring" {
			t.Fatalf("listing %d = %+v", i, listing)
		}
	}
}

func TestDescribeCommandReportsFailedLots(t *testing.T) {
	srv := llmServer(t, http.StatusInternalServerError, "")
	env := setupCLITestEnv(t, testsupport.WithLLMEndpoint(srv.URL))
	writeTwoLots(t, env.photoDir)

	out, _, err := runCLI(t, env.configPath, "describe", env.photoDir)
	if err == nil {
		t.Fatal("expected describe to fail")
	}
	requireContains(t, err.Error(), "2 of 2 lots could not be described")
	requireContains(t, out, "Failed lots")
	requireContains(t, out, "Lot 1:")
	requireContains(t, out, "a.jpg, b.jpg")
}

func TestDescribeCommandRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.LLM.APIKey = ""
	env.writeConfig(t)
	t.Setenv("OPENAI_API_KEY", "")
	writeTwoLots(t, env.photoDir)

	_, _, err := runCLI(t, env.configPath, "describe", env.photoDir)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key is required") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestStatusCommandQueriesRunningServer(t *testing.T) {
	env := setupCLITestEnv(t)
	logger := logging.NewNop()
	registry := session.NewRegistry(daemonrun.SessionDependencies(env.cfg, logger))
	registry.Create()
	d, err := daemon.New(env.cfg, registry, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		d.Close()
	})
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	env.cfg.Paths.APIBind = d.Address()
	env.writeConfig(t)

	out, _, err := runCLI(t, env.configPath, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !status.Running || status.Sessions != 1 || status.APIAddress != d.Address() {
		t.Fatalf("unexpected status %+v", status)
	}

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running:")
	requireContains(t, out, "[OK] yes")
	requireContains(t, out, "Sessions:")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
