package daemonctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lotsort/internal/daemon"
	"lotsort/internal/testsupport"
)

func TestDialAddress(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7480": "127.0.0.1:7480",
		":7480":          "127.0.0.1:7480",
		"0.0.0.0:9000":   "127.0.0.1:9000",
		"[::]:9000":      "127.0.0.1:9000",
		"example:80":     "example:80",
	}
	for in, want := range cases {
		if got := DialAddress(in); got != want {
			t.Errorf("DialAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(daemon.Status{Running: true, Sessions: 2, LLMModel: "m"})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	status, err := NewClient(cfg).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization = %q", auth)
	}
	if !status.Running || status.Sessions != 2 || status.LLMModel != "m" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	_, err := NewClient(cfg).Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestProcessInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, _, err := ProcessInfo(cfg)
	if err != nil || running {
		t.Fatalf("expected no daemon, got %v %v", running, err)
	}
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.StateDir, "lotsort.pid"), []byte("4242\n"))
	running, pid, err := ProcessInfo(cfg)
	if err != nil || !running || pid != 4242 {
		t.Fatalf("got %v %d %v", running, pid, err)
	}
}
