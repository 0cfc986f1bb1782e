package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lotsort/internal/config"
	"lotsort/internal/notifications"
	"lotsort/internal/photo"
)

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	svc := notifications.NewService(&cfg)
	if svc.Enabled() {
		t.Fatal("expected noop service to be disabled")
	}
	if err := svc.SubmitLots(context.Background(), notifications.Submission{SessionID: "s"}); err != nil {
		t.Fatalf("expected noop submit to return nil, got %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "confirm"); err != nil {
		t.Fatalf("expected noop notify to return nil, got %v", err)
	}
}

func TestSubmitLotsPostsJSON(t *testing.T) {
	var (
		body        map[string]any
		contentType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Confirmations = true
	svc := notifications.NewService(&cfg)

	captured := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	items := []photo.Item{
		{ID: "a", Image: photo.Image{Name: "ring.jpg"}, CapturedAt: captured},
		{ID: "b", Image: photo.Image{Name: "ring-2.jpg"}, CapturedAt: captured.Add(time.Minute)},
	}
	submission := notifications.Submission{
		SessionID:   "0f8c2a1e-aaaa",
		SubmittedAt: captured.Add(time.Hour),
		Groups:      []notifications.Lot{notifications.NewLot(0, items, " Gold ring ")},
	}
	if err := svc.SubmitLots(context.Background(), submission); err != nil {
		t.Fatalf("SubmitLots returned error: %v", err)
	}

	if contentType != "application/json" {
		t.Fatalf("expected json content type, got %q", contentType)
	}
	if body["event"] != "lots_submitted" || body["session_id"] != "0f8c2a1e-aaaa" {
		t.Fatalf("unexpected payload header fields: %v", body)
	}
	if body["submitted_at"] != "2024-05-01T11:00:00Z" {
		t.Fatalf("unexpected submitted_at %v", body["submitted_at"])
	}
	groups, ok := body["groups"].([]any)
	if !ok || len(groups) != 1 {
		t.Fatalf("expected one group, got %v", body["groups"])
	}
	group := groups[0].(map[string]any)
	if group["description"] != "Gold ring" {
		t.Fatalf("expected trimmed description, got %v", group["description"])
	}
	images := group["images"].([]any)
	if len(images) != 2 || images[1].(map[string]any)["name"] != "ring-2.jpg" {
		t.Fatalf("unexpected images %v", images)
	}
}

func TestSubmitLotsSkippedWhenConfirmationsDisabled(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Confirmations = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	if err := svc.SubmitLots(context.Background(), notifications.Submission{SessionID: "s"}); err != nil {
		t.Fatalf("SubmitLots returned error: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), ""); err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no webhook calls, got %d", calls)
	}
}

func TestWebhookErrorStatusIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Confirmations = true
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg)

	err := svc.SubmitLots(context.Background(), notifications.Submission{SessionID: "s"})
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected status error with body, got %v", err)
	}
}

func TestNotifyErrorPayload(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New(" enrichment failed "), "confirm"); err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}
	if body["event"] != "error" || body["context"] != "confirm" || body["message"] != "enrichment failed" {
		t.Fatalf("unexpected error payload %v", body)
	}
}
