package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lotsort/internal/config"
	"lotsort/internal/photo"
)

const userAgent = "lotsort/0.1.0"

// Event names the kind of payload posted to the webhook.
type Event string

const (
	EventLotsSubmitted Event = "lots_submitted"
	EventError         Event = "error"
)

// Service defines the webhook surface used by sessions.
type Service interface {
	SubmitLots(ctx context.Context, submission Submission) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	Enabled() bool
}

// Submission is the confirmed grouping of one session.
type Submission struct {
	SessionID   string    `json:"session_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Groups      []Lot     `json:"groups"`
}

// Lot is one confirmed group and, when available, its generated listing.
type Lot struct {
	Index       int        `json:"index"`
	Description string     `json:"description,omitempty"`
	Images      []ImageRef `json:"images"`
}

// ImageRef identifies one photo without its payload.
type ImageRef struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewLot builds a Lot from the items of a group.
func NewLot(index int, items []photo.Item, description string) Lot {
	refs := make([]ImageRef, len(items))
	for i, item := range items {
		refs[i] = ImageRef{ID: item.ID, Name: item.Image.Name, CapturedAt: item.CapturedAt}
	}
	return Lot{Index: index, Description: strings.TrimSpace(description), Images: refs}
}

// NewService builds a webhook-backed service when a webhook URL is configured.
// Without one, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint:      endpoint,
		client:        &http.Client{Timeout: timeout},
		confirmations: cfg.Notifications.Confirmations,
		errors:        cfg.Notifications.Errors,
	}
}

type webhookService struct {
	endpoint      string
	client        *http.Client
	confirmations bool
	errors        bool
}

type errorPayload struct {
	Event   Event     `json:"event"`
	Context string    `json:"context,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type submissionPayload struct {
	Event Event `json:"event"`
	Submission
}

func (w *webhookService) Enabled() bool {
	return true
}

func (w *webhookService) SubmitLots(ctx context.Context, submission Submission) error {
	if !w.confirmations {
		return nil
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if submission.Groups == nil {
		submission.Groups = []Lot{}
	}
	return w.send(ctx, submissionPayload{Event: EventLotsSubmitted, Submission: submission})
}

func (w *webhookService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !w.errors {
		return nil
	}
	message := "unknown"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	return w.send(ctx, errorPayload{
		Event:   EventError,
		Context: strings.TrimSpace(contextLabel),
		Message: message,
		At:      time.Now().UTC(),
	})
}

func (w *webhookService) send(ctx context.Context, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) SubmitLots(context.Context, Submission) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) Enabled() bool                                    { return false }
