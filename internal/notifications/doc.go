// Package notifications posts confirmed lot groupings and error events to a
// webhook as JSON.
//
// The endpoint comes from notifications.webhook_url in config.toml. When no
// webhook is configured NewService returns a no-op implementation, so callers
// never need to check before submitting. Delivery is fire-and-forget from the
// caller's point of view: errors are returned for reporting but nothing is
// retried.
package notifications
