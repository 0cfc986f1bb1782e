package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateClustering(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateClustering() error {
	if c.Clustering.GapThresholdMS < 0 {
		return errors.New("clustering.gap_threshold_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if err := validateHTTPURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
		"llm.retry_attempts":  c.LLM.RetryAttempts,
		"ingest.workers":      c.Ingest.Workers,
	})
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.CallTimeoutSeconds < 0 {
		return errors.New("enrichment.call_timeout_seconds must be >= 0 (0 disables the deadline)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if strings.TrimSpace(c.Notifications.WebhookURL) == "" {
		return nil
	}
	return validateHTTPURL("notifications.webhook_url", c.Notifications.WebhookURL)
}

// RequireLLMKey reports whether lot descriptions can be generated.
func (c *Config) RequireLLMKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'lotsort config init')", defaultPath)
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
