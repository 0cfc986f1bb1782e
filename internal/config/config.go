package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Clustering contains the temporal clustering knobs.
type Clustering struct {
	// GapThresholdMS is the maximum delta between chronologically consecutive
	// photos of the same lot. Default: 300000 (5 minutes).
	GapThresholdMS int64 `toml:"gap_threshold_ms"`
}

// Ingest contains configuration for photo uploads and timestamp resolution.
type Ingest struct {
	Workers      int      `toml:"workers"`
	MaxUploadMiB int      `toml:"max_upload_mib"`
	Extensions   []string `toml:"extensions"`
}

// LLM contains the chat completion connection settings used for lot descriptions.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	Prompt         string `toml:"prompt"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	// TimeoutSeconds bounds one HTTP attempt. It is capped at
	// enrichment.call_timeout_seconds, which bounds all attempts of a lot.
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Enrichment contains configuration for the batch description orchestrator.
type Enrichment struct {
	CallTimeoutSeconds int `toml:"call_timeout_seconds"`
	// PartialResults surfaces successful lots even when other lots fail.
	// Off by default: any failed lot fails the whole batch.
	PartialResults bool `toml:"partial_results"`
}

// Notifications contains configuration for the confirmation webhook.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
	Confirmations  bool   `toml:"confirmations"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lotsort.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Clustering: gap threshold for lot detection
//   - Ingest: upload limits and timestamp resolution workers
//   - LLM: chat completion endpoint used for lot descriptions
//   - Enrichment: per-call deadline and failure policy
//   - Notifications: confirmation webhook
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Clustering    Clustering    `toml:"clustering"`
	Ingest        Ingest        `toml:"ingest"`
	LLM           LLM           `toml:"llm"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lotsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GapThreshold returns the clustering gap as a duration.
func (c *Config) GapThreshold() time.Duration {
	return time.Duration(c.Clustering.GapThresholdMS) * time.Millisecond
}

// CallTimeout returns the per-lot enrichment deadline covering every retry
// attempt. Zero disables it.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Enrichment.CallTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the multipart upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Ingest.MaxUploadMiB) << 20
}

// LockPath returns the single-instance lock file used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lotsort.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM settings handed to the chat client.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Prompt         string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		MaxTokens:      c.LLM.MaxTokens,
		Prompt:         strings.TrimSpace(c.LLM.Prompt),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		RetryAttempts:  c.LLM.RetryAttempts,
	}
}
