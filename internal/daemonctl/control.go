package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lotsort/internal/config"
	"lotsort/internal/daemon"
)

const defaultTimeout = 5 * time.Second

// Client queries a running lotsort API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the API address configured in cfg.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: "http://" + DialAddress(cfg.Paths.APIBind),
		token:   strings.TrimSpace(cfg.Paths.APIToken),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// DialAddress converts a listen address into one a local client can dial.
// Unspecified hosts become loopback.
func DialAddress(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// Status fetches daemon status from the API.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return status, wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, fmt.Errorf("status request: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func wrapDialError(err error, target string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `lotsort serve`", target)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

// ProcessInfo reports the PID recorded by a running daemon, if any.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.StateDir, "lotsort.pid"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, fmt.Errorf("parse pid file: %w", err)
	}
	return true, pid, nil
}
