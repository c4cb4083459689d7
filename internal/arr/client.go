// Package arr notifies Sonarr-family media managers about completed downloads.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// commandNames maps a service kind to the import-scan command it accepts.
var commandNames = map[string]string{
	"sonarr":   "DownloadedEpisodesScan",
	"radarr":   "DownloadedMoviesScan",
	"whisparr": "DownloadedEpisodesScan",
}

// Client posts import-scan commands to one media manager.
type Client struct {
	httpClient *http.Client
	kind       string
	baseURL    string
	apiKey     string
}

// NewClient creates a notifier for the given service kind (sonarr, radarr or
// whisparr).
func NewClient(kind, baseURL, apiKey string) (*Client, error) {
	if _, ok := commandNames[kind]; !ok {
		return nil, fmt.Errorf("unknown arr service kind %q", kind)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		kind:       kind,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}, nil
}

// Kind returns the service kind this client notifies.
func (c *Client) Kind() string {
	return c.kind
}

type commandRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// NotifyDownloadComplete asks the service to scan path for newly downloaded
// media. Notification is best-effort: the caller logs failures and moves on.
func (c *Client) NotifyDownloadComplete(ctx context.Context, path string) error {
	payload, err := json.Marshal(commandRequest{
		Name: commandNames[c.kind],
		Path: path,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v3/command", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s notify failed: %w", c.kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s notify returned %d: %s", c.kind, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
