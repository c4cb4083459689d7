// Package putio provides a client for the put.io v2 REST API.
package putio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultBaseURL is the API endpoint for everything except uploads.
	DefaultBaseURL = "https://api.put.io/v2"

	// DefaultUploadURL receives torrent-file uploads.
	DefaultUploadURL = "https://upload.put.io/v2"
)

// Client talks to the put.io API. All methods take a context and return
// typed payloads; non-2xx responses surface as *APIError.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	uploadURL  string
	apiKey     string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(base, "/")
		c.uploadURL = strings.TrimSuffix(base, "/")
	}
}

// NewClient creates an API client. Transient failures (connection errors,
// 429, 5xx) are retried up to 2 times with 1s-30s backoff.
func NewClient(apiKey string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2 // 3 total attempts
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil

	httpClient := retryClient.StandardClient()
	httpClient.Timeout = 30 * time.Second

	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		uploadURL:  DefaultUploadURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request with authentication. Callers own the
// response body.
func (c *Client) doRequest(ctx context.Context, method, rawurl string, body io.Reader, contentType string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// do performs a request and decodes a JSON payload into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	resp, err := c.doRequest(ctx, method, c.baseURL+path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	body := strings.NewReader(form.Encode())
	return c.do(ctx, "POST", path, body, "application/x-www-form-urlencoded", out)
}

// ListTransfers returns all transfers on the account.
func (c *Client) ListTransfers(ctx context.Context) ([]Transfer, error) {
	var payload listTransfersResponse
	if err := c.do(ctx, "GET", "/transfers/list", nil, "", &payload); err != nil {
		return nil, err
	}
	return payload.Transfers, nil
}

// GetTransfer returns a single transfer by id.
func (c *Client) GetTransfer(ctx context.Context, id int64) (*Transfer, error) {
	var payload getTransferResponse
	path := "/transfers/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, "GET", path, nil, "", &payload); err != nil {
		return nil, err
	}
	return &payload.Transfer, nil
}

// AddTransfer submits a magnet link or torrent URL for remote fetching.
func (c *Client) AddTransfer(ctx context.Context, link string) (*Transfer, error) {
	form := url.Values{"url": {link}}
	var payload getTransferResponse
	if err := c.postForm(ctx, "/transfers/add", form, &payload); err != nil {
		return nil, err
	}
	return &payload.Transfer, nil
}

// RemoveTransfer deletes a transfer from the account. The stored files are
// removed with it.
func (c *Client) RemoveTransfer(ctx context.Context, id int64) error {
	form := url.Values{"transfer_ids": {strconv.FormatInt(id, 10)}}
	return c.postForm(ctx, "/transfers/remove", form, nil)
}

// ListFiles returns the children of the given folder along with the folder
// itself as Parent.
func (c *Client) ListFiles(ctx context.Context, parentID int64) (*FileList, error) {
	var payload FileList
	path := "/files/list?parent_id=" + strconv.FormatInt(parentID, 10)
	if err := c.do(ctx, "GET", path, nil, "", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetDownloadURL resolves a time-limited download URL for a stored file.
// The returned URL embeds credentials and must not be logged.
func (c *Client) GetDownloadURL(ctx context.Context, fileID int64) (string, error) {
	var payload urlResponse
	path := "/files/" + strconv.FormatInt(fileID, 10) + "/url"
	if err := c.do(ctx, "GET", path, nil, "", &payload); err != nil {
		return "", err
	}
	return payload.URL, nil
}

// AccountInfo returns the account owner details. Used as a startup
// credential check.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var payload accountResponse
	if err := c.do(ctx, "GET", "/account/info", nil, "", &payload); err != nil {
		return nil, err
	}
	return &payload.Info, nil
}

// UploadTorrent uploads raw torrent metainfo, which the service turns into a
// transfer.
func (c *Client) UploadTorrent(ctx context.Context, filename string, metainfo []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(metainfo); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", c.uploadURL+"/files/upload", &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     "POST",
			Path:       "/files/upload",
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return nil
}
