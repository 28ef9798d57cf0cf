package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/yourusername/yt-grab-go/api/handlers"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

// apiError is a non-2xx response from the server
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// apiClient talks to a yt-grab server over its REST API
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Info fetches video or playlist metadata
func (c *apiClient) Info(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	var info domain.MediaInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/info", url.Values{"url": {rawURL}}, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Download runs a download and waits for it to finish
func (c *apiClient) Download(ctx context.Context, body handlers.DownloadRequest) (*domain.DownloadResult, error) {
	var result domain.DownloadResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/downloads", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Batch downloads several URLs in order
func (c *apiClient) Batch(ctx context.Context, body handlers.BatchRequest) ([]app.BatchItem, error) {
	var items []app.BatchItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/downloads/batch", nil, body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Search queries YouTube through the server
func (c *apiClient) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	params := url.Values{"q": {query}}
	if maxResults > 0 {
		params.Set("max", strconv.Itoa(maxResults))
	}

	var results []domain.SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/search", params, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// History lists recorded downloads, oldest first
func (c *apiClient) History(ctx context.Context) ([]domain.DownloadResult, error) {
	var records []domain.DownloadResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", nil, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Stats counts recorded downloads by format
func (c *apiClient) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	var stats domain.HistoryStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/history/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Reveal asks the server to open its downloads folder and returns the path
func (c *apiClient) Reveal(ctx context.Context) (string, error) {
	var payload struct {
		Path string `json:"path"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reveal", nil, nil, &payload); err != nil {
		return "", err
	}
	return payload.Path, nil
}

// WatchProgress streams progress for jobID to fn until stop is called or the
// connection drops
func (c *apiClient) WatchProgress(ctx context.Context, jobID string, fn func(app.JobProgress)) (stop func(), err error) {
	wsURL, err := progressURL(c.baseURL, jobID)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to progress stream: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var event app.JobProgress
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			fn(event)
		}
	}()

	return func() {
		conn.Close()
		<-done
	}, nil
}

// progressURL converts the server's http(s) base URL to its ws(s) progress endpoint
func progressURL(baseURL, jobID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/progress/ws"
	if jobID != "" {
		u.RawQuery = url.Values{"job_id": {jobID}}.Encode()
	}
	return u.String(), nil
}
