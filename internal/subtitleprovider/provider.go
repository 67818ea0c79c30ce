// Package subtitleprovider implements the two-call contract the subtitle
// service needs from an external subtitle database: search by query
// string, download by subtitle ID. A small net/http JSON pass-through:
// Timeout-bearing http.Client, JSON marshal/unmarshal, fmt.Errorf wrapping.
package subtitleprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is one search hit.
type Result struct {
	SubtitleID      string `json:"subtitleId"`
	LanguageISO6391 string `json:"language"`
	ReleaseName     string `json:"releaseName"`
}

// Client talks to an external subtitle provider over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a provider client against baseURL, authenticating with
// apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search queries the provider by free-text query (the media's decoded
// track name) and returns the candidate subtitles.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	var results []Result
	if err := c.postJSON(ctx, "/search", searchRequest{Query: query}, &results); err != nil {
		return nil, fmt.Errorf("subtitleprovider: search: %w", err)
	}
	return results, nil
}

type downloadRequest struct {
	SubtitleID string `json:"subtitleId"`
}

type downloadResponse struct {
	Content string `json:"content"`
}

// Download fetches the subtitle text for subtitleID. A non-2xx response
// or transport failure is the caller's signal to treat the provider as
// having refused the download.
func (c *Client) Download(ctx context.Context, subtitleID string) (string, error) {
	var resp downloadResponse
	if err := c.postJSON(ctx, "/download", downloadRequest{SubtitleID: subtitleID}, &resp); err != nil {
		return "", fmt.Errorf("subtitleprovider: download: %w", err)
	}
	return resp.Content, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status %d calling %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
