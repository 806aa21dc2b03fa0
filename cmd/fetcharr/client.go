package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps HTTP calls to the fetcharr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new fetcharr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// API response types (mirror server types)

type JobView struct {
	ID            int64      `json:"id"`
	BatchTitle    string     `json:"batch_title"`
	ItemURL       string     `json:"item_url"`
	ItemIndex     int        `json:"item_index"`
	Language      string     `json:"language"`
	Provider      string     `json:"provider,omitempty"`
	Status        string     `json:"status"`
	BatchProgress float64    `json:"batch_progress"`
	ItemProgress  float64    `json:"item_progress"`
	StatusMessage string     `json:"status_message,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

type QueueStatusResponse struct {
	Active    []JobView `json:"active"`
	Completed []JobView `json:"completed"`
}

type SubmitResponse struct {
	JobIDs []int64 `json:"job_ids"`
}

type CancelResponse struct {
	Success bool `json:"success"`
}

type ConcurrencyResponse struct {
	MaxConcurrent int `json:"max_concurrent"`
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Queued        int    `json:"queued"`
	Running       int    `json:"running"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// QueueStatus fetches the active and completed job lists.
func (c *Client) QueueStatus() (*QueueStatusResponse, error) {
	var out QueueStatusResponse
	if err := c.get("/api/v1/queue/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit sends a download batch.
func (c *Client) Submit(title string, urls []string, language, provider string) (*SubmitResponse, error) {
	req := map[string]any{
		"title":     title,
		"item_urls": urls,
	}
	if language != "" {
		req["language"] = language
	}
	if provider != "" {
		req["provider"] = provider
	}

	var out SubmitResponse
	if err := c.post("/api/v1/queue", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel requests cancellation of one job.
func (c *Client) Cancel(id int64) (*CancelResponse, error) {
	var out CancelResponse
	if err := c.post(fmt.Sprintf("/api/v1/queue/%d/cancel", id), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetConcurrency adjusts the server's parallel download limit.
func (c *Client) SetConcurrency(n int) (*ConcurrencyResponse, error) {
	req, err := http.NewRequest(http.MethodPut, c.baseURL+"/api/v1/queue/concurrency",
		bytes.NewReader([]byte(fmt.Sprintf(`{"max_concurrent": %d}`, n))))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	var out ConcurrencyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches daemon health.
func (c *Client) Status() (*StatusResponse, error) {
	var out StatusResponse
	if err := c.get("/api/v1/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
