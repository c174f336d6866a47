package cli

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
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultServerURL is where the CLI looks for a running server.
const DefaultServerURL = "http://localhost:8000"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running kotae server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// ProcessResult is the response of a document ingestion.
type ProcessResult struct {
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
	Status        string `json:"status"`
	Generation    int64  `json:"generation"`
	SnapshotID    string `json:"snapshot_id"`
}

// FeedbackInput is a user's verdict on one answer.
type FeedbackInput struct {
	MessageID string `json:"message_id"`
	Query     string `json:"query"`
	Useful    bool   `json:"useful"`
	Comment   string `json:"comment,omitempty"`
}

// Ask runs a search on the server.
func (c *Client) Ask(ctx context.Context, q *models.SearchQuery) (*models.SynthesizedAnswer, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	if q.TopK > 0 {
		params.Set("top_k", strconv.Itoa(q.TopK))
	}
	if q.Threshold != nil {
		params.Set("threshold", strconv.FormatFloat(*q.Threshold, 'f', -1, 64))
	}
	var ans models.SynthesizedAnswer
	if err := c.do(ctx, http.MethodGet, "/api/v1/search?"+params.Encode(), nil, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

// Process asks the server to ingest path, or its configured document when path is empty.
func (c *Client) Process(ctx context.Context, path string) (*ProcessResult, error) {
	var body interface{}
	if path != "" {
		body = map[string]string{"path": path}
	}
	var res ProcessResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/process", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendFeedback records feedback and returns its id.
func (c *Client) SendFeedback(ctx context.Context, fb FeedbackInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/feedback", fb, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Status fetches the server status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(b))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
