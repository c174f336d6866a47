package qa

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

type answerRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// HTTPReader delegates to a question-answering service that accepts
// {"question", "context"} and returns {"answer", "score"}.
type HTTPReader struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReader returns a reader that posts to endpoint.
func NewHTTPReader(endpoint string, timeout time.Duration) *HTTPReader {
	return &HTTPReader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Answer posts the pair and returns the service's span. An empty span is ErrNoAnswer.
func (r *HTTPReader) Answer(ctx context.Context, question, passage string) (Answer, error) {
	body, err := json.Marshal(answerRequest{Question: question, Context: passage})
	if err != nil {
		return Answer{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Answer{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("qa request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Answer{}, fmt.Errorf("qa request: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var ans Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return Answer{}, fmt.Errorf("decode qa response: %w", err)
	}
	if strings.TrimSpace(ans.Text) == "" {
		return Answer{}, ErrNoAnswer
	}
	return ans, nil
}

// Close releases idle connections.
func (r *HTTPReader) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
