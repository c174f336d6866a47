package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

func TestHTTPReader_Answer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Question != "¿qué es?" || req.Context != "una red de neuronas" {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"answer": "red de neuronas", "score": 0.8})
	}))
	defer srv.Close()

	r := NewHTTPReader(srv.URL, time.Second)
	ans, err := r.Answer(context.Background(), "¿qué es?", "una red de neuronas")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "red de neuronas" || ans.Score != 0.8 {
		t.Errorf("Answer = %+v", ans)
	}
}

func TestHTTPReader_EmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"  ","score":0.9}`))
	}))
	defer srv.Close()

	_, err := NewHTTPReader(srv.URL, time.Second).Answer(context.Background(), "q", "p")
	if !errors.Is(err, ErrNoAnswer) {
		t.Errorf("expected ErrNoAnswer, got %v", err)
	}
}

func TestHTTPReader_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTPReader(srv.URL, time.Second).Answer(context.Background(), "q", "p"); err == nil {
		t.Error("expected error")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.QAConfig
		wantNil bool
		wantErr bool
	}{
		{"none", config.QAConfig{Provider: "none"}, true, false},
		{"http", config.QAConfig{Provider: "http", Endpoint: "http://localhost:9/qa"}, false, false},
		{"http without endpoint", config.QAConfig{Provider: "http"}, true, true},
		{"onnx missing model", config.QAConfig{Provider: "onnx", ModelPath: "/nonexistent.onnx", MaxTokens: 64}, true, false},
		{"unknown", config.QAConfig{Provider: "gpt"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v", err)
			}
			if (r == nil) != tt.wantNil {
				t.Errorf("reader nil = %v, want %v", r == nil, tt.wantNil)
			}
			if r != nil {
				_ = r.Close()
			}
		})
	}
}
