package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type verdict struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

func newTestServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		if !strings.Contains(req.Messages[0].Content, `"amount":500000`) {
			t.Errorf("payload missing from prompt: %s", req.Messages[0].Content)
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}}})
	}))
}

func TestClientInfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		content string
		want    verdict
		wantErr bool
	}{
		{"plain json", http.StatusOK, `{"severity":"high","reason":"ratio"}`, verdict{"high", "ratio"}, false},
		{"fenced json", http.StatusOK, "```json\n{\"severity\":\"low\",\"reason\":\"ok\"}\n```", verdict{"low", "ok"}, false},
		{"prose around json", http.StatusOK, "Here you go: {\"severity\":\"medium\",\"reason\":\"x\"} hope it helps", verdict{"medium", "x"}, false},
		{"not json", http.StatusOK, "I cannot help with that", verdict{}, true},
		{"server error", http.StatusInternalServerError, "{}", verdict{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, tt.status, tt.content)
			defer srv.Close()

			client := NewOpenRouterClient("test-key", "test-model", srv.URL, 5*time.Second, utils.NewNopLogger())
			var got verdict
			err := client.Infer(context.Background(), Request{
				Task:       "test",
				Prompt:     "Judge this loan.",
				Payload:    map[string]any{"amount": 500000},
				SchemaHint: `{"severity": "...", "reason": "..."}`,
			}, &got)

			if tt.wantErr {
				if !errors.Is(err, utils.ErrInferenceUnavailable) {
					t.Fatalf("expected ErrInferenceUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Infer returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Infer decoded %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNilClientIsUnavailable(t *testing.T) {
	t.Parallel()

	var client *Client
	err := client.Infer(context.Background(), Request{Task: "noop"}, &verdict{})
	if !errors.Is(err, utils.ErrInferenceUnavailable) {
		t.Fatalf("expected ErrInferenceUnavailable, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```\n{\"a\":1}\n```":   `{"a":1}`,
		"```json\n[1,2]\n```":   `[1,2]`,
		"answer: {\"a\":1}.":    `{"a":1}`,
		`{"a":1}`:               `{"a":1}`,
		"no json here":          "no json here",
	}
	for in, want := range tests {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
