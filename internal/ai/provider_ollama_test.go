package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ollamaTestResponse(content string) openaiResponse {
	var resp openaiResponse
	resp.Model = "gemma3:27b-cloud"
	resp.Choices = []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}{{}}
	resp.Choices[0].Message.Content = content
	resp.Usage.PromptTokens = 5
	resp.Usage.CompletionTokens = 10
	return resp
}

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		// Self-hosted Ollama gets no Authorization header.
		if r.Header.Get("Authorization") != "" {
			t.Error("no API key configured, should not send Authorization header")
		}

		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gemma3:27b-cloud" {
			t.Errorf("model = %q, want default gemma3:27b-cloud", req.Model)
		}

		json.NewEncoder(w).Encode(ollamaTestResponse("Ollama response"))
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Ollama response" {
		t.Errorf("content = %q, want %q", resp.Content, "Ollama response")
	}
	if resp.InputTokens != 5 {
		t.Errorf("input_tokens = %d, want 5", resp.InputTokens)
	}
}

func TestOllamaProvider_Complete_BearerAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer ol-test-key" {
			t.Errorf("Authorization = %q, want Bearer ol-test-key", got)
		}
		json.NewEncoder(w).Encode(ollamaTestResponse("ok"))
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, WithOllamaAPIKey("ol-test-key"))

	if _, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
}

func TestOllamaProvider_Complete_EmptyResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"blank content", "   \n"},
		{"no choices", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resp := ollamaTestResponse(tt.content)
				if tt.content == "" {
					resp.Choices = nil
				}
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			provider := NewOllamaProvider(server.URL)
			_, err := provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hello"}},
			})

			if !errors.Is(err, ErrEmptyResponse) {
				t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
			}
		})
	}
}

func TestOllamaProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not found"))
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)

	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error on API error")
	}
	if errors.Is(err, ErrEmptyResponse) {
		t.Error("API error should not be classified as empty response")
	}
}

func TestOllamaProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewOllamaProvider(server.URL)
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaProvider_Models(t *testing.T) {
	provider := NewOllamaProvider("http://localhost:11434", WithOllamaModel("llama3:8b"))
	models := provider.Models()

	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}
	if models[0].ID != "llama3:8b" {
		t.Errorf("models[0].ID = %q, want llama3:8b", models[0].ID)
	}
}
