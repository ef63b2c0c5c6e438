package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/llm-task-extractor/internal/adapters/openai"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func TestOpenAIClient_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if req.Messages[len(req.Messages)-1].Content == "cause_500" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != goopenai.ChatCompletionResponseFormatTypeJSONObject {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "{\"event_type\":\"Meeting\"}"}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer ts.Close()

	client, err := openai.NewOpenAIClient("test-key", ts.URL+"/v1", "gpt-test", 200, 0.1, 0.9, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	t.Run("Success Flow", func(t *testing.T) {
		got, err := client.Generate(context.Background(), "extract this")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != `{"event_type":"Meeting"}` {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		if _, err := client.Generate(context.Background(), "cause_500"); err == nil {
			t.Error("expected error on 500")
		}
	})

	if client.Name() != "openai/gpt-test" {
		t.Errorf("Name() = %q", client.Name())
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := openai.NewOpenAIClient("", "", "gpt-test", 200, 0.1, 0.9, zap.NewNop()); err == nil {
		t.Error("expected error without API key")
	}
}
