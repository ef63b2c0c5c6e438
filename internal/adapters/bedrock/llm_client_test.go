package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockClient_Generate(t *testing.T) {
	tests := []struct {
		name      string
		modelID   string
		body      string
		want      string
		wantInReq string
	}{
		{
			name:      "claude",
			modelID:   "anthropic.claude-v2",
			body:      `{"completion":"{\"event_type\":\"Exam\"}"}`,
			want:      `{"event_type":"Exam"}`,
			wantInReq: `"max_tokens_to_sample"`,
		},
		{
			name:      "titan",
			modelID:   "amazon.titan-text-express-v1",
			body:      `{"results":[{"outputText":"Event Type: Exam"}]}`,
			want:      "Event Type: Exam",
			wantInReq: `"textGenerationConfig"`,
		},
		{
			name:      "generic",
			modelID:   "meta.llama3-8b-instruct-v1:0",
			body:      `{"generation":"Urgency: high"}`,
			want:      "Urgency: high",
			wantInReq: `"max_tokens"`,
		},
		{
			name:      "generic non-json",
			modelID:   "mistral.mistral-7b-instruct-v0:2",
			body:      `Urgency: high`,
			want:      "Urgency: high",
			wantInReq: `"prompt"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{body: []byte(tt.body)}
			client := NewBedrockClient(rt, tt.modelID, 500, 0.1, 0.9, zap.NewNop())

			got, err := client.Generate(context.Background(), "extract this")
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if !strings.Contains(string(rt.input.Body), tt.wantInReq) {
				t.Errorf("request body %s missing %s", rt.input.Body, tt.wantInReq)
			}
			if *rt.input.ModelId != tt.modelID {
				t.Errorf("model id = %q", *rt.input.ModelId)
			}
		})
	}
}

func TestBedrockClient_ClaudePromptWrapping(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"completion":"ok"}`)}
	client := NewBedrockClient(rt, "anthropic.claude-instant-v1", 500, 0.1, 0.9, zap.NewNop())

	if _, err := client.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(rt.input.Body, &req); err != nil {
		t.Fatalf("request is not JSON: %v", err)
	}
	if req["prompt"] != "\n\nHuman: hello\n\nAssistant:" {
		t.Errorf("prompt = %q", req["prompt"])
	}
}

func TestBedrockClient_Errors(t *testing.T) {
	client := NewBedrockClient(&fakeRuntime{err: errors.New("throttled")}, "anthropic.claude-v2", 500, 0.1, 0.9, zap.NewNop())
	if _, err := client.Generate(context.Background(), "x"); err == nil {
		t.Error("expected invoke error to propagate")
	}

	client = NewBedrockClient(&fakeRuntime{body: []byte(`{"results":[]}`)}, "amazon.titan-text-lite-v1", 500, 0.1, 0.9, zap.NewNop())
	if _, err := client.Generate(context.Background(), "x"); err == nil {
		t.Error("expected error for empty Titan results")
	}
}
