package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a mock implementation of LLMClient for local runs without a
// credential. When tools are offered and the user mentions a hazard it answers
// with a broadcast_warning call split across chunks, like real upstreams do.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

var mockHazardWords = []string{"danger", "hazard", "critical", "危险", "风险"}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generateMockResponse(req)
	msg := &ChatMessage{Role: "assistant", Content: TextContent(content)}
	if args, ok := m.mockToolArguments(req); ok {
		idx := 0
		msg.ToolCalls = []ToolCall{{
			Index:    &idx,
			ID:       "call_mock",
			Type:     "function",
			Function: ToolCallFunction{Name: "broadcast_warning", Arguments: args},
		}}
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      msg,
				FinishReason: "stop",
			},
		},
		Usage: m.usage(req, content),
	}, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	content := m.generateMockResponse(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	var deltas []*ChatMessage
	for _, chunk := range m.splitIntoChunks(content, 10) {
		deltas = append(deltas, &ChatMessage{Role: "assistant", Content: TextContent(chunk)})
	}
	if args, ok := m.mockToolArguments(req); ok {
		for i, frag := range m.splitIntoChunks(args, 7) {
			idx := 0
			call := ToolCall{Index: &idx, Function: ToolCallFunction{Arguments: frag}}
			if i == 0 {
				call.ID = "call_mock"
				call.Type = "function"
				call.Function.Name = "broadcast_warning"
			}
			deltas = append(deltas, &ChatMessage{ToolCalls: []ToolCall{call}})
		}
	}

	for i, delta := range deltas {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(deltas)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index:        0,
					Delta:        delta,
					FinishReason: finishReason,
				},
			},
		}

		if err := callback(streamChunk); err != nil {
			return nil, err
		}
	}

	return m.usage(req, content), nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-qwen-vl",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

// lastUserText returns the text of the last user message.
func (m *MockClient) lastUserText(req *ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content.String()
		}
	}
	return ""
}

func (m *MockClient) mockToolArguments(req *ChatCompletionRequest) (string, bool) {
	if len(req.Tools) == 0 {
		return "", false
	}
	text := strings.ToLower(m.lastUserText(req))
	for _, w := range mockHazardWords {
		if strings.Contains(text, w) {
			return `{"level":"CRITICAL","message":"[MOCK] hazard reported in the monitored area"}`, true
		}
	}
	return "", false
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	lastUserMessage := m.lastUserText(req)
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, content string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content.String()) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately the given
// number of runes.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
