package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"qwen","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "qwen",
		Messages: []ChatMessage{
			{Role: "user", Content: TextContent("hello")},
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if resp.Model != "qwen" || len(resp.Choices) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := resp.Choices[0].Message.Content.String(); got != "hi" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided.","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "qwen",
		Messages: []ChatMessage{{Role: "user", Content: TextContent("hello")}},
	})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Message != "Incorrect API key provided." {
		t.Fatalf("unexpected error: %+v", statusErr)
	}
}

func TestClientCreateChatCompletionStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req ChatCompletionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Fatalf("expected stream flag")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"qwen\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"hi\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	var chunks []StreamChunk
	usage, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{
		Model:    "qwen",
		Messages: []ChatMessage{{Role: "user", Content: TextContent("hello")}},
	}, func(chunk *StreamChunk) error {
		chunks = append(chunks, *chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("CreateChatCompletionStream failed: %v", err)
	}
	if usage != nil {
		t.Fatalf("expected nil usage, got %+v", usage)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestClientStreamToolCallDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"lock_target","arguments":"{\"targ"}}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"etType\":\"ship\"}"}}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	var args string
	usage, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "qwen"}, func(chunk *StreamChunk) error {
		for _, choice := range chunk.Choices {
			for _, call := range choice.Delta.ToolCalls {
				if call.Index == nil || *call.Index != 0 {
					t.Fatalf("unexpected index: %+v", call.Index)
				}
				args += call.Function.Arguments
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateChatCompletionStream failed: %v", err)
	}
	if args != `{"targetType":"ship"}` {
		t.Fatalf("unexpected arguments: %q", args)
	}
	if usage == nil || usage.TotalTokens != 12 {
		t.Fatalf("expected usage from final chunk without trailing newline, got %+v", usage)
	}
}

func TestClientStreamRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "quota exceeded")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	called := false
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "qwen"}, func(*StreamChunk) error {
		called = true
		return nil
	})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}
	if called {
		t.Fatalf("callback must not run for a rejected stream")
	}
}

func TestClientStreamCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"b\"}}]}\n\n")
	}))
	defer server.Close()

	sentinel := errors.New("client gone")
	client := NewClient(server.URL, "", time.Second)
	calls := 0
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "qwen"}, func(*StreamChunk) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) || calls != 1 {
		t.Fatalf("expected callback error after one chunk, got %v (%d calls)", err, calls)
	}
}

func TestClientListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"qwen-vl-plus","object":"model","created":1,"owned_by":"system"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1/", "", time.Second)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].ID != "qwen-vl-plus" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestClientListModelsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.ListModels(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientSetHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", time.Second)
	_, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
}

func TestMessageContentJSON(t *testing.T) {
	msg := ChatMessage{
		Role:    "user",
		Content: PartsContent(ImagePart("data:image/png;base64,AAAA"), TextPart("Check this image")),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"role":"user","content":[{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}},{"type":"text","text":"Check this image"}]}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n%s\nwant\n%s", data, want)
	}

	data, err = json.Marshal(ChatMessage{Role: "system", Content: TextContent("persona")})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"role":"system","content":"persona"}` {
		t.Fatalf("unexpected json: %s", data)
	}

	var decoded ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":null}`), &decoded); err != nil {
		t.Fatalf("unmarshal null content: %v", err)
	}
	if decoded.Content.String() != "" {
		t.Fatalf("expected empty content, got %q", decoded.Content.String())
	}
}

func TestDecodeErrorResponse(t *testing.T) {
	data := []byte(`{"error":{"message":"bad","type":"invalid_request_error","code":"401"}}`)
	var resp ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != "401" {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}
