package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/domain"
)

// scriptedClient replays chunks or fails with err.
type scriptedClient struct {
	chunks   []*llm.StreamChunk
	response *llm.ChatCompletionResponse
	err      error

	streamCalls int
	singleCalls int
	lastReq     *llm.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	c.singleCalls++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func (c *scriptedClient) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, callback llm.StreamCallback) (*llm.Usage, error) {
	c.streamCalls++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	for _, chunk := range c.chunks {
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}
	return &llm.Usage{TotalTokens: 42}, nil
}

func (c *scriptedClient) ListModels(ctx context.Context) ([]llm.Model, error) {
	return nil, nil
}

type recorder struct {
	events []domain.TurnEvent
	failOn int
}

func (r *recorder) Send(ev domain.TurnEvent) error {
	if r.failOn > 0 && len(r.events)+1 == r.failOn {
		return errors.New("broken pipe")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) content() string {
	var b strings.Builder
	for _, ev := range r.events {
		b.WriteString(ev.Content)
	}
	return b.String()
}

func idx(i int) *int { return &i }

func textChunk(s string) *llm.StreamChunk {
	return &llm.StreamChunk{Choices: []llm.Choice{{Delta: &llm.ChatMessage{Content: llm.TextContent(s)}}}}
}

func toolChunk(calls ...llm.ToolCall) *llm.StreamChunk {
	return &llm.StreamChunk{Choices: []llm.Choice{{Delta: &llm.ChatMessage{ToolCalls: calls}}}}
}

func call(i int, name, args string) llm.ToolCall {
	return llm.ToolCall{Index: idx(i), Function: llm.ToolCallFunction{Name: name, Arguments: args}}
}

func assertTerminalLast(t *testing.T, events []domain.TurnEvent) {
	t.Helper()
	require.NotEmpty(t, events)
	for _, ev := range events[:len(events)-1] {
		assert.False(t, ev.IsTerminal(), "terminal event before end: %+v", ev)
	}
	assert.True(t, events[len(events)-1].IsTerminal())
}

func TestRunForwardsContentInOrder(t *testing.T) {
	client := &scriptedClient{chunks: []*llm.StreamChunk{
		textChunk("A vessel "), textChunk(""), textChunk("is approaching."),
	}}
	var committed Result
	turn := Turn{ID: "t1", Model: "m", Commit: func(ctx context.Context, res Result) error {
		committed = res
		return nil
	}}

	rec := &recorder{}
	res, err := New(client, ModeStream, nil).Run(context.Background(), turn, rec)
	require.NoError(t, err)

	require.Len(t, rec.events, 3, "empty deltas are not forwarded")
	assert.Equal(t, "A vessel ", rec.events[0].Content)
	assert.Equal(t, "is approaching.", rec.events[1].Content)
	assert.Equal(t, domain.DoneEvent(), rec.events[2])
	assert.Equal(t, "A vessel is approaching.", res.Reply)
	assert.Equal(t, res.Reply, committed.Reply)
	assert.Equal(t, 42, res.Usage.TotalTokens)
	assertTerminalLast(t, rec.events)

	require.True(t, client.lastReq.Stream)
	require.NotNil(t, client.lastReq.StreamOptions)
	assert.True(t, client.lastReq.StreamOptions.IncludeUsage)
}

func TestRunSplitInvariance(t *testing.T) {
	const reply = "Risk level: high. Two ships on a collision course."
	const args = `{"level":"CRITICAL","message":"Collision risk"}`

	split := func(s string, n int) []string {
		var out []string
		for len(s) > n {
			out = append(out, s[:n])
			s = s[n:]
		}
		return append(out, s)
	}

	var baseline *Result
	for _, size := range []int{1, 3, 7, len(reply)} {
		var chunks []*llm.StreamChunk
		for _, piece := range split(reply, size) {
			chunks = append(chunks, textChunk(piece))
		}
		for i, piece := range split(args, size) {
			name := ""
			if i == 0 {
				name = "broadcast_warning"
			}
			chunks = append(chunks, toolChunk(call(0, name, piece)))
		}

		rec := &recorder{}
		res, err := New(&scriptedClient{chunks: chunks}, ModeStream, nil).Run(context.Background(), Turn{}, rec)
		require.NoError(t, err)
		assert.Equal(t, reply, rec.content())

		if baseline == nil {
			baseline = res
			continue
		}
		assert.Equal(t, baseline.Reply, res.Reply, "chunk size %d", size)
		assert.Equal(t, baseline.Tools, res.Tools, "chunk size %d", size)
	}
	require.Len(t, baseline.Tools, 1)
	assert.Equal(t, "CRITICAL", baseline.Tools[0].Args["level"])
}

func TestRunInterleavedToolCalls(t *testing.T) {
	client := &scriptedClient{chunks: []*llm.StreamChunk{
		toolChunk(call(0, "broadcast_warning", `{"level":"WAR`), call(1, "lock_", `{"targetType":`)),
		toolChunk(call(1, "target", `"fishing vessel",`), call(0, "", `NING","message":"Man overboard"`)),
		toolChunk(call(0, "", `}`), call(1, "", `"action":"TRACK"}`)),
	}}

	rec := &recorder{}
	_, err := New(client, ModeStream, nil).Run(context.Background(), Turn{}, rec)
	require.NoError(t, err)

	require.Len(t, rec.events, 2)
	tools := rec.events[0].Tools
	require.Len(t, tools, 2)
	assert.Equal(t, "broadcast_warning", tools[0].Name)
	assert.Equal(t, map[string]any{"level": "WARNING", "message": "Man overboard"}, tools[0].Args)
	assert.Equal(t, "lock_target", tools[1].Name)
	assert.Equal(t, map[string]any{"targetType": "fishing vessel", "action": "TRACK"}, tools[1].Args)
	assert.True(t, rec.events[1].Done)
}

func TestRunDropsInvalidToolArguments(t *testing.T) {
	client := &scriptedClient{chunks: []*llm.StreamChunk{
		textChunk("ok"),
		toolChunk(call(0, "broadcast_warning", `{"level":`)),
	}}
	rec := &recorder{}
	res, err := New(client, ModeStream, nil).Run(context.Background(), Turn{}, rec)
	require.NoError(t, err)
	assert.Empty(t, res.Tools)

	require.Len(t, rec.events, 2, "no tools event when nothing survives")
	assert.Equal(t, "ok", rec.events[0].Content)
	assert.True(t, rec.events[1].Done)
}

func TestRunUpstreamErrorEmitsSingleError(t *testing.T) {
	client := &scriptedClient{err: &llm.StatusError{StatusCode: 401, Message: "Invalid API key"}}
	committed := false
	turn := Turn{Commit: func(ctx context.Context, res Result) error {
		committed = true
		return nil
	}}

	rec := &recorder{}
	_, err := New(client, ModeStream, nil).Run(context.Background(), turn, rec)
	require.Error(t, err)

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	require.Len(t, rec.events, 1)
	assert.NotEmpty(t, rec.events[0].Error)
	assert.False(t, rec.events[0].Done)
	assert.False(t, committed)
}

func TestRunCommitFailureReplacesDone(t *testing.T) {
	client := &scriptedClient{chunks: []*llm.StreamChunk{textChunk("hello")}}
	turn := Turn{Commit: func(ctx context.Context, res Result) error {
		return errors.New("disk full")
	}}

	rec := &recorder{}
	_, err := New(client, ModeStream, nil).Run(context.Background(), turn, rec)
	require.ErrorContains(t, err, "disk full")

	require.Len(t, rec.events, 2)
	assert.Equal(t, "hello", rec.events[0].Content)
	assert.Contains(t, rec.events[1].Error, "disk full")
	assertTerminalLast(t, rec.events)
	for _, ev := range rec.events {
		assert.False(t, ev.Done)
	}
}

func TestRunStopsWhenSinkFails(t *testing.T) {
	client := &scriptedClient{chunks: []*llm.StreamChunk{textChunk("a"), textChunk("b"), textChunk("c")}}
	committed := false
	turn := Turn{Commit: func(ctx context.Context, res Result) error {
		committed = true
		return nil
	}}

	rec := &recorder{failOn: 2}
	_, err := New(client, ModeStream, nil).Run(context.Background(), turn, rec)
	require.Error(t, err)
	assert.Len(t, rec.events, 1)
	assert.False(t, committed)
}

func TestRunSingleMode(t *testing.T) {
	client := &scriptedClient{response: &llm.ChatCompletionResponse{
		Model: "qwen-vl-max",
		Choices: []llm.Choice{{Message: &llm.ChatMessage{
			Role:    "assistant",
			Content: llm.TextContent("Sea state is calm."),
			ToolCalls: []llm.ToolCall{
				{ID: "c1", Type: "function", Function: llm.ToolCallFunction{Name: "lock_target", Arguments: `{"targetType":"tanker","action":"IDENTIFY"}`}},
			},
		}}},
		Usage: &llm.Usage{TotalTokens: 7},
	}}

	rec := &recorder{}
	res, err := New(client, ModeSingle, nil).Run(context.Background(), Turn{}, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, client.singleCalls)
	assert.Equal(t, 0, client.streamCalls)
	assert.False(t, client.lastReq.Stream)

	require.Len(t, rec.events, 3)
	assert.Equal(t, "Sea state is calm.", rec.events[0].Content)
	require.Len(t, rec.events[1].Tools, 1)
	assert.Equal(t, "lock_target", rec.events[1].Tools[0].Name)
	assert.True(t, rec.events[2].Done)
	assert.Equal(t, "qwen-vl-max", res.Model)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeSingle, ParseMode("SINGLE"))
	assert.Equal(t, ModeStream, ParseMode("stream"))
	assert.Equal(t, ModeStream, ParseMode(""))
}
