package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
)

func TestAccumulatorConcatenatesByIndex(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.Add([]llm.ToolCall{call(2, "lock_target", `{"targetType":"buoy"`)})
	acc.Add([]llm.ToolCall{call(0, "broadcast_", `{}`)})
	acc.Add([]llm.ToolCall{call(2, "", `,"action":"TRACK"}`), call(0, "warning", "")})
	assert.Equal(t, 2, acc.Len())

	tools := acc.Finalize()
	require.Len(t, tools, 2)
	assert.Equal(t, "broadcast_warning", tools[0].Name)
	assert.Empty(t, tools[0].Args)
	assert.Equal(t, "lock_target", tools[1].Name)
	assert.Equal(t, "buoy", tools[1].Args["targetType"])
}

func TestAccumulatorMissingIndexUsesPosition(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.Add([]llm.ToolCall{
		{Function: llm.ToolCallFunction{Name: "broadcast_warning", Arguments: `{"level":"INFO"}`}},
		{Function: llm.ToolCallFunction{Name: "lock_target", Arguments: `{"action":"TRACK"}`}},
	})

	tools := acc.Finalize()
	require.Len(t, tools, 2)
	assert.Equal(t, "broadcast_warning", tools[0].Name)
	assert.Equal(t, "lock_target", tools[1].Name)
}

func TestAccumulatorDropsUnusableFragments(t *testing.T) {
	cases := map[string]llm.ToolCall{
		"truncated json":   call(0, "broadcast_warning", `{"level":"CRIT`),
		"empty arguments":  call(0, "broadcast_warning", ""),
		"array arguments":  call(0, "broadcast_warning", `[1,2]`),
		"null arguments":   call(0, "broadcast_warning", `null`),
		"string arguments": call(0, "broadcast_warning", `"x"`),
		"missing name":     call(0, "", `{"level":"INFO"}`),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			acc := NewAccumulator(nil)
			acc.Add([]llm.ToolCall{c, call(1, "lock_target", `{"action":"TRACK"}`)})
			tools := acc.Finalize()
			require.Len(t, tools, 1)
			assert.Equal(t, "lock_target", tools[0].Name)
		})
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	assert.Empty(t, NewAccumulator(nil).Finalize())
}
