package relay

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/domain"
)

// fragment collects the name and argument text of one tool call.
type fragment struct {
	name strings.Builder
	args strings.Builder
}

// Accumulator reconstructs tool calls from streamed fragments keyed by index.
// Text is only concatenated while streaming; parsing waits for Finalize.
type Accumulator struct {
	frags  map[int]*fragment
	logger *slog.Logger
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator(logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{frags: make(map[int]*fragment), logger: logger}
}

// Add appends each part to the fragment at its index. A part without an index
// belongs to the call at its position in the slice.
func (a *Accumulator) Add(calls []llm.ToolCall) {
	for i, call := range calls {
		idx := i
		if call.Index != nil {
			idx = *call.Index
		}
		f, ok := a.frags[idx]
		if !ok {
			f = &fragment{}
			a.frags[idx] = f
		}
		f.name.WriteString(call.Function.Name)
		f.args.WriteString(call.Function.Arguments)
	}
}

// Len returns the number of distinct indices seen.
func (a *Accumulator) Len() int {
	return len(a.frags)
}

// Finalize parses every fragment in ascending index order. Fragments with no
// name, or whose arguments are not a JSON object, are dropped.
func (a *Accumulator) Finalize() []domain.ToolInvocation {
	indices := make([]int, 0, len(a.frags))
	for idx := range a.frags {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var out []domain.ToolInvocation
	for _, idx := range indices {
		f := a.frags[idx]
		name := f.name.String()
		if name == "" {
			a.logger.Debug("dropping tool call without name", "index", idx)
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(f.args.String()), &args); err != nil || args == nil {
			a.logger.Debug("dropping tool call with unparseable arguments",
				"index", idx, "tool", name, "arguments", f.args.String(), "error", err)
			continue
		}
		out = append(out, domain.ToolInvocation{Name: name, Args: args})
	}
	return out
}
