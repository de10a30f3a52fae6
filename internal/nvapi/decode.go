package nvapi

import (
	"encoding/json"
	"strings"
)

// DeltaKind tags one decoded unit of the stream.
type DeltaKind string

const (
	DeltaContent   DeltaKind = "content"
	DeltaReasoning DeltaKind = "reasoning"
	DeltaFinish    DeltaKind = "finish"
	DeltaUsage     DeltaKind = "usage"
	DeltaError     DeltaKind = "error"
)

// Delta is one decoded unit from the wire. Text is incremental, never
// the accumulated total.
type Delta struct {
	Kind   DeltaKind
	Text   string
	Reason FinishReason
	Usage  *Usage
	Err    *errorPayload
}

// DecodeLine decodes one line of the event stream into zero or more
// deltas. Blank lines and non-data lines yield nil. The termination
// sentinel yields a finish delta. A frame carrying both reasoning and
// content is split into two deltas, reasoning first, so arrival order
// is preserved for the accumulator. Usage is emitted before any finish
// marker sharing the same frame.
func DecodeLine(raw string) ([]Delta, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil, nil
	}
	if v, ok := dataValue(line); ok {
		line = strings.TrimSpace(v)
	}
	if line == doneSentinel {
		return []Delta{{Kind: DeltaFinish, Reason: FinishUnknown}}, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return nil, malformedErr("invalid JSON in data line", raw, err)
	}
	if chunk.Error != nil {
		return []Delta{{Kind: DeltaError, Err: chunk.Error}}, nil
	}
	if len(chunk.Choices) == 0 && chunk.Usage == nil {
		return nil, malformedErr("data line has no choices, usage, or error", raw, nil)
	}

	var out []Delta
	for _, choice := range chunk.Choices {
		if r := choice.Delta.reasoningText(); r != "" {
			out = append(out, Delta{Kind: DeltaReasoning, Text: r})
		}
		if choice.Delta.Content != "" {
			out = append(out, Delta{Kind: DeltaContent, Text: choice.Delta.Content})
		}
	}
	if chunk.Usage != nil {
		u := *chunk.Usage
		out = append(out, Delta{Kind: DeltaUsage, Usage: &u})
	}
	// Finish markers come last so nothing in this frame lands after the
	// terminal transition.
	for _, choice := range chunk.Choices {
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			out = append(out, Delta{Kind: DeltaFinish, Reason: mapFinishReason(*choice.FinishReason)})
		}
	}
	return out, nil
}
