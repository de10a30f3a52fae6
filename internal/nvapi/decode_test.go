package nvapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLineSkipsNonData(t *testing.T) {
	for _, line := range []string{"", "   ", ": keep-alive", "event: message", "id: 42"} {
		deltas, err := DecodeLine(line)
		require.NoError(t, err, "line %q", line)
		assert.Nil(t, deltas, "line %q", line)
	}
}

func TestDecodeLineDoneSentinel(t *testing.T) {
	deltas, err := DecodeLine("data: [DONE]")
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaFinish, deltas[0].Kind)
}

func TestDecodeLineContent(t *testing.T) {
	deltas, err := DecodeLine(`data: {"id":"1","choices":[{"index":0,"delta":{"content":"Hello"}}]}`)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaContent, deltas[0].Kind)
	assert.Equal(t, "Hello", deltas[0].Text)
}

func TestDecodeLineReasoning(t *testing.T) {
	deltas, err := DecodeLine(`data: {"choices":[{"index":0,"delta":{"reasoning":"hmm"}}]}`)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaReasoning, deltas[0].Kind)
	assert.Equal(t, "hmm", deltas[0].Text)

	// Alternate field spelling used by some deployments.
	deltas, err = DecodeLine(`{"choices":[{"index":0,"delta":{"reasoning_content":"hmm2"}}]}`)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "hmm2", deltas[0].Text)
}

func TestDecodeLineInterleavedFrame(t *testing.T) {
	// One frame carrying both channels splits into two deltas,
	// reasoning first.
	deltas, err := DecodeLine(`data: {"choices":[{"index":0,"delta":{"reasoning":"think","content":"answer"}}]}`)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, DeltaReasoning, deltas[0].Kind)
	assert.Equal(t, "think", deltas[0].Text)
	assert.Equal(t, DeltaContent, deltas[1].Kind)
	assert.Equal(t, "answer", deltas[1].Text)
}

func TestDecodeLineUsageBeforeFinish(t *testing.T) {
	deltas, err := DecodeLine(`data: {"choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":7,"total_tokens":10}}`)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, DeltaUsage, deltas[0].Kind)
	assert.Equal(t, 7, deltas[0].Usage.CompletionTokens)
	assert.Equal(t, DeltaFinish, deltas[1].Kind)
	assert.Equal(t, FinishStop, deltas[1].Reason)
}

func TestDecodeLineFinishReasons(t *testing.T) {
	cases := map[string]FinishReason{
		"stop":           FinishStop,
		"length":         FinishLength,
		"max_tokens":     FinishLength,
		"error":          FinishError,
		"content_filter": FinishUnknown,
	}
	for raw, want := range cases {
		deltas, err := DecodeLine(fmt.Sprintf(`data: {"choices":[{"index":0,"delta":{},"finish_reason":%q}]}`, raw))
		require.NoError(t, err)
		require.Len(t, deltas, 1)
		assert.Equal(t, want, deltas[0].Reason, "finish_reason %q", raw)
	}
}

func TestDecodeLineErrorPayload(t *testing.T) {
	deltas, err := DecodeLine(`data: {"error":{"message":"model overloaded","type":"server_error"}}`)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaError, deltas[0].Kind)
	assert.Equal(t, "model overloaded", deltas[0].Err.Message)
}

func TestDecodeLineInvalidJSON(t *testing.T) {
	_, err := DecodeLine(`data: {"choices":[`)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindMalformed, apiErr.Kind)
	assert.Contains(t, apiErr.Detail, "choices")
}

func TestDecodeLineUnrecognizableObject(t *testing.T) {
	_, err := DecodeLine(`data: {"id":"1","object":"chat.completion.chunk"}`)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindMalformed, apiErr.Kind)
}

// encodeChunkLine is a reference encoder for round-trip testing: it
// produces the data line a provider would send for the given delta.
func encodeChunkLine(t *testing.T, d Delta) string {
	t.Helper()
	switch d.Kind {
	case DeltaFinish:
		if d.Reason == FinishUnknown {
			return "data: [DONE]"
		}
		return fmt.Sprintf(`data: {"choices":[{"index":0,"delta":{},"finish_reason":%q}]}`, string(d.Reason))
	case DeltaContent:
		b, _ := json.Marshal(d.Text)
		return fmt.Sprintf(`data: {"choices":[{"index":0,"delta":{"content":%s}}]}`, b)
	case DeltaReasoning:
		b, _ := json.Marshal(d.Text)
		return fmt.Sprintf(`data: {"choices":[{"index":0,"delta":{"reasoning":%s}}]}`, b)
	case DeltaUsage:
		b, _ := json.Marshal(d.Usage)
		return fmt.Sprintf(`data: {"choices":[],"usage":%s}`, b)
	default:
		t.Fatalf("unsupported kind %s", d.Kind)
		return ""
	}
}

func TestDecodeLineRoundTrip(t *testing.T) {
	seq := []Delta{
		{Kind: DeltaReasoning, Text: "let me think"},
		{Kind: DeltaContent, Text: "The answer "},
		{Kind: DeltaContent, Text: "is 42."},
		{Kind: DeltaUsage, Usage: &Usage{PromptTokens: 5, CompletionTokens: 9, TotalTokens: 14}},
		{Kind: DeltaFinish, Reason: FinishStop},
	}

	var got []Delta
	for _, d := range seq {
		decoded, err := DecodeLine(encodeChunkLine(t, d))
		require.NoError(t, err)
		got = append(got, decoded...)
	}
	require.Equal(t, len(seq), len(got))
	for i := range seq {
		assert.Equal(t, seq[i].Kind, got[i].Kind, "delta %d", i)
		assert.Equal(t, seq[i].Text, got[i].Text, "delta %d", i)
		if seq[i].Usage != nil {
			assert.Equal(t, *seq[i].Usage, *got[i].Usage)
		}
		if seq[i].Kind == DeltaFinish {
			assert.Equal(t, seq[i].Reason, got[i].Reason)
		}
	}
}
