package nvapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() ChatRequest {
	return ChatRequest{
		Model:       "test-model",
		Messages:    []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "Hi"}},
		MaxTokens:   1024,
		Temperature: 1.0,
		TopP:        0.95,
		Thinking:    true,
	}
}

func assertEncodingError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindEncoding, apiErr.Kind)
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validRequest().Validate())
}

func TestValidateEmptyMessages(t *testing.T) {
	r := validRequest()
	r.Messages = nil
	assertEncodingError(t, r.Validate())
}

func TestValidateLastMessageMustBeUser(t *testing.T) {
	r := validRequest()
	r.Messages = append(r.Messages, Message{Role: RoleAssistant, Content: "Hello"})
	assertEncodingError(t, r.Validate())
}

func TestValidateUnknownRole(t *testing.T) {
	r := validRequest()
	r.Messages[0].Role = "tool"
	assertEncodingError(t, r.Validate())
}

func TestValidateEmptyContent(t *testing.T) {
	r := validRequest()
	r.Messages[1].Content = ""
	assertEncodingError(t, r.Validate())
}

func TestValidateParameterRanges(t *testing.T) {
	for _, mutate := range []func(*ChatRequest){
		func(r *ChatRequest) { r.MaxTokens = 0 },
		func(r *ChatRequest) { r.MaxTokens = MaxTokensLimit + 1 },
		func(r *ChatRequest) { r.Temperature = -0.1 },
		func(r *ChatRequest) { r.Temperature = 2.1 },
		func(r *ChatRequest) { r.TopP = -0.1 },
		func(r *ChatRequest) { r.TopP = 1.1 },
	} {
		r := validRequest()
		mutate(&r)
		assertEncodingError(t, r.Validate())
	}
}

func TestEncodeWireShape(t *testing.T) {
	body, err := Encode(validRequest(), true)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, "test-model", wire["model"])
	assert.Equal(t, true, wire["stream"])
	assert.Equal(t, float64(1024), wire["max_tokens"])
	assert.Equal(t, 0.95, wire["top_p"])

	kwargs, ok := wire["chat_template_kwargs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, kwargs["thinking"])

	msgs, ok := wire["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestEncodeInvalidRequest(t *testing.T) {
	r := validRequest()
	r.Messages = nil
	_, err := Encode(r, true)
	assertEncodingError(t, err)
}
