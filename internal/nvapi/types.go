// Package nvapi implements a streaming chat-completion client for the
// NVIDIA Integrate API (OpenAI-compatible, with a thinking-mode extension).
package nvapi

import (
	"encoding/json"
	"fmt"
)

// Message roles accepted by the API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Parameter bounds documented by the provider.
const (
	MaxTokensLimit = 131072
	TemperatureMax = 2.0
	TopPMax        = 1.0
)

// ChatRequest describes one chat-completion call.
// Thinking toggles the provider's reasoning mode; it is a request-time
// flag, not a separate client variant.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
	Thinking    bool
}

// Validate checks the request against the provider's documented ranges.
// Violations are encoding-class errors and are never retried.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return encodingErr("messages must not be empty")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return encodingErr(fmt.Sprintf("message %d has unknown role %q", i, m.Role))
		}
		if m.Content == "" {
			return encodingErr(fmt.Sprintf("message %d has empty content", i))
		}
	}
	if last := r.Messages[len(r.Messages)-1]; last.Role != RoleUser {
		return encodingErr("last message must have role user")
	}
	if r.MaxTokens <= 0 || r.MaxTokens > MaxTokensLimit {
		return encodingErr(fmt.Sprintf("max_tokens %d outside 1..%d", r.MaxTokens, MaxTokensLimit))
	}
	if r.Temperature < 0 || r.Temperature > TemperatureMax {
		return encodingErr(fmt.Sprintf("temperature %g outside 0..%g", r.Temperature, TemperatureMax))
	}
	if r.TopP < 0 || r.TopP > TopPMax {
		return encodingErr(fmt.Sprintf("top_p %g outside 0..%g", r.TopP, TopPMax))
	}
	return nil
}

// chatTemplateKwargs carries the provider's thinking-mode toggle.
type chatTemplateKwargs struct {
	Thinking bool `json:"thinking"`
}

// wireRequest is the JSON body for POST /chat/completions.
type wireRequest struct {
	Model              string             `json:"model"`
	Messages           []Message          `json:"messages"`
	MaxTokens          int                `json:"max_tokens"`
	Temperature        float64            `json:"temperature"`
	TopP               float64            `json:"top_p"`
	Stream             bool               `json:"stream"`
	ChatTemplateKwargs chatTemplateKwargs `json:"chat_template_kwargs"`
}

// Encode validates the request and marshals it into the provider schema.
func Encode(r ChatRequest, stream bool) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(wireRequest{
		Model:              r.Model,
		Messages:           r.Messages,
		MaxTokens:          r.MaxTokens,
		Temperature:        r.Temperature,
		TopP:               r.TopP,
		Stream:             stream,
		ChatTemplateKwargs: chatTemplateKwargs{Thinking: r.Thinking},
	})
	if err != nil {
		return nil, encodingErr("marshal request: " + err.Error())
	}
	return body, nil
}

// Usage is the provider's token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FinishReason classifies why generation stopped.
type FinishReason string

const (
	FinishStop    FinishReason = "stop"
	FinishLength  FinishReason = "length"
	FinishError   FinishReason = "error"
	FinishUnknown FinishReason = "unknown"
)

func mapFinishReason(raw string) FinishReason {
	switch raw {
	case "stop":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	case "error":
		return FinishError
	default:
		return FinishUnknown
	}
}

// streamChunk mirrors one streamed chat.completion.chunk payload.
type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Choices []streamChoice `json:"choices"`
	Usage   *Usage         `json:"usage"`
	Error   *errorPayload  `json:"error"`
}

type streamChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// wireDelta is the incremental payload inside a streamed choice.
// Reasoning text arrives on a channel separate from content; the field
// name varies across deployments, so both spellings are accepted.
type wireDelta struct {
	Role             string `json:"role,omitempty"`
	Content          string `json:"content,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

func (d wireDelta) reasoningText() string {
	if d.Reasoning != "" {
		return d.Reasoning
	}
	return d.ReasoningContent
}

// errorPayload is an error object some deployments embed in the stream.
type errorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []chatChoice `json:"choices"`
	Usage   *Usage       `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	Reasoning        string `json:"reasoning,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

func (m wireMessage) reasoningText() string {
	if m.Reasoning != "" {
		return m.Reasoning
	}
	return m.ReasoningContent
}
