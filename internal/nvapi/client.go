package nvapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is the NVIDIA Integrate API endpoint.
const DefaultBaseURL = "https://integrate.api.nvidia.com/v1"

const chatCompletionsPath = "/chat/completions"

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("nvapi: stream closed")

// Config holds the process-wide client configuration. It is read-only
// after NewClient.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration // non-streaming request timeout
	Retry      RetryPolicy
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client talks to the NVIDIA chat-completions API. It holds no per-request
// state; concurrent Sends each own their response and connection.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	retry      RetryPolicy
	httpClient *http.Client
	log        *zap.SugaredLogger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient validates the configuration and builds a Client. A missing
// credential is reported here, before any network call, as an auth error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &APIError{Kind: ErrKindAuth, Message: "NVIDIA API key is not configured"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		retry:      cfg.Retry,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger,
		sleep:      sleepCtx,
	}, nil
}

// Model returns the model currently used for requests without one.
func (c *Client) Model() string { return c.model }

// SetModel changes the default model.
func (c *Client) SetModel(model string) { c.model = model }

// EventKind tags a progress event emitted by a Stream.
type EventKind string

const (
	EventReasoning EventKind = "reasoning" // incremental reasoning text
	EventAnswer    EventKind = "answer"    // incremental answer text
	EventDone      EventKind = "done"      // terminal: finished normally
	EventFailed    EventKind = "failed"    // terminal: failed, partial preserved
)

// ProgressEvent is one unit of progress from a streamed completion.
// Exactly one terminal event (done or failed) is produced per Send.
type ProgressEvent struct {
	Kind EventKind

	Text string // reasoning/answer chunks

	FinishReason FinishReason // done
	Usage        *Usage       // done, when the provider reported it

	Err     *APIError // failed
	Partial *Response // failed: whatever accumulated before the error
}

// Terminal reports whether this event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventFailed
}

// Send starts one streaming chat completion. Request validation errors
// are returned synchronously; no network I/O happens until the first
// Recv, so consuming the stream drives the connection.
func (c *Client) Send(ctx context.Context, req ChatRequest) (*Stream, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := Encode(req, true)
	if err != nil {
		return nil, err
	}
	return &Stream{
		c:     c,
		ctx:   ctx,
		reqID: shortID(),
		body:  body,
		acc:   &Response{},
	}, nil
}

// Stream is a pull-driven sequence of progress events for one request.
// It is not safe for concurrent use.
type Stream struct {
	c     *Client
	ctx   context.Context
	reqID string
	body  []byte

	resp    *http.Response
	lines   *lineReader
	acc     *Response
	pending []ProgressEvent

	attempts  int
	deltaSeen bool
	terminal  bool
	closed    bool
}

// Recv returns the next progress event. After the terminal event it
// returns io.EOF. Cancellation surfaces as an error, not an event:
// abandoning the stream is itself the terminal action.
func (s *Stream) Recv() (ProgressEvent, error) {
	if s.closed {
		return ProgressEvent{}, ErrStreamClosed
	}
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.terminal {
			return ProgressEvent{}, io.EOF
		}
		if err := s.ctx.Err(); err != nil {
			s.release()
			return ProgressEvent{}, classifyTransport(err)
		}

		if s.resp == nil {
			if err := s.connect(); err != nil {
				return ProgressEvent{}, err
			}
			continue
		}
		if err := s.readFrame(); err != nil {
			return ProgressEvent{}, err
		}
	}
}

// Close abandons the stream and releases the underlying connection.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

// Response returns the accumulated response. It is complete once a
// terminal event has been received.
func (s *Stream) Response() *Response { return s.acc }

// connect opens the streamed HTTP response, applying the retry policy to
// failures that happen before any delta has been delivered. On a
// non-retryable or exhausted failure it queues the terminal event.
func (s *Stream) connect() error {
	for {
		s.attempts++
		resp, apiErr := s.c.post(s.ctx, s.body, true)
		if apiErr == nil {
			s.resp = resp
			s.lines = newLineReader(resp.Body)
			return nil
		}
		if apiErr.Kind == ErrKindCanceled {
			return apiErr
		}
		if err := s.retryOrFail(apiErr); err != nil {
			return err
		}
		if s.terminal {
			return nil
		}
	}
}

// retryOrFail applies the retry policy to a classified failure. When the
// failure is final it queues the Failed event; otherwise it sleeps the
// backoff delay and leaves the stream ready for another attempt.
func (s *Stream) retryOrFail(apiErr *APIError) error {
	if !apiErr.Retryable() || s.attempts >= s.c.retry.MaxAttempts {
		s.failWith(apiErr)
		return nil
	}
	delay := s.c.retry.Delay(s.attempts, apiErr.RetryAfter)
	s.c.log.Warnw("retrying chat request",
		"request_id", s.reqID, "attempt", s.attempts, "delay", delay, "error", apiErr)
	if err := s.c.sleep(s.ctx, delay); err != nil {
		return classifyTransport(err)
	}
	return nil
}

// readFrame reads one logical frame and turns it into pending events.
func (s *Stream) readFrame() error {
	payload, err := s.lines.Next()
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			s.release()
			return classifyTransport(ctxErr)
		}
		// The transport closed before the sentinel: truncation is never
		// success. Before the first delta it is still retryable.
		truncated := &APIError{Kind: ErrKindNetwork, Message: "connection closed before stream completed", Cause: err}
		s.release()
		if !s.deltaSeen {
			return s.retryOrFail(truncated)
		}
		s.failWith(truncated)
		return nil
	}

	if strings.TrimSpace(payload) == doneSentinel {
		if !s.acc.Finished() {
			_ = s.acc.Apply(Delta{Kind: DeltaFinish, Reason: FinishUnknown})
		}
		s.pending = append(s.pending, ProgressEvent{
			Kind:         EventDone,
			FinishReason: s.acc.FinishReason(),
			Usage:        s.acc.Usage(),
		})
		s.terminal = true
		s.release()
		s.c.log.Debugw("stream completed",
			"request_id", s.reqID, "finish_reason", s.acc.FinishReason())
		return nil
	}

	deltas, err := DecodeLine(payload)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = malformedErr("decode stream frame", payload, err)
		}
		s.failWith(apiErr)
		return nil
	}
	for _, d := range deltas {
		if err := s.acc.Apply(d); err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				apiErr = malformedErr("apply stream delta", payload, err)
			}
			s.failWith(apiErr)
			return nil
		}
		switch d.Kind {
		case DeltaReasoning:
			s.deltaSeen = true
			s.pending = append(s.pending, ProgressEvent{Kind: EventReasoning, Text: d.Text})
		case DeltaContent:
			s.deltaSeen = true
			s.pending = append(s.pending, ProgressEvent{Kind: EventAnswer, Text: d.Text})
		case DeltaError:
			s.failWith(s.acc.Err())
			return nil
		}
	}
	return nil
}

// failWith queues the single terminal Failed event, freezing the
// accumulated response alongside the error so partial output survives.
func (s *Stream) failWith(apiErr *APIError) {
	s.acc.fail(apiErr)
	s.pending = append(s.pending, ProgressEvent{Kind: EventFailed, Err: apiErr, Partial: s.acc})
	s.terminal = true
	s.release()
	s.c.log.Warnw("stream failed",
		"request_id", s.reqID, "kind", apiErr.Kind, "error", apiErr,
		"partial_answer_len", len(s.acc.Answer()))
}

func (s *Stream) release() {
	if s.resp != nil {
		_ = s.resp.Body.Close()
		s.resp = nil
	}
}

// Complete sends a non-streaming chat completion, applying the same
// retry policy as Send.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := Encode(req, false)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var apiErr *APIError
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, postErr := c.post(ctx, body, false)
		if postErr == nil {
			return decodeCompleteResponse(resp)
		}
		apiErr = postErr
		if apiErr.Kind == ErrKindCanceled || !apiErr.Retryable() || attempt >= c.retry.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.retry.Delay(attempt, apiErr.RetryAfter)); err != nil {
			return nil, classifyTransport(err)
		}
	}
	return nil, apiErr
}

func decodeCompleteResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	var wire chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, malformedErr("decode completion response", "", err)
	}
	out := &Response{}
	if len(wire.Choices) > 0 {
		choice := wire.Choices[0]
		if r := choice.Message.reasoningText(); r != "" {
			_ = out.Apply(Delta{Kind: DeltaReasoning, Text: r})
		}
		if choice.Message.Content != "" {
			_ = out.Apply(Delta{Kind: DeltaContent, Text: choice.Message.Content})
		}
		if wire.Usage != nil {
			_ = out.Apply(Delta{Kind: DeltaUsage, Usage: wire.Usage})
		}
		_ = out.Apply(Delta{Kind: DeltaFinish, Reason: mapFinishReason(choice.FinishReason)})
	}
	return out, nil
}

// post performs one HTTP attempt and classifies any failure. A non-200
// status never returns a response; its body is drained and closed here.
func (c *Client) post(ctx context.Context, body []byte, stream bool) (*http.Response, *APIError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: ErrKindNetwork, Message: fmt.Sprintf("create request: %v", err), Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, respBody, resp.Header.Get("Retry-After"))
	}
	return resp, nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
