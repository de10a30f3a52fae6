package nvapi

import "strings"

// Response accumulates one streamed chat completion. It is owned by a
// single in-flight request: created empty when the request starts and
// frozen once a finish or error delta arrives.
type Response struct {
	answer    strings.Builder
	reasoning strings.Builder

	finishReason FinishReason
	usage        *Usage
	err          *APIError
	finished     bool
}

// Apply folds one delta into the response. Text fields are append-only.
// Any delta arriving after the terminal transition is rejected without
// touching the already-accumulated text.
func (r *Response) Apply(d Delta) error {
	if r.finished {
		return malformedErr("delta received after stream finished", string(d.Kind), nil)
	}
	switch d.Kind {
	case DeltaContent:
		r.answer.WriteString(d.Text)
	case DeltaReasoning:
		r.reasoning.WriteString(d.Text)
	case DeltaUsage:
		if d.Usage != nil {
			u := *d.Usage
			r.usage = &u // last value observed wins
		}
	case DeltaFinish:
		r.finishReason = d.Reason
		r.finished = true
	case DeltaError:
		msg := "stream reported an error"
		if d.Err != nil && d.Err.Message != "" {
			msg = d.Err.Message
		}
		r.err = &APIError{Kind: ErrKindServer, Message: msg}
		r.finishReason = FinishError
		r.finished = true
	default:
		return malformedErr("unknown delta kind", string(d.Kind), nil)
	}
	return nil
}

// fail freezes the response with a terminal error, preserving text.
func (r *Response) fail(err *APIError) {
	if r.finished {
		return
	}
	r.err = err
	r.finishReason = FinishError
	r.finished = true
}

// Answer returns the accumulated answer text.
func (r *Response) Answer() string { return r.answer.String() }

// Reasoning returns the accumulated reasoning text.
func (r *Response) Reasoning() string { return r.reasoning.String() }

// FinishReason returns the terminal classification, or FinishUnknown if
// the stream has not finished.
func (r *Response) FinishReason() FinishReason {
	if r.finishReason == "" {
		return FinishUnknown
	}
	return r.finishReason
}

// Usage returns the token usage reported by the provider, if any.
func (r *Response) Usage() *Usage { return r.usage }

// Err returns the terminal error, if the stream failed.
func (r *Response) Err() *APIError { return r.err }

// Finished reports whether the response has reached a terminal state.
func (r *Response) Finished() bool { return r.finished }
