// Package ai wraps the text-generation backends. Every call yields a Result:
// generated text or a typed failure reason, never a panic or a bare error.
package ai

import (
	"context"
	"time"
)

// Reason classifies a failed generation.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoChoices
	ReasonTimeout
	ReasonTransport
	ReasonMalformed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoChoices:
		return "no_choices"
	case ReasonTimeout:
		return "timeout"
	case ReasonTransport:
		return "transport"
	case ReasonMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Request is one generation call: a system instruction and the user content.
type Request struct {
	SystemInstruction string
	UserPrompt        string
	MaxTokens         int
	Temperature       float32
}

// Result is the outcome of Generate. Text is set only when Reason is
// ReasonNone; Err carries the underlying cause of a failure for logging.
type Result struct {
	Text   string
	Reason Reason
	Err    error
}

// OK reports whether generation produced text.
func (r Result) OK() bool {
	return r.Reason == ReasonNone
}

// Success wraps generated text.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure wraps a failure reason and its cause.
func Failure(reason Reason, err error) Result {
	return Result{Reason: reason, Err: err}
}

// Generator produces text for a request within timeout.
type Generator interface {
	Generate(ctx context.Context, req Request, timeout time.Duration) Result
}
