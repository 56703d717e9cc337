package flows

import (
	"context"
	"time"
)

// Submission is the finalized output of a completed flow, handed to the
// persistence collaborator. The engine never writes to the relational
// store itself.
type Submission struct {
	FlowID      string            `json:"flow_id"`
	SessionID   string            `json:"session_id"`
	Answers     map[string]string `json:"answers"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Sink receives completed-flow submissions.
type Sink interface {
	Submit(ctx context.Context, sub Submission) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sub Submission) error

func (f SinkFunc) Submit(ctx context.Context, sub Submission) error { return f(ctx, sub) }

// StepOutcome describes what one flow turn did to the session.
type StepOutcome int

const (
	// StepPrompt: the answer was accepted (or rejected) and the session is
	// still mid-flow; Reply carries the next (or repeated) prompt.
	StepPrompt StepOutcome = iota
	// StepCompleted: the last field was filled; the submission was emitted
	// and the flow state cleared.
	StepCompleted
	// StepAborted: the flow was cancelled (escape token or retries
	// exhausted) and the flow state cleared.
	StepAborted
)

// StepResult is the outcome of feeding one message into an active flow.
type StepResult struct {
	Outcome StepOutcome
	Reply   string
}
