// Package flows drives multi-turn structured data collection. Once a
// flow-triggering intent is recognized, the session suspends plain intent
// matching and answers are routed here until the flow completes or aborts.
package flows

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/session"
)

// DefaultMaxRetries is the per-field validation retry budget.
const DefaultMaxRetries = 3

// Escape tokens abort an active flow regardless of the current field's
// validation rules.
var escapeTokens = []string{"exit", "cancel", "stop", "nevermind"}

const (
	abortedReply        = "Okay, cancelling that. What would you like to do?"
	retriesExhaustedMsg = "I'm having trouble with that answer, so let's stop here. You can start over any time."
)

// Engine runs the per-session flow state machine. It holds no per-session
// state itself; everything lives in the session context passed in.
type Engine struct {
	corpus     *corpus.Corpus
	sink       Sink
	maxRetries int
}

// NewEngine creates a flow engine emitting completed submissions to sink.
// maxRetries <= 0 selects DefaultMaxRetries.
func NewEngine(c *corpus.Corpus, sink Sink, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Engine{corpus: c, sink: sink, maxRetries: maxRetries}
}

// IsEscape reports whether the message contains a flow-abort token.
// Escape tokens take priority over field validation.
func IsEscape(text string) bool {
	lower := strings.ToLower(text)
	for _, token := range escapeTokens {
		for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
			return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
		}) {
			if word == token {
				return true
			}
		}
	}
	return false
}

// Start begins the named flow for the session. If another flow is already
// active it is aborted and replaced (abort-and-restart policy). The reply
// is the first field's prompt.
func (e *Engine) Start(sessionID string, sc *session.Context, flowID string) (string, bool) {
	def, ok := e.corpus.Flow(flowID)
	if !ok {
		return "", false
	}

	if sc.Flow != nil {
		slog.Info("aborting active flow for restart", "session", sessionID, "old", sc.Flow.FlowID, "new", flowID)
	}
	sc.Flow = &session.FlowState{
		FlowID:  flowID,
		Answers: make(map[string]string),
	}
	slog.Info("flow started", "session", sessionID, "flow", flowID, "fields", len(def.Fields))
	return def.Fields[0].Prompt, true
}

// Abort cancels the session's active flow, if any, and returns the
// cancellation acknowledgment.
func (e *Engine) Abort(sessionID string, sc *session.Context) string {
	if sc.Flow != nil {
		slog.Info("flow aborted", "session", sessionID, "flow", sc.Flow.FlowID, "field_index", sc.Flow.FieldIndex)
		sc.Flow = nil
	}
	return abortedReply
}

// Step treats the message as the answer to the current field's prompt.
// Invalid input never crashes the flow: it re-prompts, and after the retry
// budget is exhausted the flow aborts instead of looping forever.
func (e *Engine) Step(ctx context.Context, sessionID string, sc *session.Context, text string) StepResult {
	state := sc.Flow
	def, ok := e.corpus.Flow(state.FlowID)
	if !ok || state.FieldIndex >= len(def.Fields) {
		// Corrupt or orphaned state: reset rather than fail the turn.
		slog.Warn("clearing unusable flow state", "session", sessionID, "flow", state.FlowID, "field_index", state.FieldIndex)
		sc.Flow = nil
		return StepResult{Outcome: StepAborted, Reply: abortedReply}
	}

	field := def.Fields[state.FieldIndex]
	value, problem := validateAnswer(field, text)
	if problem != "" {
		state.Retries++
		if state.Retries >= e.maxRetries {
			slog.Info("flow aborted after retries", "session", sessionID, "flow", state.FlowID, "field", field.Name)
			sc.Flow = nil
			return StepResult{Outcome: StepAborted, Reply: retriesExhaustedMsg}
		}
		return StepResult{Outcome: StepPrompt, Reply: problem + " " + field.Prompt}
	}

	state.Answers[field.Name] = value
	state.FieldIndex++
	state.Retries = 0
	slog.Debug("flow field accepted", "session", sessionID, "flow", state.FlowID, "field", field.Name, "index", state.FieldIndex)

	if state.FieldIndex < len(def.Fields) {
		return StepResult{Outcome: StepPrompt, Reply: def.Fields[state.FieldIndex].Prompt}
	}

	return e.complete(ctx, sessionID, sc, def, state)
}

// complete emits the submission, clears the flow state, and renders the
// completion message.
func (e *Engine) complete(ctx context.Context, sessionID string, sc *session.Context, def corpus.FlowDefinition, state *session.FlowState) StepResult {
	sub := Submission{
		FlowID:      def.ID,
		SessionID:   sessionID,
		Answers:     state.Answers,
		CompletedAt: time.Now().UTC(),
	}
	if e.sink != nil {
		if err := e.sink.Submit(ctx, sub); err != nil {
			// The conversation stays responsive even if persistence hiccups.
			slog.Error("flow submission sink failed", "session", sessionID, "flow", def.ID, "error", err)
		}
	}

	sc.SetData(completedKey(def.ID), "true")
	sc.Flow = nil
	slog.Info("flow completed", "session", sessionID, "flow", def.ID, "answers", len(sub.Answers))

	return StepResult{Outcome: StepCompleted, Reply: renderCompletion(def.Completion, sub.Answers)}
}

// Completed reports whether the session already finished the given flow.
func Completed(sc *session.Context, flowID string) bool {
	return sc.GetData(completedKey(flowID)) == "true"
}

func completedKey(flowID string) string { return "completed:" + flowID }

// renderCompletion fills {field} placeholders from the accumulated answers.
func renderCompletion(msg string, answers map[string]string) string {
	if msg == "" {
		return "Thank you, that's everything I needed."
	}
	for name, value := range answers {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}
