// Package engine is the conversational core: it turns one inbound message
// into exactly one reply, routing between intent recognition and any
// active multi-turn flow. It is transport-agnostic; callers supply an
// opaque session id and the message text.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/flows"
	"github.com/ziadkadry99/convobot/internal/recognizer"
	"github.com/ziadkadry99/convobot/internal/responder"
	"github.com/ziadkadry99/convobot/internal/session"
)

const alreadyCompletedReply = "I already have your contact information. A sales representative will be in touch soon."

// Engine wires the recognizer, flow engine, session store, and response
// selector into one message-in, reply-out unit of work.
type Engine struct {
	corpus     *corpus.Corpus
	recognizer *recognizer.Recognizer
	flows      *flows.Engine
	sessions   session.Store
	responder  *responder.Selector
	triggers   map[string]string
	locks      *sessionLocks
}

// New assembles the engine. All collaborators are process-wide shared
// resources; per-session state lives exclusively in the session store.
func New(c *corpus.Corpus, rec *recognizer.Recognizer, fl *flows.Engine, store session.Store, sel *responder.Selector) *Engine {
	return &Engine{
		corpus:     c,
		recognizer: rec,
		flows:      fl,
		sessions:   store,
		responder:  sel,
		triggers:   c.FlowTriggers(),
		locks:      newSessionLocks(),
	}
}

// HandleMessage processes one conversation turn and always returns a
// textual reply; internal faults degrade to the fallback response instead
// of propagating across the engine boundary. Turns for the same session
// are serialized.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) string {
	e.locks.acquire(sessionID)
	defer e.locks.release(sessionID)

	sc, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		// Transient store failure resets the session rather than failing
		// the turn.
		slog.Error("session load failed, starting fresh", "session", sessionID, "error", err)
		sc = session.NewContext()
	}

	reply := e.turn(ctx, sessionID, sc, text)

	if err := e.sessions.Put(ctx, sessionID, sc); err != nil {
		slog.Error("session save failed", "session", sessionID, "error", err)
	}
	return reply
}

func (e *Engine) turn(ctx context.Context, sessionID string, sc *session.Context, text string) string {
	// Escape tokens take priority over everything while a flow is active.
	if sc.Flow != nil && flows.IsEscape(text) {
		sc.LastIntent = corpus.IntentFallback
		return e.flows.Abort(sessionID, sc)
	}

	// Mid-flow messages are answers to the pending prompt, not intents.
	if sc.Flow != nil {
		return e.flows.Step(ctx, sessionID, sc, text).Reply
	}

	result, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		slog.Error("recognition failed", "session", sessionID, "error", err)
		return e.fallback(sc)
	}
	slog.Debug("recognized intent", "session", sessionID, "intent", result.Intent,
		"confidence", result.Confidence, "fallback", result.Fallback)

	if result.Fallback {
		return e.fallback(sc)
	}

	if flowID, ok := e.triggers[result.Intent]; ok {
		if flows.Completed(sc, flowID) {
			return alreadyCompletedReply
		}
		prompt, ok := e.flows.Start(sessionID, sc, flowID)
		if !ok {
			return e.fallback(sc)
		}
		sc.LastIntent = result.Intent
		return prompt
	}

	if result.Intent == corpus.IntentHelp {
		sc.LastIntent = result.Intent
		return e.helpReply()
	}

	if result.Intent == corpus.IntentAffirmative {
		return e.affirmative(sc)
	}

	in, ok := e.corpus.Intent(result.Intent)
	if !ok || in.Responses.Empty() {
		return e.fallback(sc)
	}

	sc.LastIntent = result.Intent
	return e.responder.Select(in, e.discriminator(sc, in, text))
}

// fallback serves the configured fallback pool and records the miss.
func (e *Engine) fallback(sc *session.Context) string {
	sc.LastIntent = corpus.IntentFallback
	in, _ := e.corpus.Intent(corpus.IntentFallback)
	reply := e.responder.Select(in, "")
	if reply == "" {
		reply = "I'm sorry, I didn't understand that."
	}
	return reply
}

// affirmative steers a bare "yes" toward product selection, but only when
// the previous turn was the product overview. A stray affirmative has
// nothing to confirm and falls back.
func (e *Engine) affirmative(sc *session.Context) string {
	if sc.LastIntent != corpus.IntentProductInfo {
		return e.fallback(sc)
	}
	in, ok := e.corpus.Intent(corpus.IntentAffirmative)
	if !ok || in.Responses.Empty() {
		return e.fallback(sc)
	}
	sc.LastIntent = corpus.IntentAffirmative
	return e.responder.Select(in, "")
}

// discriminator resolves the sub-attribute used to filter keyed response
// pools: a pool key mentioned in the message wins and is remembered in the
// session scratch data for later turns.
func (e *Engine) discriminator(sc *session.Context, in corpus.Intent, text string) string {
	if len(in.Responses.ByKey) == 0 {
		return ""
	}

	lower := strings.ToLower(text)
	keys := make([]string, 0, len(in.Responses.ByKey))
	for k := range in.Responses.ByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		needle := strings.ReplaceAll(strings.ToLower(key), "_", " ")
		if strings.Contains(lower, needle) {
			sc.SetData("attr:"+in.Name, key)
			return key
		}
	}
	return sc.GetData("attr:" + in.Name)
}

// helpReply enumerates what the corpus can talk about, skipping internal
// intents and flow triggers.
func (e *Engine) helpReply() string {
	var capabilities []string
	for name, in := range e.corpus.Intents {
		switch name {
		case corpus.IntentFallback, corpus.IntentHelp, corpus.IntentAffirmative:
			continue
		}
		// Keyed intents refine another capability and are not listed on
		// their own.
		if in.Flow != "" || len(in.Patterns) == 0 || len(in.Responses.ByKey) > 0 {
			continue
		}
		capabilities = append(capabilities, strings.ReplaceAll(name, "_", " "))
	}
	if len(capabilities) == 0 {
		return "I'm a simple chatbot right now, but I can answer basic questions."
	}
	sort.Strings(capabilities)
	return "I can help you with: " + strings.Join(capabilities, ", ") + ". What would you like assistance with?"
}

// Degraded reports whether the engine is serving without a similarity
// index (recognition always falls back).
func (e *Engine) Degraded() bool { return e.recognizer.Degraded() }
