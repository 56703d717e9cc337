package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/db"
	"github.com/ziadkadry99/convobot/internal/embeddings"
	"github.com/ziadkadry99/convobot/internal/engine"
	"github.com/ziadkadry99/convobot/internal/flows"
	"github.com/ziadkadry99/convobot/internal/index"
	"github.com/ziadkadry99/convobot/internal/leads"
	"github.com/ziadkadry99/convobot/internal/recognizer"
	"github.com/ziadkadry99/convobot/internal/responder"
	"github.com/ziadkadry99/convobot/internal/session"
)

const testIntents = `
intents:
  greeting:
    patterns: ["hello"]
    responses: ["Hi there!"]
  lead_capture_start:
    patterns: ["contact me"]
    flow: lead_capture
  fallback:
    responses: ["Sorry, I didn't catch that."]
`

const testFlows = `
flows:
  lead_capture:
    completion: "Thanks {name}!"
    fields:
      - name: name
        prompt: "What is your full name?"
        type: text
        pattern: '\S+\s+\S+'
      - name: email
        prompt: "What is your email address?"
        type: email
`

func testServer(t *testing.T, degraded bool) *Server {
	t.Helper()
	dir := t.TempDir()
	intentsPath := filepath.Join(dir, "intents.yml")
	if err := os.WriteFile(intentsPath, []byte(testIntents), 0o644); err != nil {
		t.Fatalf("writing intents: %v", err)
	}
	flowsPath := filepath.Join(dir, "flows.yml")
	if err := os.WriteFile(flowsPath, []byte(testFlows), 0o644); err != nil {
		t.Fatalf("writing flows: %v", err)
	}
	c, err := corpus.Load([]string{intentsPath}, flowsPath)
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}

	emb := embeddings.NewHashEmbedder(64)
	var ix *index.Index
	if !degraded {
		if ix, err = (&index.Builder{Embedder: emb}).Build(context.Background(), c); err != nil {
			t.Fatalf("building index: %v", err)
		}
	}

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	leadStore := leads.NewStore(database)

	eng := engine.New(
		c,
		recognizer.New(emb, ix, recognizer.DefaultTopK, recognizer.DefaultMinConfidence),
		flows.NewEngine(c, leadStore, 0),
		session.NewMemoryStore(time.Hour),
		responder.New(rand.NewSource(5)),
	)
	return New(Config{Port: 0}, eng, leadStore)
}

func postMessage(t *testing.T, srv *Server, sessionID, text string) messageResponse {
	t.Helper()
	body, _ := json.Marshal(messageRequest{SessionID: sessionID, Text: text})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/chat/message = %d: %s", rec.Code, rec.Body.String())
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestHealthzDegraded(t *testing.T) {
	srv := testServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %q, want degraded", body["status"])
	}
}

func TestChatMessage(t *testing.T) {
	srv := testServer(t, false)

	resp := postMessage(t, srv, "s1", "hello")
	if resp.Reply != "Hi there!" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.SessionID != "s1" {
		t.Errorf("session id = %q", resp.SessionID)
	}
}

func TestChatMessageAssignsSessionID(t *testing.T) {
	srv := testServer(t, false)

	resp := postMessage(t, srv, "", "hello")
	if resp.SessionID == "" {
		t.Error("no session id assigned")
	}

	// The assigned id carries conversation state across turns.
	second := postMessage(t, srv, resp.SessionID, "contact me")
	if second.Reply != "What is your full name?" {
		t.Errorf("flow start over assigned session = %q", second.Reply)
	}
}

func TestChatMessageBadBody(t *testing.T) {
	srv := testServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", rec.Code)
	}
}

func TestListLeadsAfterCompletedFlow(t *testing.T) {
	srv := testServer(t, false)

	postMessage(t, srv, "s1", "contact me")
	postMessage(t, srv, "s1", "Ada Lovelace")
	done := postMessage(t, srv, "s1", "ada@example.com")
	if done.Reply != "Thanks Ada Lovelace!" {
		t.Fatalf("completion reply = %q", done.Reply)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/leads = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Leads []leads.Lead `json:"leads"`
		Count int          `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding leads: %v", err)
	}
	if body.Count != 1 || len(body.Leads) != 1 {
		t.Fatalf("leads = %+v", body)
	}
	lead := body.Leads[0]
	if lead.SessionID != "s1" || lead.Answers["email"] != "ada@example.com" {
		t.Errorf("lead = %+v", lead)
	}
}

func TestListLeadsFlowFilter(t *testing.T) {
	srv := testServer(t, false)

	postMessage(t, srv, "s1", "contact me")
	postMessage(t, srv, "s1", "Ada Lovelace")
	postMessage(t, srv, "s1", "ada@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/leads?flow=unrelated_flow", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding leads: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("filtered count = %d, want 0", body.Count)
	}
}

func TestListLeadsBadLimit(t *testing.T) {
	srv := testServer(t, false)

	for _, query := range []string{"?limit=abc", "?limit=-1", "?limit=1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/leads"+query, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET /api/leads%s = %d, want 400", query, rec.Code)
		}
	}

	// An absent limit still means the default.
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/leads without limit = %d, want 200", rec.Code)
	}
}

func TestListLeadsWithoutStore(t *testing.T) {
	srv := testServer(t, false)
	srv.leadStore = nil
	srv.router = srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("leads without store = %d, want 404", rec.Code)
	}
}
