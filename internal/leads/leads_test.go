package leads

import (
	"context"
	"testing"
	"time"

	"github.com/ziadkadry99/convobot/internal/db"
	"github.com/ziadkadry99/convobot/internal/flows"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func submission(sessionID string) flows.Submission {
	return flows.Submission{
		FlowID:    "lead_capture",
		SessionID: sessionID,
		Answers: map[string]string{
			"name":  "Ada Lovelace",
			"email": "ada@example.com",
		},
		CompletedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubmitAndList(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Submit(ctx, submission("s1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(ctx, submission("s2")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	leads, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}

	sessions := map[string]bool{}
	for _, l := range leads {
		sessions[l.SessionID] = true
		if l.ID == "" {
			t.Error("lead missing generated id")
		}
		if l.FlowID != "lead_capture" {
			t.Errorf("flow id = %q", l.FlowID)
		}
		if l.Answers["name"] != "Ada Lovelace" || l.Answers["email"] != "ada@example.com" {
			t.Errorf("answers = %v", l.Answers)
		}
	}
	if !sessions["s1"] || !sessions["s2"] {
		t.Errorf("sessions = %v", sessions)
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Submit(ctx, submission("s1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	leads, err := s.List(ctx, "", 0)
	if err != nil || len(leads) != 1 {
		t.Fatalf("List: %v, %d leads", err, len(leads))
	}

	got, err := s.Get(ctx, leads[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing lead")
	}
	if got.SessionID != "s1" || got.Answers["email"] != "ada@example.com" {
		t.Errorf("Get = %+v", got)
	}
	if !got.CompletedAt.Equal(submission("s1").CompletedAt) {
		t.Errorf("CompletedAt = %v", got.CompletedAt)
	}
}

func TestGetMissingIsNilNoError(t *testing.T) {
	s := testStore(t)
	got, err := s.Get(context.Background(), "no-such-lead")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestListFilterAndLimit(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Submit(ctx, submission("s1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	other := submission("s3")
	other.FlowID = "support_request"
	if err := s.Submit(ctx, other); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	filtered, err := s.List(ctx, "support_request", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(filtered) != 1 || filtered[0].SessionID != "s3" {
		t.Errorf("filtered = %+v", filtered)
	}

	limited, err := s.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d leads", len(limited))
	}
}
