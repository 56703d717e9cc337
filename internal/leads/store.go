// Package leads is the data-layer collaborator that persists finalized
// flow submissions. It implements flows.Sink.
package leads

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ziadkadry99/convobot/internal/db"
	"github.com/ziadkadry99/convobot/internal/flows"
)

// Store persists leads in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a lead store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Submit stores a completed flow submission as a lead record.
func (s *Store) Submit(ctx context.Context, sub flows.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning lead transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO leads (id, flow_id, session_id, completed_at) VALUES (?, ?, ?, ?)`,
		id, sub.FlowID, sub.SessionID, sub.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting lead: %w", err)
	}

	for field, answer := range sub.Answers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO lead_answers (lead_id, field, answer) VALUES (?, ?, ?)`,
			id, field, answer,
		)
		if err != nil {
			return fmt.Errorf("inserting lead answer %q: %w", field, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a lead by id, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Lead, error) {
	var l Lead
	err := s.db.QueryRowContext(ctx,
		`SELECT id, flow_id, session_id, completed_at, created_at FROM leads WHERE id = ?`, id,
	).Scan(&l.ID, &l.FlowID, &l.SessionID, &l.CompletedAt, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}

	l.Answers, err = s.answers(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns leads newest first, optionally filtered by flow id.
func (s *Store) List(ctx context.Context, flowID string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, flow_id, session_id, completed_at, created_at FROM leads`
	args := []interface{}{}
	if flowID != "" {
		query += ` WHERE flow_id = ?`
		args = append(args, flowID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.FlowID, &l.SessionID, &l.CompletedAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Answers, err = s.answers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) answers(ctx context.Context, leadID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, answer FROM lead_answers WHERE lead_id = ?`, leadID)
	if err != nil {
		return nil, fmt.Errorf("querying lead answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var field, answer string
		if err := rows.Scan(&field, &answer); err != nil {
			return nil, fmt.Errorf("scanning lead answer: %w", err)
		}
		answers[field] = answer
	}
	return answers, rows.Err()
}

var _ flows.Sink = (*Store)(nil)
