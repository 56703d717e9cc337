package leads

import "time"

// Lead is one persisted flow submission.
type Lead struct {
	ID          string            `json:"id"`
	FlowID      string            `json:"flow_id"`
	SessionID   string            `json:"session_id"`
	Answers     map[string]string `json:"answers"`
	CompletedAt time.Time         `json:"completed_at"`
	CreatedAt   time.Time         `json:"created_at"`
}
