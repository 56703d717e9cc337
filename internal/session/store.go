// Package session persists per-session conversation context across
// independent message deliveries. Contexts cross the store boundary as
// opaque JSON blobs, so in-memory and Redis backends are interchangeable.
package session

import "context"

// Store is the session context store. Every Put refreshes the session
// TTL; a Get for an unknown or expired session returns a fresh empty
// context, never an error — absence is equivalent to "no flow".
type Store interface {
	Get(ctx context.Context, sessionID string) (*Context, error)
	Put(ctx context.Context, sessionID string, sc *Context) error
	Delete(ctx context.Context, sessionID string) error
}
