package engine

import "sync"

// sessionLocks serializes turns per session id. Flow state mutation is not
// commutative, so two concurrent messages for one session must not
// interleave their read-modify-write of context. Entries are refcounted
// and removed when idle so the map stays bounded by active sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire blocks until the caller holds the session's lock.
func (s *sessionLocks) acquire(sessionID string) {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
}

// release unlocks the session's lock and drops it once unused.
func (s *sessionLocks) release(sessionID string) {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if ok {
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
	}
	s.mu.Unlock()

	if ok {
		l.mu.Unlock()
	}
}

// len reports the number of sessions with in-flight turns.
func (s *sessionLocks) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
