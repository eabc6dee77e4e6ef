package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = eris.New("session: not found")

type entry struct {
	state    State
	lastSeen time.Time
}

// Store keeps one State per session id. Each Dispatch runs the reducer and
// swaps the stored value under the lock, so callers never observe a partial
// update.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]entry
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]entry), now: time.Now}
}

// Create starts a new session in the initial state.
func (s *Store) Create() (uuid.UUID, State) {
	id := uuid.New()
	st := New()

	s.mu.Lock()
	s.sessions[id] = entry{state: st, lastSeen: s.now()}
	s.mu.Unlock()

	return id, st
}

// Get returns the current state of a session.
func (s *Store) Get(id uuid.UUID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return State{}, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	return e.state, nil
}

// Dispatch applies e to the session and stores the result. A rejected event
// leaves the stored state untouched.
func (s *Store) Dispatch(id uuid.UUID, e Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[id]
	if !ok {
		return State{}, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	next, err := Reduce(cur.state, e)
	if err != nil {
		return cur.state, err
	}
	s.sessions[id] = entry{state: next, lastSeen: s.now()}
	return next, nil
}

// Delete discards a session.
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than maxIdle, skipping any with an
// extraction in flight. It returns the number removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, e := range s.sessions {
		if e.state.Extracting || e.lastSeen.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}
