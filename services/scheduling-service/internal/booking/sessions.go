package booking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("booking session not found")

// Sessions holds one flow state per session. Updates to a session run one at a
// time; different sessions do not block each other.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

type session struct {
	mu    sync.Mutex
	state State
	// touched is guarded by Sessions.mu.
	touched time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{sessions: map[string]*session{}, ttl: ttl, now: time.Now}
}

func (s *Sessions) Create(initial State) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[id] = &session{state: initial, touched: s.now()}
	return id
}

func (s *Sessions) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.now().Sub(sess.touched) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Sessions) Get(id string) (State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, nil
}

// Update runs fn on the session's state with the session locked. The returned
// state is stored only when fn succeeds.
func (s *Sessions) Update(id string, fn func(State) (State, error)) (State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	next, err := fn(sess.state)
	if err != nil {
		return sess.state, err
	}
	sess.state = next
	s.mu.Lock()
	sess.touched = s.now()
	s.mu.Unlock()
	return next, nil
}

func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) sweepLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
