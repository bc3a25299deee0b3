package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talkdb/talkdb/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionID names the single shared session used by Respond.
const DefaultSessionID = "default"

type Session struct {
	ID        string
	CreatedAt time.Time

	transcript Transcript
	// turn holds one token; whoever holds it owns read, agent call and append.
	turn chan struct{}
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, turn: make(chan struct{}, 1)}
}

func (s *Session) Turns() []Turn {
	return s.transcript.Turns()
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.turn
}

// Store keeps sessions in memory for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}, now: time.Now}
}

func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := newSession(uuid.NewString(), s.now().UTC())
	s.sessions[session.ID] = session
	observability.SetActiveSessions(len(s.sessions))
	return session
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate returns the session with id, creating it on first use. A blank
// id gets a fresh generated one, matching HandleTurn.
func (s *Store) GetOrCreate(id string) *Session {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.Create()
	}
	if session, err := s.Get(id); err == nil {
		return session
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		return session
	}
	session := newSession(id, s.now().UTC())
	s.sessions[id] = session
	observability.SetActiveSessions(len(s.sessions))
	return session
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
