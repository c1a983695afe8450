package auth

import (
	"context"
	"fmt"
	"sync"
)

const maxTokenAttempts = 8

// MemoryStore keeps sessions in a map for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      Clock
	tokens   TokenFunc
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      o.now,
		tokens:   o.tokens,
	}
}

// Create regenerates the token on collision so an existing session is never
// overwritten.
func (s *MemoryStore) Create(_ context.Context, subjectID string) (Session, error) {
	if subjectID == "" {
		return Session{}, ErrInvalidSubject
	}
	for i := 0; i < maxTokenAttempts; i++ {
		token, err := s.tokens()
		if err != nil {
			return Session{}, fmt.Errorf("generate session token: %w", err)
		}
		if token == "" {
			continue
		}

		s.mu.Lock()
		if _, taken := s.sessions[token]; taken {
			s.mu.Unlock()
			continue
		}
		sess := Session{Token: token, SubjectID: subjectID, CreatedAt: s.now()}
		s.sessions[token] = sess
		s.mu.Unlock()
		return sess, nil
	}
	return Session{}, fmt.Errorf("generate session token: %d collisions", maxTokenAttempts)
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return sess, nil
}

func (s *MemoryStore) Destroy(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return false
	}
	delete(s.sessions, token)
	return true
}

// Len returns the number of sessions held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
