package auth

import (
	"context"
	"time"
)

// ExpiryStore rejects sessions older than its duration. Expired entries are
// left in the wrapped store; expiry is only checked on lookup.
type ExpiryStore struct {
	inner    Store
	duration time.Duration
	now      Clock
}

// NewExpiryStore wraps inner. A duration <= 0 disables expiry.
func NewExpiryStore(inner Store, duration time.Duration, opts ...Option) *ExpiryStore {
	o := buildOptions(opts)
	return &ExpiryStore{inner: inner, duration: duration, now: o.now}
}

func (s *ExpiryStore) Duration() time.Duration {
	return s.duration
}

// Expired reports whether a session created at createdAt is past the
// duration. A zero createdAt counts as expired whenever expiry is enabled.
func (s *ExpiryStore) Expired(createdAt time.Time) bool {
	if s.duration <= 0 {
		return false
	}
	if createdAt.IsZero() {
		return true
	}
	return s.now().Sub(createdAt) >= s.duration
}

func (s *ExpiryStore) Create(ctx context.Context, subjectID string) (Session, error) {
	return s.inner.Create(ctx, subjectID)
}

func (s *ExpiryStore) Lookup(ctx context.Context, token string) (Session, error) {
	sess, err := s.inner.Lookup(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(sess.CreatedAt) {
		return Session{}, ErrExpired
	}
	return sess, nil
}

func (s *ExpiryStore) Destroy(ctx context.Context, token string) bool {
	return s.inner.Destroy(ctx, token)
}
