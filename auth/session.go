// Package auth owns the session-token lifecycle and the credential flows
// built on top of it.
//
// Stores compose by wrapping: MemoryStore holds the token map, ExpiryStore
// rejects tokens older than a duration, PersistentStore mirrors both to a
// durable record collection. Gateway selects a chain and adds login,
// registration and password reset.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is an issued token. It never changes after creation.
type Session struct {
	Token     string
	SubjectID string
	CreatedAt time.Time
}

// Store is implemented by every layer of the session chain.
type Store interface {
	// Create issues a fresh token for subjectID.
	Create(ctx context.Context, subjectID string) (Session, error)
	// Lookup returns ErrInvalidToken for unknown tokens and ErrExpired for
	// tokens past their lifetime.
	Lookup(ctx context.Context, token string) (Session, error)
	// Destroy reports whether a session was removed.
	Destroy(ctx context.Context, token string) bool
}

// Clock returns the current time.
type Clock func() time.Time

// TokenFunc generates an opaque token.
type TokenFunc func() (string, error)

// NewToken returns a random (version 4) uuid string.
func NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type options struct {
	now    Clock
	tokens TokenFunc
	log    *zap.Logger
}

// Option configures a store.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(o *options) { o.now = c }
}

// WithTokens replaces the token generator.
func WithTokens(f TokenFunc) Option {
	return func(o *options) { o.tokens = f }
}

// WithLogger sets the logger used for non-fatal durability failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, tokens: NewToken, log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
