package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"session-gate/model"
)

// UserRepository persists subjects. Lookups return ErrNotFound when nothing
// matches and Create returns ErrAlreadyExists for a duplicate email.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByResetToken(ctx context.Context, token string) (*model.User, error)
	Save(ctx context.Context, u *model.User) error
}

// ResetNotifier delivers a freshly issued reset token to its owner.
type ResetNotifier interface {
	SendResetToken(ctx context.Context, email, token string) error
}

// notifyTimeout bounds one reset delivery, retries included.
const notifyTimeout = 30 * time.Second

// Gateway is the entry point used by the transport layers.
type Gateway struct {
	users    UserRepository
	sessions Store
	hasher   Hasher
	notifier ResetNotifier
	tokens   TokenFunc
	log      *zap.Logger

	pending sync.WaitGroup
}

type GatewayOption func(*Gateway)

// WithNotifier sends reset tokens through n in addition to returning them.
func WithNotifier(n ResetNotifier) GatewayOption {
	return func(g *Gateway) { g.notifier = n }
}

func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// WithResetTokens replaces the reset token generator.
func WithResetTokens(f TokenFunc) GatewayOption {
	return func(g *Gateway) { g.tokens = f }
}

func NewGateway(users UserRepository, sessions Store, hasher Hasher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   NewToken,
		log:      zap.NewNop(),
	}
	for _, fn := range opts {
		fn(g)
	}
	return g
}

// Sessions exposes the configured store chain.
func (g *Gateway) Sessions() Store {
	return g.sessions
}

func (g *Gateway) Register(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	_, err := g.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("user %s: %w", email, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Email: email, PasswordHash: hash}
	if err := g.users.Create(ctx, u); err != nil {
		return nil, err
	}
	g.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks credentials without issuing a session.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !g.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a session token.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := g.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	sess, err := g.sessions.Create(ctx, u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	g.log.Debug("session created", zap.String("user_id", u.ID))
	return sess.Token, u, nil
}

// Resolve returns the subject owning token.
func (g *Gateway) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sess, err := g.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.users.FindByID(ctx, sess.SubjectID)
}

// Logout destroys token. Calling it twice is harmless.
func (g *Gateway) Logout(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	return g.sessions.Destroy(ctx, token)
}

// RequestPasswordReset stores a new single-use reset token on the subject.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	token, err := g.tokens()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	u.ResetToken = &token
	if err := g.users.Save(ctx, u); err != nil {
		return "", err
	}

	if g.notifier != nil {
		g.pending.Add(1)
		go g.notify(context.WithoutCancel(ctx), u.ID, u.Email, token)
	}
	return token, nil
}

// notify runs detached from the request; delivery failures are only logged.
func (g *Gateway) notify(ctx context.Context, userID, email, token string) {
	defer g.pending.Done()
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := g.notifier.SendResetToken(ctx, email, token); err != nil {
		g.log.Warn("reset token not delivered", zap.String("user_id", userID), zap.Error(err))
	}
}

// Wait blocks until every reset notification in flight has finished.
func (g *Gateway) Wait() {
	g.pending.Wait()
}

// CompletePasswordReset consumes resetToken and sets a new password.
func (g *Gateway) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return ErrInvalidToken
	}
	u, err := g.users.FindByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if newPassword == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	hash, err := g.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	return g.users.Save(ctx, u)
}
