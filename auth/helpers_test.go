package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"session-gate/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// sequenceTokens yields the given tokens in order, then fails.
func sequenceTokens(tokens ...string) TokenFunc {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(tokens) {
			return "", errors.New("tokens exhausted")
		}
		t := tokens[i]
		i++
		return t, nil
	}
}

type fakeRecords struct {
	mu        sync.Mutex
	recs      []model.UserSession
	persisted int
	appendErr error
	allErr    error
	deleteErr error
}

func (f *fakeRecords) Append(_ context.Context, rec model.UserSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRecords) All(_ context.Context) ([]model.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	out := make([]model.UserSession, len(f.recs))
	copy(out, f.recs)
	return out, nil
}

func (f *fakeRecords) Delete(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	for i, r := range f.recs {
		if r.Token == token {
			f.recs = append(f.recs[:i], f.recs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecords) Persist(_ context.Context) error {
	f.mu.Lock()
	f.persisted++
	f.mu.Unlock()
	return nil
}

func (f *fakeRecords) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	seq   int
	saved int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*model.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	f.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.seq)
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByResetToken(_ context.Context, token string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (f *fakeUsers) Save(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.saved++
	return nil
}

// fakeNotifier records the last delivery. When release is set it blocks
// until the channel is closed.
type fakeNotifier struct {
	email, token string
	ctxErr       error
	err          error

	started chan struct{}
	release chan struct{}
}

func (n *fakeNotifier) SendResetToken(ctx context.Context, email, token string) error {
	if n.started != nil {
		close(n.started)
	}
	if n.release != nil {
		<-n.release
	}
	n.email, n.token = email, token
	n.ctxErr = ctx.Err()
	return n.err
}

var testHasher = NewBcryptHasher(bcrypt.MinCost)
