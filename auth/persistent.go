package auth

import (
	"context"

	"go.uber.org/zap"

	"session-gate/model"
)

// RecordCollection is the durable side of PersistentStore.
type RecordCollection interface {
	Append(ctx context.Context, rec model.UserSession) error
	All(ctx context.Context) ([]model.UserSession, error)
	// Delete reports whether a record with token existed.
	Delete(ctx context.Context, token string) (bool, error)
	Persist(ctx context.Context) error
}

// recordFinder is implemented by collections that can look a token up
// without a full scan.
type recordFinder interface {
	Find(ctx context.Context, token string) (model.UserSession, bool, error)
}

// PersistentStore mirrors every create and destroy to a RecordCollection and
// answers lookups from it, so sessions survive a restart.
//
// Durable writes happen outside the in-memory lock and are best effort: a
// failed write is logged and the in-memory operation still succeeds. Between
// the two writes the stores may briefly disagree.
type PersistentStore struct {
	inner   *ExpiryStore
	records RecordCollection
	log     *zap.Logger
}

func NewPersistentStore(inner *ExpiryStore, records RecordCollection, opts ...Option) *PersistentStore {
	o := buildOptions(opts)
	return &PersistentStore{inner: inner, records: records, log: o.log}
}

func (s *PersistentStore) Create(ctx context.Context, subjectID string) (Session, error) {
	sess, err := s.inner.Create(ctx, subjectID)
	if err != nil {
		return Session{}, err
	}

	rec := model.UserSession{Token: sess.Token, UserID: sess.SubjectID, CreatedAt: sess.CreatedAt}
	if err := s.records.Append(ctx, rec); err != nil {
		s.log.Warn("session record not written", zap.String("user_id", subjectID), zap.Error(err))
		return sess, nil
	}
	if err := s.records.Persist(ctx); err != nil {
		s.log.Warn("session records not persisted", zap.String("user_id", subjectID), zap.Error(err))
	}
	return sess, nil
}

// Lookup re-derives validity from the stored creation time. A token with no
// durable record, or a collection that cannot be read, is answered by the
// in-memory chain, so a session whose record failed to write still resolves
// until the process restarts.
func (s *PersistentStore) Lookup(ctx context.Context, token string) (Session, error) {
	rec, found, err := s.find(ctx, token)
	if err != nil {
		s.log.Warn("session records unreadable, using memory", zap.Error(err))
		return s.inner.Lookup(ctx, token)
	}
	if !found {
		return s.inner.Lookup(ctx, token)
	}
	if s.inner.Expired(rec.CreatedAt) {
		return Session{}, ErrExpired
	}
	return Session{Token: rec.Token, SubjectID: rec.UserID, CreatedAt: rec.CreatedAt}, nil
}

func (s *PersistentStore) find(ctx context.Context, token string) (model.UserSession, bool, error) {
	if token == "" {
		return model.UserSession{}, false, nil
	}
	if f, ok := s.records.(recordFinder); ok {
		return f.Find(ctx, token)
	}
	recs, err := s.records.All(ctx)
	if err != nil {
		return model.UserSession{}, false, err
	}
	for _, rec := range recs {
		if rec.Token == token {
			return rec, true, nil
		}
	}
	return model.UserSession{}, false, nil
}

// Destroy returns true only when a durable record was removed.
func (s *PersistentStore) Destroy(ctx context.Context, token string) bool {
	removed, err := s.records.Delete(ctx, token)
	if err != nil {
		s.log.Warn("session record not deleted", zap.Error(err))
		removed = false
	} else if removed {
		if err := s.records.Persist(ctx); err != nil {
			s.log.Warn("session records not persisted", zap.Error(err))
		}
	}
	s.inner.Destroy(ctx, token)
	return removed
}

// Sweep deletes durable records past the expiry duration and returns how many
// were removed. It is a no-op when expiry is disabled.
func (s *PersistentStore) Sweep(ctx context.Context) (int, error) {
	if s.inner.Duration() <= 0 {
		return 0, nil
	}
	recs, err := s.records.All(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range recs {
		if !s.inner.Expired(rec.CreatedAt) {
			continue
		}
		removed, err := s.records.Delete(ctx, rec.Token)
		if err != nil {
			return n, err
		}
		s.inner.Destroy(ctx, rec.Token)
		if removed {
			n++
		}
	}
	if n > 0 {
		if err := s.records.Persist(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}
