package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"session-gate/model"
)

// SessionRecords is the sqlite-backed durable session collection.
type SessionRecords struct {
	db *gorm.DB
}

func NewSessionRecords(db *gorm.DB) *SessionRecords {
	return &SessionRecords{db: db}
}

func (s *SessionRecords) Append(ctx context.Context, rec model.UserSession) error {
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *SessionRecords) All(ctx context.Context) ([]model.UserSession, error) {
	var recs []model.UserSession
	err := s.db.WithContext(ctx).Order("created_at").Find(&recs).Error
	return recs, err
}

func (s *SessionRecords) Find(ctx context.Context, token string) (model.UserSession, bool, error) {
	var rec model.UserSession
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserSession{}, false, nil
	}
	if err != nil {
		return model.UserSession{}, false, err
	}
	return rec, true, nil
}

func (s *SessionRecords) Delete(ctx context.Context, token string) (bool, error) {
	res := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.UserSession{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Persist is a no-op: every write above is committed on its own.
func (s *SessionRecords) Persist(context.Context) error {
	return nil
}
