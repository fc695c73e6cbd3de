package repository

import (
	"context"
	"time"

	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/utils"

	"gorm.io/gorm"
)

// SessionLogRepository appends structured log rows to the session_logs table.
// Writes are best effort; callers log and move on when an append fails.
type SessionLogRepository interface {
	Append(ctx context.Context, sessionID, module, level, message string, opts ...utils.DBOption) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionLogRepository struct {
	db *gorm.DB
}

func NewSessionLogRepository(db *gorm.DB) SessionLogRepository {
	return &sessionLogRepository{db: db}
}

func (s *sessionLogRepository) Append(ctx context.Context, sessionID, module, level, message string, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(s.db, opts...)
	return db.WithContext(ctx).Create(&model.SessionLog{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Module:    module,
		Level:     level,
		Message:   message,
	}).Error
}

func (s *sessionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&model.SessionLog{})
	if db.Error != nil {
		return 0, db.Error
	}
	return db.RowsAffected, nil
}
