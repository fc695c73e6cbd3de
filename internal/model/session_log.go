package model

import "time"

// SessionLog is an append-only structured log row keyed by the run's session id.
type SessionLog struct {
	ID        uint      `gorm:"primarykey"`
	SessionID string    `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null"`
	Module    string    `gorm:"not null"`
	Level     string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
}

func (SessionLog) TableName() string {
	return "session_logs"
}
