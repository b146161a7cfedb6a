package model

import "time"

// SessionActivity records when an anonymous session token was last presented.
type SessionActivity struct {
	Token      string    `gorm:"primaryKey;size:64"`
	LastSeenAt time.Time `gorm:"not null;index"`
}

func (SessionActivity) TableName() string {
	return "session_activity"
}
