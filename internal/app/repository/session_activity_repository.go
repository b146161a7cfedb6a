package repository

import (
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionActivityRepository tracks when anonymous sessions were last seen.
// It satisfies session.Tracker.
type SessionActivityRepository interface {
	Touch(token string, at time.Time) error
	Forget(token string) error
	LastSeen(token string) (time.Time, error)
	DeleteSeenBefore(before time.Time) (int64, error)
}

type sessionActivityRepository struct {
	db *gorm.DB
}

func NewSessionActivityRepository(db *gorm.DB) SessionActivityRepository {
	return &sessionActivityRepository{db: db}
}

// Touch upserts the last-seen time of token.
func (r *sessionActivityRepository) Touch(token string, at time.Time) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
	}).Create(&model.SessionActivity{Token: token, LastSeenAt: at}).Error
	if err != nil {
		logger.Error("Failed to record session activity", err)
	}
	return err
}

func (r *sessionActivityRepository) Forget(token string) error {
	err := r.db.Where("token = ?", token).Delete(&model.SessionActivity{}).Error
	if err != nil {
		logger.Error("Failed to forget session activity", err)
	}
	return err
}

func (r *sessionActivityRepository) LastSeen(token string) (time.Time, error) {
	var activity model.SessionActivity
	if err := r.db.Where("token = ?", token).First(&activity).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to read session activity", err)
		}
		return time.Time{}, err
	}
	return activity.LastSeenAt, nil
}

func (r *sessionActivityRepository) DeleteSeenBefore(before time.Time) (int64, error) {
	result := r.db.Where("last_seen_at < ?", before).Delete(&model.SessionActivity{})
	if result.Error != nil {
		logger.Error("Failed to delete expired session activity", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// recentlySeenSessions selects tokens presented at or after since.
func recentlySeenSessions(db *gorm.DB, since time.Time) *gorm.DB {
	return db.Model(&model.SessionActivity{}).
		Select("token").
		Where("last_seen_at >= ?", since)
}
