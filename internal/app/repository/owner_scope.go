package repository

import (
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"gorm.io/gorm"
)

// ownerScope restricts a query on a table with user_id/session_id columns to
// one owner. An invalid owner matches nothing.
func ownerScope(owner model.CartOwner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case owner.UserID != nil:
			return db.Where("user_id = ?", *owner.UserID)
		case owner.SessionID != nil:
			return db.Where("session_id = ?", *owner.SessionID)
		default:
			return db.Where("1 = 0")
		}
	}
}

func ownerFields(owner model.CartOwner, extra map[string]interface{}) map[string]interface{} {
	fields := owner.LogFields()
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// unscopedProduct lets lines keep showing products that were soft-deleted
// after being added.
func unscopedProduct(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
