package model

import "time"

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex:idx_favorites_user_product;check:chk_favorites_owner,(user_id IS NULL) <> (session_id IS NULL)" json:"user_id,omitempty"`
	SessionID *string   `gorm:"size:64;uniqueIndex:idx_favorites_session_product" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_favorites_user_product;uniqueIndex:idx_favorites_session_product" json:"product_id"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (Favorite) TableName() string {
	return "favorites"
}
