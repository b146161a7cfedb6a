package repository

import (
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
)

type FavoriteRepository interface {
	WithTx(tx *gorm.DB) FavoriteRepository
	Create(favorite *model.Favorite) error
	FindByOwner(owner model.CartOwner) ([]model.Favorite, error)
	Exists(owner model.CartOwner, productID uint) (bool, error)
	Delete(owner model.CartOwner, productID uint) (bool, error)
	DeleteByID(id uint) error
	AssignToUser(id, userID uint) error
	DeleteStaleSessionFavorites(before time.Time) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) WithTx(tx *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: tx}
}

// Create runs in a nested transaction so a duplicate does not abort an
// enclosing transaction.
func (r *favoriteRepository) Create(favorite *model.Favorite) error {
	owner := model.CartOwner{UserID: favorite.UserID, SessionID: favorite.SessionID}
	logger.Debug("Creating favorite in database", ownerFields(owner, map[string]interface{}{
		"product_id": favorite.ProductID,
	}))

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Product").Create(favorite).Error
	})
	if err != nil {
		logger.Warn("Failed to create favorite in database", ownerFields(owner, map[string]interface{}{
			"product_id": favorite.ProductID,
			"error":      err.Error(),
		}))
		return err
	}
	return nil
}

func (r *favoriteRepository) FindByOwner(owner model.CartOwner) ([]model.Favorite, error) {
	logger.Debug("Finding favorites by owner in database", owner.LogFields())

	var favorites []model.Favorite
	err := r.db.Scopes(ownerScope(owner)).
		Preload("Product", unscopedProduct).
		Order("added_at DESC").
		Order("id DESC").
		Find(&favorites).Error
	if err != nil {
		logger.Error("Failed to find favorites by owner in database", err, owner.LogFields())
		return nil, err
	}

	logger.Debug("Favorites found by owner in database", ownerFields(owner, map[string]interface{}{
		"count": len(favorites),
	}))
	return favorites, nil
}

func (r *favoriteRepository) Exists(owner model.CartOwner, productID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Favorite{}).
		Scopes(ownerScope(owner)).
		Where("product_id = ?", productID).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to check favorite existence", err, ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return false, err
	}
	return count > 0, nil
}

func (r *favoriteRepository) Delete(owner model.CartOwner, productID uint) (bool, error) {
	logger.Debug("Deleting favorite from database", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
	}))

	result := r.db.Scopes(ownerScope(owner)).
		Where("product_id = ?", productID).
		Delete(&model.Favorite{})
	if result.Error != nil {
		logger.Error("Failed to delete favorite from database", result.Error, ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *favoriteRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Favorite{}, id).Error; err != nil {
		logger.Error("Failed to delete favorite by ID", err, map[string]interface{}{
			"favorite_id": id,
		})
		return err
	}
	return nil
}

// AssignToUser moves a session favorite to a user account.
func (r *favoriteRepository) AssignToUser(id, userID uint) error {
	err := r.db.Model(&model.Favorite{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"user_id":    userID,
			"session_id": gorm.Expr("NULL"),
		}).Error
	if err != nil {
		logger.Error("Failed to assign favorite to user", err, map[string]interface{}{
			"favorite_id": id,
			"user_id":     userID,
		})
	}
	return err
}

// DeleteStaleSessionFavorites removes session favorites added before the
// cutoff whose session has neither been seen nor had cart activity since then.
func (r *favoriteRepository) DeleteStaleSessionFavorites(before time.Time) (int64, error) {
	active := r.db.Model(&model.Cart{}).
		Select("session_id").
		Where("session_id IS NOT NULL AND updated_at >= ?", before)

	result := r.db.Where("session_id IS NOT NULL AND added_at < ?", before).
		Where("session_id NOT IN (?)", active).
		Where("session_id NOT IN (?)", recentlySeenSessions(r.db, before)).
		Delete(&model.Favorite{})
	if result.Error != nil {
		logger.Error("Failed to delete stale session favorites", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
