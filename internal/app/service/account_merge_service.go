package service

import (
	"errors"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
)

// MergeResult counts what happened to the session's cart lines and favorites.
type MergeResult struct {
	LinesMoved       int `json:"lines_moved"`
	LinesMerged      int `json:"lines_merged"`
	FavoritesMoved   int `json:"favorites_moved"`
	FavoritesDropped int `json:"favorites_dropped"`
}

func (r MergeResult) Empty() bool {
	return r.LinesMoved+r.LinesMerged+r.FavoritesMoved+r.FavoritesDropped == 0
}

// AccountMergeService hands an anonymous session's cart and favorites over to
// a user account.
type AccountMergeService interface {
	MergeSessionIntoUser(tx *gorm.DB, sessionID string, userID uint) (*MergeResult, error)
}

type accountMergeService struct {
	cartRepo     repository.CartRepository
	favoriteRepo repository.FavoriteRepository
}

func NewAccountMergeService(cartRepo repository.CartRepository, favoriteRepo repository.FavoriteRepository) AccountMergeService {
	return &accountMergeService{
		cartRepo:     cartRepo,
		favoriteRepo: favoriteRepo,
	}
}

// MergeSessionIntoUser must run inside the caller's transaction. Lines for a
// product the user already has are summed into the user's line, other lines
// are moved to the user's cart, and the session cart is deleted. Session
// favorites move to the user unless the user already has that product, in
// which case they are dropped. A session with nothing left merges as a no-op.
func (s *accountMergeService) MergeSessionIntoUser(tx *gorm.DB, sessionID string, userID uint) (*MergeResult, error) {
	sessionOwner := model.SessionOwner(sessionID)
	userOwner := model.UserOwner(userID)
	if err := sessionOwner.Validate(); err != nil {
		return nil, err
	}
	if err := userOwner.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Merging session into user", ownerFields(sessionOwner, map[string]interface{}{
		"user_id": userID,
	}))

	result := &MergeResult{}
	if err := s.mergeCart(tx, sessionOwner, userOwner, result); err != nil {
		logger.Error("Failed to merge session cart", err, ownerFields(sessionOwner, map[string]interface{}{
			"user_id": userID,
		}))
		return nil, err
	}
	if err := s.mergeFavorites(tx, sessionOwner, userOwner, result); err != nil {
		logger.Error("Failed to merge session favorites", err, ownerFields(sessionOwner, map[string]interface{}{
			"user_id": userID,
		}))
		return nil, err
	}

	logger.Info("Session merged into user", map[string]interface{}{
		"user_id":           userID,
		"lines_moved":       result.LinesMoved,
		"lines_merged":      result.LinesMerged,
		"favorites_moved":   result.FavoritesMoved,
		"favorites_dropped": result.FavoritesDropped,
	})
	return result, nil
}

func (s *accountMergeService) mergeCart(tx *gorm.DB, sessionOwner, userOwner model.CartOwner, result *MergeResult) error {
	carts := s.cartRepo.WithTx(tx)

	sessionCart, err := carts.FindByOwner(sessionOwner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	items, err := carts.FindItemsForUpdate(sessionCart.ID)
	if err != nil {
		return err
	}

	if len(items) > 0 {
		userCart, err := getOrCreateCart(carts, userOwner)
		if err != nil {
			return err
		}

		for _, item := range items {
			summed, err := carts.IncrementItem(userCart.ID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if summed {
				if err := carts.DeleteItemsByID(item.ID); err != nil {
					return err
				}
				result.LinesMerged++
				continue
			}
			if err := carts.MoveItem(item.ID, userCart.ID); err != nil {
				return err
			}
			result.LinesMoved++
		}

		if err := carts.Touch(userCart.ID); err != nil {
			return err
		}
	}

	return carts.Delete(sessionCart.ID)
}

func (s *accountMergeService) mergeFavorites(tx *gorm.DB, sessionOwner, userOwner model.CartOwner, result *MergeResult) error {
	favorites := s.favoriteRepo.WithTx(tx)

	sessionFavorites, err := favorites.FindByOwner(sessionOwner)
	if err != nil {
		return err
	}

	for _, fav := range sessionFavorites {
		exists, err := favorites.Exists(userOwner, fav.ProductID)
		if err != nil {
			return err
		}
		if exists {
			if err := favorites.DeleteByID(fav.ID); err != nil {
				return err
			}
			result.FavoritesDropped++
			continue
		}
		if err := favorites.AssignToUser(fav.ID, *userOwner.UserID); err != nil {
			return err
		}
		result.FavoritesMoved++
	}
	return nil
}
