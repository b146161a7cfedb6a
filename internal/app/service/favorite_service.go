package service

import (
	"errors"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
)

type FavoriteService interface {
	List(owner model.CartOwner) ([]model.Favorite, error)
	// Add reports whether a new favorite was created. Adding a product that
	// is already a favorite succeeds without creating anything.
	Add(owner model.CartOwner, productID uint) (bool, error)
	Remove(owner model.CartOwner, productID uint) error
	Check(owner model.CartOwner, productID uint) (bool, error)
}

type favoriteService struct {
	favoriteRepo repository.FavoriteRepository
	productRepo  repository.ProductRepository
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, productRepo repository.ProductRepository) FavoriteService {
	return &favoriteService{
		favoriteRepo: favoriteRepo,
		productRepo:  productRepo,
	}
}

func (s *favoriteService) List(owner model.CartOwner) ([]model.Favorite, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	favorites, err := s.favoriteRepo.FindByOwner(owner)
	if err != nil {
		logger.Error("Failed to fetch favorites", err, owner.LogFields())
		return nil, err
	}
	return favorites, nil
}

func (s *favoriteService) Add(owner model.CartOwner, productID uint) (bool, error) {
	logger.Info("Adding favorite", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
	}))

	if err := owner.Validate(); err != nil {
		return false, err
	}

	if _, err := s.productRepo.FindByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrProductNotFound
		}
		return false, err
	}

	exists, err := s.favoriteRepo.Exists(owner, productID)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Debug("Product already in favorites", ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return false, nil
	}

	favorite := &model.Favorite{UserID: owner.UserID, SessionID: owner.SessionID, ProductID: productID}
	if err := s.favoriteRepo.Create(favorite); err != nil {
		if apperrors.IsDuplicateKey(err) {
			return false, nil
		}
		logger.Error("Failed to add favorite", err, ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return false, err
	}
	return true, nil
}

func (s *favoriteService) Remove(owner model.CartOwner, productID uint) error {
	logger.Info("Removing favorite", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
	}))

	if err := owner.Validate(); err != nil {
		return err
	}
	removed, err := s.favoriteRepo.Delete(owner, productID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFavoriteNotFound
	}
	return nil
}

func (s *favoriteService) Check(owner model.CartOwner, productID uint) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	return s.favoriteRepo.Exists(owner, productID)
}
