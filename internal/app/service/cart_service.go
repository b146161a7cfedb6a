package service

import (
	"errors"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
)

// CartService operates on the single cart of one owner. Every mutation returns
// the recomputed cart.
type CartService interface {
	GetOrCreateCart(owner model.CartOwner) (*model.Cart, error)
	GetCart(owner model.CartOwner) (*model.CartView, error)
	AddItem(owner model.CartOwner, productID uint, quantity int) (*model.CartView, error)
	UpdateItem(owner model.CartOwner, productID uint, quantity int) (*model.CartView, error)
	RemoveItem(owner model.CartOwner, productID uint) (*model.CartView, error)
	Clear(owner model.CartOwner) (*model.CartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// getOrCreateCart finds the owner's cart or creates it. Losing a creation race
// shows up as a unique violation, after which the winner's cart is re-read.
func getOrCreateCart(repo repository.CartRepository, owner model.CartOwner) (*model.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := repo.FindByOwner(owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &model.Cart{UserID: owner.UserID, SessionID: owner.SessionID}
	if err := repo.Create(cart); err != nil {
		if !apperrors.IsDuplicateKey(err) {
			return nil, err
		}
		logger.Debug("Cart created concurrently, re-reading", owner.LogFields())
		return repo.FindByOwner(owner)
	}

	logger.Info("Cart created", ownerFields(owner, map[string]interface{}{
		"cart_id": cart.ID,
	}))
	return cart, nil
}

func (s *cartService) GetOrCreateCart(owner model.CartOwner) (*model.Cart, error) {
	cart, err := getOrCreateCart(s.cartRepo, owner)
	if err != nil {
		logger.Error("Failed to get or create cart", err, owner.LogFields())
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(owner model.CartOwner) (*model.CartView, error) {
	logger.Debug("Fetching cart", owner.LogFields())

	cart, err := s.GetOrCreateCart(owner)
	if err != nil {
		return nil, err
	}
	return s.view(cart)
}

func (s *cartService) AddItem(owner model.CartOwner, productID uint, quantity int) (*model.CartView, error) {
	logger.Info("Adding item to cart", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	}))

	if quantity < 1 {
		return nil, NewValidationError("quantity", "must be at least 1")
	}

	if _, err := s.productRepo.FindByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", ownerFields(owner, map[string]interface{}{
				"product_id": productID,
			}))
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	cart, err := s.GetOrCreateCart(owner)
	if err != nil {
		return nil, err
	}

	if err := s.accumulate(cart.ID, productID, quantity); err != nil {
		logger.Error("Failed to add item to cart", err, ownerFields(owner, map[string]interface{}{
			"cart_id":    cart.ID,
			"product_id": productID,
		}))
		return nil, err
	}

	return s.touchAndView(cart)
}

// accumulate adds quantity to the product's line, inserting the line when it
// does not exist yet. A concurrent insert of the same line turns into an
// increment, so N adds of 1 always sum to N.
func (s *cartService) accumulate(cartID, productID uint, quantity int) error {
	incremented, err := s.cartRepo.IncrementItem(cartID, productID, quantity)
	if err != nil || incremented {
		return err
	}

	err = s.cartRepo.CreateItem(&model.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity})
	if err == nil {
		return nil
	}
	if !apperrors.IsDuplicateKey(err) {
		return err
	}

	incremented, err = s.cartRepo.IncrementItem(cartID, productID, quantity)
	if err != nil {
		return err
	}
	if !incremented {
		// the conflicting line disappeared again; surface as a store failure
		return errors.New("cart line changed concurrently")
	}
	return nil
}

func (s *cartService) UpdateItem(owner model.CartOwner, productID uint, quantity int) (*model.CartView, error) {
	logger.Info("Updating cart item", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	}))

	if quantity <= 0 {
		return s.RemoveItem(owner, productID)
	}

	cart, err := s.GetOrCreateCart(owner)
	if err != nil {
		return nil, err
	}

	updated, err := s.cartRepo.SetItemQuantity(cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if !updated {
		logger.Warn("Cart item not found", ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return nil, ErrCartItemNotFound
	}

	return s.touchAndView(cart)
}

func (s *cartService) RemoveItem(owner model.CartOwner, productID uint) (*model.CartView, error) {
	logger.Info("Removing item from cart", ownerFields(owner, map[string]interface{}{
		"product_id": productID,
	}))

	cart, err := s.GetOrCreateCart(owner)
	if err != nil {
		return nil, err
	}

	removed, err := s.cartRepo.DeleteItem(cart.ID, productID)
	if err != nil {
		return nil, err
	}
	if !removed {
		logger.Warn("Cart item not found", ownerFields(owner, map[string]interface{}{
			"product_id": productID,
		}))
		return nil, ErrCartItemNotFound
	}

	return s.touchAndView(cart)
}

func (s *cartService) Clear(owner model.CartOwner) (*model.CartView, error) {
	logger.Info("Clearing cart", owner.LogFields())

	cart, err := s.GetOrCreateCart(owner)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItems(cart.ID); err != nil {
		return nil, err
	}
	return s.touchAndView(cart)
}

func (s *cartService) touchAndView(cart *model.Cart) (*model.CartView, error) {
	if err := s.cartRepo.Touch(cart.ID); err != nil {
		return nil, err
	}
	fresh, err := s.cartRepo.FindByOwner(cart.Owner())
	if err != nil {
		return nil, err
	}
	return s.view(fresh)
}

func (s *cartService) view(cart *model.Cart) (*model.CartView, error) {
	items, err := s.cartRepo.FindItems(cart.ID)
	if err != nil {
		logger.Error("Failed to load cart items", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, err
	}
	return model.NewCartView(cart, items), nil
}

func ownerFields(owner model.CartOwner, extra map[string]interface{}) map[string]interface{} {
	fields := owner.LogFields()
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
