package repository

import (
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores carts and their lines. Item operations are keyed by
// (cart_id, product_id), which is unique per cart.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByOwner(owner model.CartOwner) (*model.Cart, error)
	Create(cart *model.Cart) error
	Touch(cartID uint) error
	Delete(cartID uint) error

	FindItems(cartID uint) ([]model.CartItem, error)
	FindItemsForUpdate(cartID uint) ([]model.CartItem, error)
	FindItem(cartID, productID uint) (*model.CartItem, error)
	CreateItem(item *model.CartItem) error
	IncrementItem(cartID, productID uint, delta int) (bool, error)
	SetItemQuantity(cartID, productID uint, quantity int) (bool, error)
	DeleteItem(cartID, productID uint) (bool, error)
	DeleteItemsByID(itemIDs ...uint) error
	DeleteItems(cartID uint) error
	MoveItem(itemID, toCartID uint) error

	DeleteIdleSessionCarts(before time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) FindByOwner(owner model.CartOwner) (*model.Cart, error) {
	logger.Debug("Finding cart by owner in database", owner.LogFields())

	var cart model.Cart
	if err := r.db.Scopes(ownerScope(owner)).First(&cart).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find cart by owner in database", err, owner.LogFields())
		}
		return nil, err
	}
	return &cart, nil
}

// Create inserts the cart inside a nested transaction so a unique violation
// only rolls back to the savepoint when called within an outer transaction.
func (r *cartRepository) Create(cart *model.Cart) error {
	fields := cart.Owner().LogFields()
	logger.Debug("Creating cart in database", fields)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Items").Create(cart).Error
	})
	if err != nil {
		logger.Warn("Failed to create cart in database", ownerFields(cart.Owner(), map[string]interface{}{
			"error": err.Error(),
		}))
		return err
	}

	logger.Debug("Cart created in database", ownerFields(cart.Owner(), map[string]interface{}{
		"cart_id": cart.ID,
	}))
	return nil
}

func (r *cartRepository) Touch(cartID uint) error {
	err := r.db.Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error
	if err != nil {
		logger.Error("Failed to touch cart", err, map[string]interface{}{
			"cart_id": cartID,
		})
	}
	return err
}

func (r *cartRepository) Delete(cartID uint) error {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	if err := r.db.Delete(&model.Cart{}, cartID).Error; err != nil {
		logger.Error("Failed to delete cart from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) FindItems(cartID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items in database", map[string]interface{}{
		"cart_id": cartID,
	})

	var items []model.CartItem
	err := r.db.Where("cart_id = ?", cartID).
		Preload("Product", unscopedProduct).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}

	logger.Debug("Cart items found in database", map[string]interface{}{
		"cart_id": cartID,
		"count":   len(items),
	})
	return items, nil
}

// FindItemsForUpdate is FindItems with row locks on the lines. Use it inside
// a transaction that is about to consume the cart.
func (r *cartRepository) FindItemsForUpdate(cartID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Preload("Product", unscopedProduct).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to lock cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) FindItem(cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
	if err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find cart item in database", err, map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
			})
		}
		return nil, err
	}
	return &item, nil
}

// CreateItem runs in a nested transaction for the same reason as Create.
func (r *cartRepository) CreateItem(item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Product").Create(item).Error
	})
	if err != nil {
		logger.Warn("Failed to create cart item in database", map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
			"error":      err.Error(),
		})
		return err
	}

	logger.Debug("Cart item created in database", map[string]interface{}{
		"cart_item_id": item.ID,
	})
	return nil
}

// IncrementItem adds delta to an existing line in a single statement and
// reports whether the line existed.
func (r *cartRepository) IncrementItem(cartID, productID uint, delta int) (bool, error) {
	logger.Debug("Incrementing cart item quantity in database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"delta":      delta,
	})

	result := r.db.Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		logger.Error("Failed to increment cart item quantity", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *cartRepository) SetItemQuantity(cartID, productID uint, quantity int) (bool, error) {
	logger.Debug("Setting cart item quantity in database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	result := r.db.Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		UpdateColumn("quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to set cart item quantity", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *cartRepository) DeleteItem(cartID, productID uint) (bool, error) {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
	})

	result := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *cartRepository) DeleteItemsByID(itemIDs ...uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := r.db.Where("id IN ?", itemIDs).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items by ID", err, map[string]interface{}{
			"count": len(itemIDs),
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItems(cartID uint) error {
	logger.Debug("Deleting all cart items from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

// MoveItem reparents a line to another cart.
func (r *cartRepository) MoveItem(itemID, toCartID uint) error {
	err := r.db.Model(&model.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("cart_id", toCartID).Error
	if err != nil {
		logger.Error("Failed to move cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
			"to_cart_id":   toCartID,
		})
	}
	return err
}

// DeleteIdleSessionCarts removes anonymous carts, with their lines, that have
// not been touched since before and whose session was not seen since then.
func (r *cartRepository) DeleteIdleSessionCarts(before time.Time) (int64, error) {
	logger.Debug("Deleting idle session carts", map[string]interface{}{
		"before": before,
	})

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		idle := func(db *gorm.DB) *gorm.DB {
			return db.Where("session_id IS NOT NULL AND updated_at < ?", before).
				Where("session_id NOT IN (?)", recentlySeenSessions(tx, before))
		}
		ids := tx.Model(&model.Cart{}).Select("id").Scopes(idle)
		if err := tx.Where("cart_id IN (?)", ids).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Scopes(idle).Delete(&model.Cart{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to delete idle session carts", err)
		return 0, err
	}
	return deleted, nil
}
