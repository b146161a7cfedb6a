package repository

import (
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	CreateItems(items []model.OrderItem) error
	FindByID(id uint) (*model.Order, error)
	FindByIDForOwner(id uint, owner model.CartOwner) (*model.Order, error)
	FindByOwner(owner model.CartOwner) ([]model.Order, error)
	UpdateStatusUnlessTerminal(id uint, owner *model.CartOwner, status model.OrderStatus) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC").Preload("Product", unscopedProduct)
	})
}

// Create inserts only the order row. Lines are written with CreateItems.
func (r *orderRepository) Create(order *model.Order) error {
	fields := ownerFields(order.Owner(), map[string]interface{}{
		"total_price": order.TotalPrice.String(),
	})
	logger.Debug("Creating order in database", fields)

	if err := r.db.Omit("OrderItems").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, fields)
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
	})
	return nil
}

func (r *orderRepository) CreateItems(items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	logger.Debug("Creating order items in database", map[string]interface{}{
		"order_id": items[0].OrderID,
		"count":    len(items),
	})

	if err := r.db.Omit("Product").Create(&items).Error; err != nil {
		logger.Error("Failed to create order items in database", err, map[string]interface{}{
			"order_id": items[0].OrderID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForOwner(id uint, owner model.CartOwner) (*model.Order, error) {
	logger.Debug("Finding owner order by ID in database", ownerFields(owner, map[string]interface{}{
		"order_id": id,
	}))

	var order model.Order
	if err := r.preloadOrder().Scopes(ownerScope(owner)).First(&order, id).Error; err != nil {
		if !isNotFound(err) {
			logger.Error("Failed to find owner order by ID in database", err, ownerFields(owner, map[string]interface{}{
				"order_id": id,
			}))
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByOwner(owner model.CartOwner) ([]model.Order, error) {
	logger.Debug("Finding orders by owner in database", owner.LogFields())

	var orders []model.Order
	err := r.preloadOrder().
		Scopes(ownerScope(owner)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to find orders by owner in database", err, owner.LogFields())
		return nil, err
	}

	logger.Debug("Orders found by owner in database", ownerFields(owner, map[string]interface{}{
		"count": len(orders),
	}))
	return orders, nil
}

// UpdateStatusUnlessTerminal sets status only while the order is neither
// delivered nor canceled, optionally restricted to one owner. It reports
// whether a row changed.
func (r *orderRepository) UpdateStatusUnlessTerminal(id uint, owner *model.CartOwner, status model.OrderStatus) (bool, error) {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	query := r.db.Model(&model.Order{}).
		Where("id = ?", id).
		Where("status NOT IN ?", model.TerminalOrderStatuses())
	if owner != nil {
		query = query.Scopes(ownerScope(*owner))
	}

	result := query.Updates(map[string]interface{}{"status": status})
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
