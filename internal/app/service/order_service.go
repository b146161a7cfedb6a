package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BuyerDetails is the contact and delivery information copied onto an order.
type BuyerDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
}

func (b BuyerDetails) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"first_name", b.FirstName},
		{"last_name", b.LastName},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address", b.Address},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(f.name, "is required")
		}
	}
	if !strings.Contains(b.Email, "@") {
		return NewValidationError("email", "is not a valid email address")
	}
	return nil
}

type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

// OrderNotifier is told about newly placed orders and status changes.
type OrderNotifier interface {
	NotifyOrder(owner model.CartOwner, order *model.Order)
}

type OrderService interface {
	CreateOrderFromCart(owner model.CartOwner, buyer BuyerDetails) (*model.Order, error)
	CreateOrder(owner model.CartOwner, items []OrderItemInput, buyer BuyerDetails) (*model.Order, error)
	GetOwnerOrders(owner model.CartOwner) ([]model.Order, error)
	GetOrderByID(owner model.CartOwner, orderID uint) (*model.Order, error)
	CancelOrder(owner model.CartOwner, orderID uint) (*model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	notifier    OrderNotifier
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	notifier OrderNotifier,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		notifier:    notifier,
	}
}

// orderLine is a priced line ready to be written as an OrderItem.
type orderLine struct {
	productID uint
	price     decimal.Decimal
	quantity  int
}

func (s *orderService) CreateOrderFromCart(owner model.CartOwner, buyer BuyerDetails) (*model.Order, error) {
	logger.Info("Creating order from cart", owner.LogFields())

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := buyer.Validate(); err != nil {
		logger.Warn("Order rejected: invalid buyer details", ownerFields(owner, map[string]interface{}{
			"error": err.Error(),
		}))
		return nil, err
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r), owner.LogFields())
			panic(r)
		}
	}()

	carts := s.cartRepo.WithTx(tx)
	cart, err := carts.FindByOwner(owner)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot create order: no cart", owner.LogFields())
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	items, err := carts.FindItemsForUpdate(cart.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(items) == 0 {
		tx.Rollback()
		logger.Warn("Cannot create order: cart is empty", owner.LogFields())
		return nil, ErrEmptyCart
	}

	lines := make([]orderLine, 0, len(items))
	consumed := make([]uint, 0, len(items))
	for _, item := range items {
		if item.Product.ID == 0 {
			tx.Rollback()
			logger.Warn("Product vanished from cart during order creation", ownerFields(owner, map[string]interface{}{
				"product_id": item.ProductID,
			}))
			return nil, ErrProductNotFound
		}
		lines = append(lines, orderLine{productID: item.ProductID, price: item.Product.Price, quantity: item.Quantity})
		consumed = append(consumed, item.ID)
	}

	order, err := s.writeOrder(tx, owner, buyer, lines)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := carts.DeleteItemsByID(consumed...); err != nil {
		tx.Rollback()
		logger.Error("Failed to clear cart after order", err, ownerFields(owner, map[string]interface{}{
			"cart_id": cart.ID,
		}))
		return nil, err
	}
	if err := carts.Touch(cart.ID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, owner.LogFields())
		return nil, err
	}

	logger.Info("Order created from cart", ownerFields(owner, map[string]interface{}{
		"order_id":    order.ID,
		"total_price": order.TotalPrice.String(),
		"lines":       len(lines),
	}))
	return s.reloadAndNotify(owner, order.ID)
}

func (s *orderService) CreateOrder(owner model.CartOwner, items []OrderItemInput, buyer BuyerDetails) (*model.Order, error) {
	logger.Info("Creating order from explicit items", ownerFields(owner, map[string]interface{}{
		"items": len(items),
	}))

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := buyer.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	merged, err := mergeOrderInputs(items)
	if err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r), owner.LogFields())
			panic(r)
		}
	}()

	ids := make([]uint, 0, len(merged))
	for _, in := range merged {
		ids = append(ids, in.ProductID)
	}
	products, err := s.productRepo.WithTx(tx).FindByIDs(ids)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	lines := make([]orderLine, 0, len(merged))
	for _, in := range merged {
		product, ok := products[in.ProductID]
		if !ok {
			tx.Rollback()
			logger.Warn("Cannot create order: product not found", ownerFields(owner, map[string]interface{}{
				"product_id": in.ProductID,
			}))
			return nil, ErrProductNotFound
		}
		lines = append(lines, orderLine{productID: product.ID, price: product.Price, quantity: in.Quantity})
	}

	order, err := s.writeOrder(tx, owner, buyer, lines)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, owner.LogFields())
		return nil, err
	}

	logger.Info("Order created", ownerFields(owner, map[string]interface{}{
		"order_id":    order.ID,
		"total_price": order.TotalPrice.String(),
	}))
	return s.reloadAndNotify(owner, order.ID)
}

// mergeOrderInputs sums quantities of repeated products, keeping the order in
// which each product first appears.
func mergeOrderInputs(items []OrderItemInput) ([]OrderItemInput, error) {
	index := make(map[uint]int, len(items))
	merged := make([]OrderItemInput, 0, len(items))
	for _, in := range items {
		if in.Quantity < 1 {
			return nil, NewValidationError("quantity", "must be at least 1")
		}
		if in.ProductID == 0 {
			return nil, NewValidationError("product_id", "is required")
		}
		if i, ok := index[in.ProductID]; ok {
			merged[i].Quantity += in.Quantity
			continue
		}
		index[in.ProductID] = len(merged)
		merged = append(merged, in)
	}
	return merged, nil
}

// writeOrder inserts the order and its lines through tx. The total is computed
// once here from the snapshotted prices.
func (s *orderService) writeOrder(tx *gorm.DB, owner model.CartOwner, buyer BuyerDetails, lines []orderLine) (*model.Order, error) {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}

	order := &model.Order{
		UserID:     owner.UserID,
		SessionID:  owner.SessionID,
		FirstName:  strings.TrimSpace(buyer.FirstName),
		LastName:   strings.TrimSpace(buyer.LastName),
		Email:      strings.TrimSpace(buyer.Email),
		Phone:      strings.TrimSpace(buyer.Phone),
		Address:    strings.TrimSpace(buyer.Address),
		TotalPrice: total,
		Status:     model.OrderStatusPending,
	}

	orders := s.orderRepo.WithTx(tx)
	if err := orders.Create(order); err != nil {
		return nil, err
	}

	orderItems := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		orderItems = append(orderItems, model.OrderItem{
			OrderID:   order.ID,
			ProductID: l.productID,
			Price:     l.price,
			Quantity:  l.quantity,
		})
	}
	if err := orders.CreateItems(orderItems); err != nil {
		return nil, err
	}
	order.OrderItems = orderItems
	return order, nil
}

func (s *orderService) reloadAndNotify(owner model.CartOwner, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		logger.Error("Failed to reload order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyOrder(owner, order)
	}
	return order, nil
}

func (s *orderService) GetOwnerOrders(owner model.CartOwner) ([]model.Order, error) {
	logger.Debug("Fetching owner orders", owner.LogFields())

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.FindByOwner(owner)
	if err != nil {
		logger.Error("Failed to fetch owner orders", err, owner.LogFields())
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(owner model.CartOwner, orderID uint) (*model.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByIDForOwner(orderID, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// CancelOrder is a conditional update: if the order reached a terminal state
// first, the cancel loses and ErrInvalidTransition is returned.
func (s *orderService) CancelOrder(owner model.CartOwner, orderID uint) (*model.Order, error) {
	logger.Info("Canceling order", ownerFields(owner, map[string]interface{}{
		"order_id": orderID,
	}))

	if _, err := s.GetOrderByID(owner, orderID); err != nil {
		return nil, err
	}

	changed, err := s.orderRepo.UpdateStatusUnlessTerminal(orderID, &owner, model.OrderStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.Warn("Cannot cancel order in terminal state", ownerFields(owner, map[string]interface{}{
			"order_id": orderID,
		}))
		return nil, ErrInvalidTransition
	}

	return s.reloadAndNotify(owner, orderID)
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	changed, err := s.orderRepo.UpdateStatusUnlessTerminal(orderID, nil, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.Warn("Cannot change status of order in terminal state", map[string]interface{}{
			"order_id": orderID,
			"current":  order.Status,
			"target":   status,
		})
		return nil, ErrInvalidTransition
	}

	return s.reloadAndNotify(order.Owner(), orderID)
}
