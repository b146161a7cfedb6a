package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var orderStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusPaid:      true,
	OrderStatusShipped:   true,
	OrderStatusDelivered: true,
	OrderStatusCanceled:  true,
}

func (s OrderStatus) Valid() bool {
	return orderStatuses[s]
}

// Terminal statuses accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// TerminalOrderStatuses lists the statuses guarded against in conditional updates.
func TerminalOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusDelivered, OrderStatusCanceled}
}

// Order is an immutable copy of what was bought. Only Status changes after creation.
type Order struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	UserID     *uint           `gorm:"index" json:"user_id,omitempty"`
	SessionID  *string         `gorm:"size:64;index" json:"-"`
	FirstName  string          `gorm:"size:50;not null" json:"first_name"`
	LastName   string          `gorm:"size:50;not null" json:"last_name"`
	Email      string          `gorm:"not null" json:"email"`
	Phone      string          `gorm:"size:20;not null" json:"phone"`
	Address    string          `gorm:"size:250;not null" json:"address"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status     OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (o Order) Owner() CartOwner {
	return CartOwner{UserID: o.UserID, SessionID: o.SessionID}
}

type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // unit price when ordered
	Quantity  int             `gorm:"not null" json:"quantity"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
