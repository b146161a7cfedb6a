package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one owner and is created on first use. Carts and
// their items are hard-deleted so the owner and line unique indexes stay exact.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex;check:chk_carts_owner,(user_id IS NULL) <> (session_id IS NULL)" json:"user_id,omitempty"`
	SessionID *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Cart) TableName() string {
	return "carts"
}

func (c Cart) Owner() CartOwner {
	return CartOwner{UserID: c.UserID, SessionID: c.SessionID}
}

type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal uses the product's current price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartLine is one row of a CartView.
type CartLine struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

// CartView is the computed representation returned by every cart operation.
type CartView struct {
	ID         uint            `json:"id"`
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemsCount int             `json:"items_count"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewCartView computes totals from items in the order given.
func NewCartView(cart *Cart, items []CartItem) *CartView {
	view := &CartView{
		ID:         cart.ID,
		Items:      make([]CartLine, 0, len(items)),
		TotalPrice: decimal.Zero,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, item := range items {
		line := CartLine{
			Product:   item.Product,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			AddedAt:   item.AddedAt,
		}
		view.Items = append(view.Items, line)
		view.TotalPrice = view.TotalPrice.Add(line.LineTotal)
		view.ItemsCount += item.Quantity
	}
	return view
}
