package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/ikkim/sneakers-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  *int `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the caller's cart, creating it on first use
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.GetCart(owner)
	if err != nil {
		respondServiceError(c, err, "fetch cart")
		return
	}

	c.JSON(http.StatusOK, view)
}

// AddItem adds quantity (default 1) of a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := ctrl.cartService.AddItem(owner, req.ProductID, quantity)
	if err != nil {
		respondServiceError(c, err, "add item to cart")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"product_id":  req.ProductID,
		"quantity":    quantity,
		"items_count": view.ItemsCount,
	})

	c.JSON(http.StatusCreated, view)
}

// UpdateItem sets the absolute quantity of a line; zero or less removes it
// PUT /api/v1/cart/items/:product_id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := ctrl.cartService.UpdateItem(owner, productID, *req.Quantity)
	if err != nil {
		respondServiceError(c, err, "update cart item")
		return
	}

	c.JSON(http.StatusOK, view)
}

// RemoveItem deletes a product's line from the cart
// DELETE /api/v1/cart/items/:product_id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	view, err := ctrl.cartService.RemoveItem(owner, productID)
	if err != nil {
		respondServiceError(c, err, "remove cart item")
		return
	}

	c.JSON(http.StatusOK, view)
}

// ClearCart removes every line
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.Clear(owner)
	if err != nil {
		respondServiceError(c, err, "clear cart")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Cart cleared", owner.LogFields())
	c.JSON(http.StatusOK, view)
}
