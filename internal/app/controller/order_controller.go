package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/ikkim/sneakers-backend/internal/middleware"
	ws "github.com/ikkim/sneakers-backend/internal/websocket"
)

type OrderController struct {
	orderService service.OrderService
	hub          *ws.Hub
	upgrader     websocket.Upgrader
}

func NewOrderController(orderService service.OrderService, hub *ws.Hub, allowedOrigins []string) *OrderController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &OrderController{
		orderService: orderService,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || origins[origin]
			},
		},
	}
}

type BuyerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required"`
	Address   string `json:"address" binding:"required"`
}

func (r BuyerRequest) toBuyer() service.BuyerDetails {
	return service.BuyerDetails{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
	}
}

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type CreateOrderRequest struct {
	BuyerRequest
	Items []OrderItemRequest `json:"items" binding:"dive"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// GetOrders returns the caller's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.GetOwnerOrders(owner)
	if err != nil {
		respondServiceError(c, err, "fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(owner, orderID)
	if err != nil {
		respondServiceError(c, err, "fetch order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreateOrder places an order for explicitly listed items
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := ctrl.orderService.CreateOrder(owner, items, req.toBuyer())
	if err != nil {
		respondServiceError(c, err, "create order")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id":    order.ID,
		"total_price": order.TotalPrice.String(),
	})
	c.JSON(http.StatusCreated, order)
}

// CreateOrderFromCart turns the caller's cart into an order and empties it
// POST /api/v1/orders/from-cart
func (ctrl *OrderController) CreateOrderFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req BuyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.CreateOrderFromCart(owner, req.toBuyer())
	if err != nil {
		respondServiceError(c, err, "create order from cart")
		return
	}

	log.Info("Order placed from cart", map[string]interface{}{
		"order_id":    order.ID,
		"total_price": order.TotalPrice.String(),
		"lines":       len(order.OrderItems),
	})
	c.JSON(http.StatusCreated, order)
}

// CancelOrder
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.CancelOrder(owner, orderID)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is the fulfillment endpoint (admin only)
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}

	adminID, _ := middleware.GetUserID(c)
	log.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"admin_id": adminID,
	})
	c.JSON(http.StatusOK, order)
}

// Events streams status changes of the caller's orders over a websocket
// GET /api/v1/orders/events
func (ctrl *OrderController) Events(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, ws.NewConn(conn), owner)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Order event stream opened", owner.LogFields())
}
