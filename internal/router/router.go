package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/config"
	"github.com/ikkim/sneakers-backend/internal/app/controller"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/middleware"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	favoriteController *controller.FavoriteController
	orderController    *controller.OrderController
	authMiddleware     *middleware.AuthMiddleware
	identityResolver   *middleware.IdentityResolver
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	favoriteController *controller.FavoriteController,
	orderController *controller.OrderController,
	authMiddleware *middleware.AuthMiddleware,
	identityResolver *middleware.IdentityResolver,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		favoriteController: favoriteController,
		orderController:    orderController,
		authMiddleware:     authMiddleware,
		identityResolver:   identityResolver,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins, r.config.Session.HeaderName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Sneakers API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.identityResolver.ExistingSession(), r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetAllProducts)
			products.GET("/:id", r.productController.GetProductByID)

			products.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.productController.CreateProduct,
			)
		}

		// cart, favorites and orders belong to a user or an anonymous session
		cart := v1.Group("/cart")
		cart.Use(r.identityResolver.Resolve())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:product_id", r.cartController.UpdateItem)
			cart.DELETE("/items/:product_id", r.cartController.RemoveItem)
		}

		favorites := v1.Group("/favorites")
		favorites.Use(r.identityResolver.Resolve())
		{
			favorites.GET("", r.favoriteController.GetFavorites)
			favorites.POST("", r.favoriteController.AddFavorite)
			favorites.GET("/check", r.favoriteController.CheckFavorite)
			favorites.DELETE("/:product_id", r.favoriteController.RemoveFavorite)
		}

		orders := v1.Group("/orders")
		{
			orders.PUT("/:id/status",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.UpdateOrderStatus,
			)

			owned := orders.Group("", r.identityResolver.Resolve())
			owned.GET("", r.orderController.GetOrders)
			owned.POST("", r.orderController.CreateOrder)
			owned.POST("/from-cart", r.orderController.CreateOrderFromCart)
			owned.GET("/events", r.orderController.Events)
			owned.GET("/:id", r.orderController.GetOrderByID)
			owned.POST("/:id/cancel", r.orderController.CancelOrder)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string, sessionHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, "+sessionHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, "+sessionHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
