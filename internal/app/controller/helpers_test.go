package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/config"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/ikkim/sneakers-backend/internal/db"
	"github.com/ikkim/sneakers-backend/internal/middleware"
	"github.com/ikkim/sneakers-backend/internal/session"
	ws "github.com/ikkim/sneakers-backend/internal/websocket"
	"github.com/ikkim/sneakers-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	hub    *ws.Hub
}

// setupControllerTest wires every controller behind the real middleware the
// way the router does, on an in-memory database.
func setupControllerTest(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	favoriteRepo := repository.NewFavoriteRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)

	sessions := session.NewStatelessStore()
	mergeService := service.NewAccountMergeService(cartRepo, favoriteRepo)
	authService := service.NewAuthService(testDB, userRepo, mergeService, sessions, testJWTSecret, 15*time.Minute, time.Hour)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	resolver := middleware.NewIdentityResolver(authMiddleware, sessions, config.SessionConfig{
		CookieName: "session_id",
		HeaderName: "X-Session-ID",
		TTL:        time.Hour,
	})

	authCtrl := NewAuthController(authService, resolver)
	productCtrl := NewProductController(service.NewProductService(productRepo))
	cartCtrl := NewCartController(service.NewCartService(cartRepo, productRepo))
	favoriteCtrl := NewFavoriteController(service.NewFavoriteService(favoriteRepo, productRepo))
	orderCtrl := NewOrderController(service.NewOrderService(testDB, orderRepo, cartRepo, productRepo, hub), hub, nil)

	router := gin.New()
	router.POST("/auth/register", resolver.ExistingSession(), authCtrl.Register)
	router.POST("/auth/login", authCtrl.Login)
	router.GET("/auth/me", authMiddleware.Authenticate(), authCtrl.GetMe)
	router.PUT("/auth/me", authMiddleware.Authenticate(), authCtrl.UpdateMe)

	router.GET("/products", productCtrl.GetAllProducts)
	router.GET("/products/:id", productCtrl.GetProductByID)
	router.POST("/products", authMiddleware.Authenticate(), authMiddleware.RequireRole(model.RoleAdmin), productCtrl.CreateProduct)

	owned := router.Group("/", resolver.Resolve())
	owned.GET("/cart", cartCtrl.GetCart)
	owned.DELETE("/cart", cartCtrl.ClearCart)
	owned.POST("/cart/items", cartCtrl.AddItem)
	owned.PUT("/cart/items/:product_id", cartCtrl.UpdateItem)
	owned.DELETE("/cart/items/:product_id", cartCtrl.RemoveItem)

	owned.GET("/favorites", favoriteCtrl.GetFavorites)
	owned.POST("/favorites", favoriteCtrl.AddFavorite)
	owned.GET("/favorites/check", favoriteCtrl.CheckFavorite)
	owned.DELETE("/favorites/:product_id", favoriteCtrl.RemoveFavorite)

	owned.GET("/orders", orderCtrl.GetOrders)
	owned.POST("/orders", orderCtrl.CreateOrder)
	owned.POST("/orders/from-cart", orderCtrl.CreateOrderFromCart)
	owned.GET("/orders/events", orderCtrl.Events)
	owned.GET("/orders/:id", orderCtrl.GetOrderByID)
	owned.POST("/orders/:id/cancel", orderCtrl.CancelOrder)
	router.PUT("/orders/:id/status", authMiddleware.Authenticate(), authMiddleware.RequireRole(model.RoleAdmin), orderCtrl.UpdateOrderStatus)

	return &testEnv{db: testDB, router: router, hub: hub}
}

// do sends a JSON request; headers are name/value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createProduct(t *testing.T, title, price string) *model.Product {
	t.Helper()
	product := &model.Product{
		Title:     title,
		Slug:      util.UniqueSlug(title),
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) createUser(t *testing.T, username string, role model.UserRole) (*model.User, string) {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, e.db.Create(user).Error)
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return user, "Bearer " + tokens.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func newSessionID() string {
	return session.NewToken()
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
