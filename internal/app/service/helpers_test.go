package service

import (
	"testing"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/internal/db"
	"github.com/ikkim/sneakers-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testRepos struct {
	db        *gorm.DB
	products  repository.ProductRepository
	carts     repository.CartRepository
	favorites repository.FavoriteRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	sessions  repository.SessionActivityRepository
}

func setupRepos(t *testing.T) *testRepos {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	return &testRepos{
		db:        testDB,
		products:  repository.NewProductRepository(testDB),
		carts:     repository.NewCartRepository(testDB),
		favorites: repository.NewFavoriteRepository(testDB),
		orders:    repository.NewOrderRepository(testDB),
		users:     repository.NewUserRepository(testDB),
		sessions:  repository.NewSessionActivityRepository(testDB),
	}
}

func createProduct(t *testing.T, repos *testRepos, title, price string) *model.Product {
	t.Helper()
	product := &model.Product{
		Title:     title,
		Slug:      util.UniqueSlug(title),
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	require.NoError(t, repos.products.Create(product))
	return product
}

func createUser(t *testing.T, repos *testRepos, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, repos.users.Create(user))
	return user
}

func testBuyer() BuyerDetails {
	return BuyerDetails{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+1 555 0100",
		Address:   "12 Analytical Way",
	}
}

func cartQuantities(view *model.CartView) map[uint]int {
	quantities := make(map[uint]int, len(view.Items))
	for _, line := range view.Items {
		quantities[line.Product.ID] = line.Quantity
	}
	return quantities
}
