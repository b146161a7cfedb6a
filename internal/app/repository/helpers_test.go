package repository

import (
	"fmt"
	"testing"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestProduct(t *testing.T, testDB *gorm.DB, title, price string) *model.Product {
	t.Helper()
	product := &model.Product{
		Title:     title,
		Slug:      fmt.Sprintf("%s-%d", title, len(title)),
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func createTestUser(t *testing.T, testDB *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}
