package repository

import (
	"testing"
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_CreateAndFind(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewProductRepository(testDB)

	product := &model.Product{
		Title:     "Air Max 90",
		Slug:      "air-max-90",
		Price:     decimal.RequireFromString("129.99"),
		Available: true,
	}
	require.NoError(t, repo.Create(product))
	assert.NotZero(t, product.ID)

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Air Max 90", found.Title)
	assert.True(t, product.Price.Equal(found.Price))

	bySlug, err := repo.FindBySlug("air-max-90")
	require.NoError(t, err)
	assert.Equal(t, product.ID, bySlug.ID)

	_, err = repo.FindByID(9999)
	assert.True(t, isNotFound(err))
}

func TestProductRepository_DuplicateSlug(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewProductRepository(testDB)

	require.NoError(t, repo.Create(&model.Product{Title: "A", Slug: "same", Price: decimal.NewFromInt(1)}))
	err := repo.Create(&model.Product{Title: "B", Slug: "same", Price: decimal.NewFromInt(2)})
	assert.Error(t, err)
}

func TestProductRepository_FindAllNewestFirst(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewProductRepository(testDB)

	old := &model.Product{Title: "Old", Slug: "old", Price: decimal.NewFromInt(10), Available: true, CreatedAt: time.Now().Add(-time.Hour)}
	hidden := &model.Product{Title: "Hidden", Slug: "hidden", Price: decimal.NewFromInt(10), Available: false}
	fresh := &model.Product{Title: "Fresh", Slug: "fresh", Price: decimal.NewFromInt(10), Available: true}
	require.NoError(t, repo.BulkCreate([]model.Product{*old, *hidden, *fresh}))

	all, err := repo.FindAll(ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Old", all[2].Title)

	available, err := repo.FindAll(ProductFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)
	for _, p := range available {
		assert.True(t, p.Available)
	}

	limited, err := repo.FindAll(ProductFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestProductRepository_FindByIDs(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewProductRepository(testDB)

	a := createTestProduct(t, testDB, "a", "1.00")
	b := createTestProduct(t, testDB, "bb", "2.00")

	found, err := repo.FindByIDs([]uint{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Contains(t, found, a.ID)
	assert.NotContains(t, found, uint(999))

	empty, err := repo.FindByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewProductRepository(testDB)

	p := createTestProduct(t, testDB, "runner", "50.00")
	p.Price = decimal.RequireFromString("55.00")
	require.NoError(t, repo.Update(p))

	found, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("55.00").Equal(found.Price))

	require.NoError(t, repo.Delete(p.ID))
	_, err = repo.FindByID(p.ID)
	assert.True(t, isNotFound(err))
}
