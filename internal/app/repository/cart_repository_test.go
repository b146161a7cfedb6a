package repository

import (
	"testing"
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	internalerrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.Product) {
	testDB := setupTestDB(t)
	product := createTestProduct(t, testDB, "jordan", "100.00")
	return testDB, NewCartRepository(testDB), product
}

func TestCartRepository_CreateAndFindByOwner(t *testing.T) {
	testDB, repo, _ := setupCartTest(t)
	user := createTestUser(t, testDB, "owner")

	userCart := &model.Cart{UserID: &user.ID}
	require.NoError(t, repo.Create(userCart))

	token := "session-a"
	sessionCart := &model.Cart{SessionID: &token}
	require.NoError(t, repo.Create(sessionCart))

	found, err := repo.FindByOwner(model.UserOwner(user.ID))
	require.NoError(t, err)
	assert.Equal(t, userCart.ID, found.ID)

	found, err = repo.FindByOwner(model.SessionOwner(token))
	require.NoError(t, err)
	assert.Equal(t, sessionCart.ID, found.ID)

	_, err = repo.FindByOwner(model.SessionOwner("other"))
	assert.True(t, isNotFound(err))

	_, err = repo.FindByOwner(model.CartOwner{})
	assert.True(t, isNotFound(err))
}

func TestCartRepository_OneCartPerOwner(t *testing.T) {
	_, repo, _ := setupCartTest(t)

	token := "dup-session"
	require.NoError(t, repo.Create(&model.Cart{SessionID: &token}))

	err := repo.Create(&model.Cart{SessionID: &token})
	require.Error(t, err)
	assert.True(t, internalerrors.IsDuplicateKey(err))
}

func TestCartRepository_CreateConflictInsideTransactionKeepsOuterUsable(t *testing.T) {
	testDB, repo, _ := setupCartTest(t)

	token := "tx-session"
	require.NoError(t, repo.Create(&model.Cart{SessionID: &token}))

	err := testDB.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		createErr := txRepo.Create(&model.Cart{SessionID: &token})
		assert.True(t, internalerrors.IsDuplicateKey(createErr))

		cart, err := txRepo.FindByOwner(model.SessionOwner(token))
		if err != nil {
			return err
		}
		other := "tx-other"
		assert.NotZero(t, cart.ID)
		return txRepo.Create(&model.Cart{SessionID: &other})
	})
	require.NoError(t, err)

	_, err = repo.FindByOwner(model.SessionOwner("tx-other"))
	assert.NoError(t, err)
}

func TestCartRepository_ItemLifecycle(t *testing.T) {
	testDB, repo, product := setupCartTest(t)
	second := createTestProduct(t, testDB, "dunk", "80.00")

	token := "items"
	cart := &model.Cart{SessionID: &token}
	require.NoError(t, repo.Create(cart))

	require.NoError(t, repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1}))
	require.NoError(t, repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: second.ID, Quantity: 2}))

	err := repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1})
	assert.True(t, internalerrors.IsDuplicateKey(err), "one line per product")

	ok, err := repo.IncrementItem(cart.ID, product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := repo.FindItem(cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	ok, err = repo.IncrementItem(cart.ID, 999, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SetItemQuantity(cart.ID, second.ID, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	items, err := repo.FindItems(cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, product.ID, items[0].ProductID, "insertion order")
	assert.Equal(t, "jordan", items[0].Product.Title)
	assert.Equal(t, 7, items[1].Quantity)

	ok, err = repo.DeleteItem(cart.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteItem(cart.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.DeleteItems(cart.ID))
	items, err = repo.FindItems(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_MoveItemAndDelete(t *testing.T) {
	testDB, repo, product := setupCartTest(t)
	user := createTestUser(t, testDB, "mover")

	token := "from"
	from := &model.Cart{SessionID: &token}
	to := &model.Cart{UserID: &user.ID}
	require.NoError(t, repo.Create(from))
	require.NoError(t, repo.Create(to))

	item := &model.CartItem{CartID: from.ID, ProductID: product.ID, Quantity: 2}
	require.NoError(t, repo.CreateItem(item))
	require.NoError(t, repo.MoveItem(item.ID, to.ID))

	moved, err := repo.FindItem(to.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Quantity)

	require.NoError(t, repo.Delete(from.ID))
	_, err = repo.FindByOwner(model.SessionOwner(token))
	assert.True(t, isNotFound(err))
}

func TestCartRepository_TouchUpdatesTimestamp(t *testing.T) {
	testDB, repo, _ := setupCartTest(t)

	token := "touch"
	cart := &model.Cart{SessionID: &token}
	require.NoError(t, repo.Create(cart))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, testDB.Model(&model.Cart{}).Where("id = ?", cart.ID).UpdateColumn("updated_at", past).Error)

	require.NoError(t, repo.Touch(cart.ID))

	found, err := repo.FindByOwner(model.SessionOwner(token))
	require.NoError(t, err)
	assert.True(t, found.UpdatedAt.After(past.Add(30*time.Minute)))
}

func TestCartRepository_DeleteIdleSessionCarts(t *testing.T) {
	testDB, repo, product := setupCartTest(t)
	user := createTestUser(t, testDB, "keeper")

	idleToken, activeToken := "idle", "active"
	idle := &model.Cart{SessionID: &idleToken}
	active := &model.Cart{SessionID: &activeToken}
	userCart := &model.Cart{UserID: &user.ID}
	for _, c := range []*model.Cart{idle, active, userCart} {
		require.NoError(t, repo.Create(c))
		require.NoError(t, repo.CreateItem(&model.CartItem{CartID: c.ID, ProductID: product.ID, Quantity: 1}))
	}

	old := time.Now().Add(-48 * time.Hour)
	testDB.Model(&model.Cart{}).Where("id IN ?", []uint{idle.ID, userCart.ID}).UpdateColumn("updated_at", old)

	deleted, err := repo.DeleteIdleSessionCarts(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByOwner(model.SessionOwner(idleToken))
	assert.True(t, isNotFound(err))
	_, err = repo.FindByOwner(model.SessionOwner(activeToken))
	assert.NoError(t, err)
	_, err = repo.FindByOwner(model.UserOwner(user.ID))
	assert.NoError(t, err, "user carts are never purged")

	var orphans int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", idle.ID).Count(&orphans)
	assert.Zero(t, orphans)
}

func TestCartRepository_LockAndDeleteByID(t *testing.T) {
	testDB, repo, product := setupCartTest(t)
	second := createTestProduct(t, testDB, "kobe", "150.00")

	token := "lock"
	cart := &model.Cart{SessionID: &token}
	require.NoError(t, repo.Create(cart))
	first := &model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1}
	require.NoError(t, repo.CreateItem(first))
	require.NoError(t, repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: second.ID, Quantity: 1}))

	err := testDB.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		items, err := txRepo.FindItemsForUpdate(cart.ID)
		if err != nil {
			return err
		}
		assert.Len(t, items, 2)
		return txRepo.DeleteItemsByID(first.ID)
	})
	require.NoError(t, err)

	items, err := repo.FindItems(cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ProductID)

	assert.NoError(t, repo.DeleteItemsByID())
}
