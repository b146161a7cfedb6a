package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (CartService, *testRepos) {
	repos := setupRepos(t)
	return NewCartService(repos.carts, repos.products), repos
}

func TestCartService_GetCart_CreatesEmptyCart(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000001")

	view, err := cartService.GetCart(owner)
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.ItemsCount)
	assert.True(t, view.TotalPrice.IsZero())

	again, err := cartService.GetCart(owner)
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID)

	var count int64
	repos.db.Model(&model.Cart{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartService_InvalidOwner(t *testing.T) {
	cartService, _ := setupCartServiceTest(t)

	_, err := cartService.GetCart(model.CartOwner{})
	assert.ErrorIs(t, err, model.ErrInvalidOwner)

	userID := uint(1)
	token := "tok"
	_, err = cartService.GetCart(model.CartOwner{UserID: &userID, SessionID: &token})
	assert.ErrorIs(t, err, model.ErrInvalidOwner)
}

func TestCartService_AddItem_Accumulates(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	user := createUser(t, repos, "alice")
	product := createProduct(t, repos, "Runner", "10.00")
	owner := model.UserOwner(user.ID)

	view, err := cartService.AddItem(owner, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)

	view, err = cartService.AddItem(owner, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 5, view.ItemsCount)
	assert.Equal(t, "50", view.TotalPrice.String())
	assert.Equal(t, "50", view.Items[0].LineTotal.String())
}

func TestCartService_AddItem_Validation(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	product := createProduct(t, repos, "Runner", "10.00")
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000002")

	_, err := cartService.AddItem(owner, product.ID, 0)
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "quantity", verr.Field)

	_, err = cartService.AddItem(owner, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_ItemsKeepInsertionOrder(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	first := createProduct(t, repos, "First", "1.00")
	second := createProduct(t, repos, "Second", "2.00")
	third := createProduct(t, repos, "Third", "3.00")
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000003")

	for _, p := range []*model.Product{second, first, third} {
		_, err := cartService.AddItem(owner, p.ID, 1)
		require.NoError(t, err)
	}
	view, err := cartService.AddItem(owner, second.ID, 1)
	require.NoError(t, err)

	require.Len(t, view.Items, 3)
	assert.Equal(t, second.ID, view.Items[0].Product.ID)
	assert.Equal(t, first.ID, view.Items[1].Product.ID)
	assert.Equal(t, third.ID, view.Items[2].Product.ID)
	assert.Equal(t, "8", view.TotalPrice.String())
}

func TestCartService_AddItem_Concurrent(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	user := createUser(t, repos, "bob")
	product := createProduct(t, repos, "Court", "20.00")
	owner := model.UserOwner(user.ID)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cartService.AddItem(owner, product.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := cartService.GetCart(owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, workers, view.Items[0].Quantity)

	var carts int64
	repos.db.Model(&model.Cart{}).Count(&carts)
	assert.Equal(t, int64(1), carts)
}

// racingCartRepository reports the first lookup as missing, as if another
// request created the cart between this request's read and write.
type racingCartRepository struct {
	repository.CartRepository
	mu     sync.Mutex
	missed bool
}

func (r *racingCartRepository) FindByOwner(owner model.CartOwner) (*model.Cart, error) {
	r.mu.Lock()
	first := !r.missed
	r.missed = true
	r.mu.Unlock()
	if first {
		return nil, gorm.ErrRecordNotFound
	}
	return r.CartRepository.FindByOwner(owner)
}

func TestCartService_GetOrCreateCart_LosesCreateRace(t *testing.T) {
	repos := setupRepos(t)
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000004")

	existing := &model.Cart{SessionID: owner.SessionID}
	require.NoError(t, repos.carts.Create(existing))

	cartService := NewCartService(&racingCartRepository{CartRepository: repos.carts}, repos.products)
	cart, err := cartService.GetOrCreateCart(owner)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cart.ID)

	var count int64
	repos.db.Model(&model.Cart{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartService_GetOrCreateCart_Concurrent(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000005")

	const workers = 8
	ids := make(chan uint, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cart, err := cartService.GetOrCreateCart(owner)
			if err == nil {
				ids <- cart.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)

	var count int64
	repos.db.Model(&model.Cart{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartService_UpdateItem(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	product := createProduct(t, repos, "Trail", "12.50")
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000006")

	_, err := cartService.AddItem(owner, product.ID, 1)
	require.NoError(t, err)

	view, err := cartService.UpdateItem(owner, product.ID, 4)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, "50", view.TotalPrice.String())

	_, err = cartService.UpdateItem(owner, 9999, 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_UpdateItemToZeroEqualsRemove(t *testing.T) {
	for _, quantity := range []int{0, -3} {
		cartService, repos := setupCartServiceTest(t)
		keep := createProduct(t, repos, "Keep", "5.00")
		drop := createProduct(t, repos, "Drop", "7.00")
		owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000007")

		_, err := cartService.AddItem(owner, keep.ID, 1)
		require.NoError(t, err)
		_, err = cartService.AddItem(owner, drop.ID, 2)
		require.NoError(t, err)

		view, err := cartService.UpdateItem(owner, drop.ID, quantity)
		require.NoError(t, err)
		assert.Equal(t, map[uint]int{keep.ID: 1}, cartQuantities(view))

		_, err = cartService.UpdateItem(owner, drop.ID, quantity)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
		_, err = cartService.RemoveItem(owner, drop.ID)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	}
}

func TestCartService_RemoveItemAndClear(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	a := createProduct(t, repos, "A", "1.00")
	b := createProduct(t, repos, "B", "2.00")
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000008")

	_, err := cartService.AddItem(owner, a.ID, 1)
	require.NoError(t, err)
	_, err = cartService.AddItem(owner, b.ID, 1)
	require.NoError(t, err)

	view, err := cartService.RemoveItem(owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{b.ID: 1}, cartQuantities(view))

	view, err = cartService.Clear(owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.TotalPrice.IsZero())

	// clearing an empty cart still succeeds
	_, err = cartService.Clear(owner)
	assert.NoError(t, err)
}

func TestCartService_OwnersAreIsolated(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	user := createUser(t, repos, "carol")
	product := createProduct(t, repos, "Low", "30.00")
	userOwner := model.UserOwner(user.ID)
	sessionOwner := model.SessionOwner("4f1d2a7e-0000-4000-8000-000000000009")

	_, err := cartService.AddItem(userOwner, product.ID, 1)
	require.NoError(t, err)

	view, err := cartService.GetCart(sessionOwner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = cartService.RemoveItem(sessionOwner, product.ID)
	assert.True(t, errors.Is(err, ErrCartItemNotFound))
}

func TestCartService_LineTotalUsesLivePrice(t *testing.T) {
	cartService, repos := setupCartServiceTest(t)
	product := createProduct(t, repos, "Hi", "10.00")
	owner := model.SessionOwner("4f1d2a7e-0000-4000-8000-00000000000a")

	_, err := cartService.AddItem(owner, product.ID, 2)
	require.NoError(t, err)

	product.Price = product.Price.Add(product.Price)
	require.NoError(t, repos.products.Update(product))

	view, err := cartService.GetCart(owner)
	require.NoError(t, err)
	assert.Equal(t, "40", view.TotalPrice.String())
}
