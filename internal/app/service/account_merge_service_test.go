package service

import (
	"errors"
	"testing"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupMergeTest(t *testing.T) (AccountMergeService, CartService, FavoriteService, *testRepos) {
	repos := setupRepos(t)
	return NewAccountMergeService(repos.carts, repos.favorites),
		NewCartService(repos.carts, repos.products),
		NewFavoriteService(repos.favorites, repos.products),
		repos
}

func runMerge(t *testing.T, merge AccountMergeService, repos *testRepos, sessionID string, userID uint) *MergeResult {
	t.Helper()
	var result *MergeResult
	err := repos.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = merge.MergeSessionIntoUser(tx, sessionID, userID)
		return err
	})
	require.NoError(t, err)
	return result
}

func TestAccountMergeService_SumsAndMovesLines(t *testing.T) {
	merge, cartService, _, repos := setupMergeTest(t)
	shared := createProduct(t, repos, "Shared", "10.00")
	sessionOnly := createProduct(t, repos, "SessionOnly", "20.00")
	userOnly := createProduct(t, repos, "UserOnly", "5.00")
	user := createUser(t, repos, "gina")

	sessionID := "7c3b9e1a-0000-4000-8000-000000000001"
	sessionOwner := model.SessionOwner(sessionID)
	userOwner := model.UserOwner(user.ID)

	_, err := cartService.AddItem(sessionOwner, shared.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(sessionOwner, sessionOnly.ID, 1)
	require.NoError(t, err)
	_, err = cartService.AddItem(userOwner, shared.ID, 3)
	require.NoError(t, err)
	_, err = cartService.AddItem(userOwner, userOnly.ID, 4)
	require.NoError(t, err)

	result := runMerge(t, merge, repos, sessionID, user.ID)
	assert.Equal(t, 1, result.LinesMerged)
	assert.Equal(t, 1, result.LinesMoved)

	view, err := cartService.GetCart(userOwner)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{
		shared.ID:      5,
		sessionOnly.ID: 1,
		userOnly.ID:    4,
	}, cartQuantities(view))

	_, err = repos.carts.FindByOwner(sessionOwner)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var lines int64
	repos.db.Model(&model.CartItem{}).Count(&lines)
	assert.Equal(t, int64(3), lines)
}

func TestAccountMergeService_CreatesUserCart(t *testing.T) {
	merge, cartService, _, repos := setupMergeTest(t)
	product := createProduct(t, repos, "Runner", "10.00")
	user := createUser(t, repos, "hank")
	sessionID := "7c3b9e1a-0000-4000-8000-000000000002"

	_, err := cartService.AddItem(model.SessionOwner(sessionID), product.ID, 2)
	require.NoError(t, err)

	result := runMerge(t, merge, repos, sessionID, user.ID)
	assert.Equal(t, 1, result.LinesMoved)
	assert.Equal(t, 0, result.LinesMerged)

	view, err := cartService.GetCart(model.UserOwner(user.ID))
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{product.ID: 2}, cartQuantities(view))
}

func TestAccountMergeService_Favorites(t *testing.T) {
	merge, _, favoriteService, repos := setupMergeTest(t)
	shared := createProduct(t, repos, "Shared", "10.00")
	sessionOnly := createProduct(t, repos, "SessionOnly", "20.00")
	user := createUser(t, repos, "iris")
	sessionID := "7c3b9e1a-0000-4000-8000-000000000003"
	sessionOwner := model.SessionOwner(sessionID)
	userOwner := model.UserOwner(user.ID)

	for _, p := range []*model.Product{shared, sessionOnly} {
		_, err := favoriteService.Add(sessionOwner, p.ID)
		require.NoError(t, err)
	}
	_, err := favoriteService.Add(userOwner, shared.ID)
	require.NoError(t, err)

	result := runMerge(t, merge, repos, sessionID, user.ID)
	assert.Equal(t, 1, result.FavoritesMoved)
	assert.Equal(t, 1, result.FavoritesDropped)

	favorites, err := favoriteService.List(userOwner)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	seen := map[uint]int{}
	for _, f := range favorites {
		seen[f.ProductID]++
		assert.Nil(t, f.SessionID)
	}
	assert.Equal(t, map[uint]int{shared.ID: 1, sessionOnly.ID: 1}, seen)

	leftover, err := favoriteService.List(sessionOwner)
	require.NoError(t, err)
	assert.Empty(t, leftover)
}

func TestAccountMergeService_ConsumedSessionIsNoop(t *testing.T) {
	merge, cartService, _, repos := setupMergeTest(t)
	product := createProduct(t, repos, "Runner", "10.00")
	user := createUser(t, repos, "jack")
	sessionID := "7c3b9e1a-0000-4000-8000-000000000004"

	_, err := cartService.AddItem(model.SessionOwner(sessionID), product.ID, 1)
	require.NoError(t, err)

	first := runMerge(t, merge, repos, sessionID, user.ID)
	assert.False(t, first.Empty())

	second := runMerge(t, merge, repos, sessionID, user.ID)
	assert.True(t, second.Empty())

	view, err := cartService.GetCart(model.UserOwner(user.ID))
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{product.ID: 1}, cartQuantities(view))
}

func TestAccountMergeService_EmptySessionCartIsRemoved(t *testing.T) {
	merge, cartService, _, repos := setupMergeTest(t)
	user := createUser(t, repos, "kim")
	sessionID := "7c3b9e1a-0000-4000-8000-000000000005"

	_, err := cartService.GetCart(model.SessionOwner(sessionID))
	require.NoError(t, err)

	result := runMerge(t, merge, repos, sessionID, user.ID)
	assert.True(t, result.Empty())

	var carts int64
	repos.db.Model(&model.Cart{}).Count(&carts)
	assert.Equal(t, int64(0), carts)
}

func TestAccountMergeService_RollsBackWithTransaction(t *testing.T) {
	merge, cartService, _, repos := setupMergeTest(t)
	product := createProduct(t, repos, "Runner", "10.00")
	user := createUser(t, repos, "lee")
	sessionID := "7c3b9e1a-0000-4000-8000-000000000006"

	_, err := cartService.AddItem(model.SessionOwner(sessionID), product.ID, 3)
	require.NoError(t, err)

	abort := errors.New("registration failed later")
	err = repos.db.Transaction(func(tx *gorm.DB) error {
		if _, err := merge.MergeSessionIntoUser(tx, sessionID, user.ID); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	view, err := cartService.GetCart(model.SessionOwner(sessionID))
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{product.ID: 3}, cartQuantities(view))
}

func TestAccountMergeService_InvalidArguments(t *testing.T) {
	merge, _, _, repos := setupMergeTest(t)

	_, err := merge.MergeSessionIntoUser(repos.db, "", 1)
	assert.ErrorIs(t, err, model.ErrInvalidOwner)

	_, err = merge.MergeSessionIntoUser(repos.db, "7c3b9e1a-0000-4000-8000-000000000007", 0)
	assert.ErrorIs(t, err, model.ErrInvalidOwner)
}
