package repository

import (
	"testing"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateWithProfile(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewUserRepository(testDB)

	user := &model.User{
		Username:     "sole",
		Email:        "sole@example.com",
		PasswordHash: "hash",
		FirstName:    "Sole",
		Role:         model.RoleUser,
	}
	require.NoError(t, repo.Create(user))
	require.NoError(t, repo.CreateProfile(&model.UserProfile{UserID: user.ID, Phone: "555-0100"}))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Profile)
	assert.Equal(t, "555-0100", found.Profile.Phone)

	byEmail, err := repo.FindByEmail("sole@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := repo.FindByUsername("sole")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = repo.FindByEmail("missing@example.com")
	assert.True(t, isNotFound(err))
}

func TestUserRepository_UniqueEmailAndUsername(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewUserRepository(testDB)

	require.NoError(t, repo.Create(&model.User{Username: "a", Email: "a@example.com", PasswordHash: "h"}))
	assert.Error(t, repo.Create(&model.User{Username: "b", Email: "a@example.com", PasswordHash: "h"}))
	assert.Error(t, repo.Create(&model.User{Username: "a", Email: "b@example.com", PasswordHash: "h"}))
}

func TestUserRepository_SaveProfileUpserts(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewUserRepository(testDB)
	user := createTestUser(t, testDB, "walker")

	require.NoError(t, repo.SaveProfile(&model.UserProfile{UserID: user.ID, Address: "1 Main St"}))
	require.NoError(t, repo.SaveProfile(&model.UserProfile{UserID: user.ID, Address: "2 Side St"}))

	var count int64
	testDB.Model(&model.UserProfile{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", found.Profile.Address)
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewUserRepository(testDB)
	user := createTestUser(t, testDB, "runner")

	user.LastName = "Fast"
	require.NoError(t, repo.Update(user))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fast", found.LastName)

	require.NoError(t, repo.Delete(user.ID))
	_, err = repo.FindByID(user.ID)
	assert.True(t, isNotFound(err))
}
