package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/db"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewUserRepository(testDB)
	return testDB, repo
}

func TestUserRepository_Create(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name: "Valid user",
			user: &model.User{
				Email:        "test@example.com",
				PasswordHash: "hashedpassword",
				Name:         "Test User",
				Role:         model.RoleViewer,
			},
			wantErr: false,
		},
		{
			name: "Duplicate email",
			user: &model.User{
				Email:        "test@example.com",
				PasswordHash: "hashedpassword",
				Name:         "Another User",
				Role:         model.RolePublisher,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
			}
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := &model.User{Email: "find@example.com", PasswordHash: "hash", Name: "Find Me", Role: model.RoleAdmin}
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail("find@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, model.RoleAdmin, found.Role)

	_, err = repo.FindByEmail("missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := &model.User{Email: "u@example.com", PasswordHash: "hash", Name: "Before", Role: model.RoleViewer}
	require.NoError(t, repo.Create(user))

	user.Name = "After"
	user.Role = model.RolePublisher
	require.NoError(t, repo.Update(user))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", found.Name)
	assert.Equal(t, model.RolePublisher, found.Role)

	require.NoError(t, repo.Delete(user.ID))
	assert.ErrorIs(t, repo.Delete(user.ID), gorm.ErrRecordNotFound)

	_, err = repo.FindByID(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ListAndCountByRole(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	for i, role := range []model.UserRole{model.RoleAdmin, model.RoleViewer, model.RoleViewer} {
		require.NoError(t, repo.Create(&model.User{
			Email:        string(rune('a'+i)) + "@example.com",
			PasswordHash: "hash",
			Name:         "User",
			Role:         role,
		}))
	}

	viewers, err := repo.List(UserFilter{Role: model.RoleViewer})
	require.NoError(t, err)
	assert.Len(t, viewers, 2)

	page, err := repo.List(UserFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, model.RoleViewer, page[0].Role)

	counts, err := repo.CountByRole()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.RoleAdmin])
	assert.Equal(t, int64(0), counts[model.RolePublisher])
	assert.Equal(t, int64(2), counts[model.RoleViewer])
}
