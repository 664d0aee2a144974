package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/db"
	"github.com/townmarket/townmarket-backend/pkg/util"
)

func setupUserServiceTest(t *testing.T) UserService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return NewUserService(repository.NewUserRepository(testDB), NewFieldValidator())
}

func TestUserService_Create(t *testing.T) {
	svc := setupUserServiceTest(t)

	user, err := svc.Create(CreateUserInput{
		Name:     "jane publisher",
		Email:    " Jane@Example.com ",
		Password: "password123",
		Role:     model.RolePublisher,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Publisher", user.Name)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, util.VerifyPassword(user.PasswordHash, "password123"))

	_, err = svc.Create(CreateUserInput{
		Name:     "Copy",
		Email:    "jane@example.com",
		Password: "password123",
		Role:     model.RoleViewer,
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestUserService_CreateValidation(t *testing.T) {
	svc := setupUserServiceTest(t)

	_, err := svc.Create(CreateUserInput{Name: "", Email: "not-an-email", Password: "short", Role: "owner"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "role")
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	svc := setupUserServiceTest(t)

	admin, err := svc.Create(CreateUserInput{Name: "Admin", Email: "admin@example.com", Password: "password123", Role: model.RoleAdmin})
	require.NoError(t, err)
	viewer, err := svc.Create(CreateUserInput{Name: "Viewer", Email: "viewer@example.com", Password: "password123", Role: model.RoleViewer})
	require.NoError(t, err)

	role := model.RolePublisher
	password := "newpassword1"
	updated, err := svc.Update(viewer.ID, UpdateUserInput{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, model.RolePublisher, updated.Role)
	assert.Equal(t, "Viewer", updated.Name)
	assert.True(t, util.VerifyPassword(updated.PasswordHash, password))

	badRole := model.UserRole("owner")
	_, err = svc.Update(viewer.ID, UpdateUserInput{Role: &badRole})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(999, UpdateUserInput{Role: &role})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(admin.ID, admin.ID), ErrCannotDeleteSelf)
	require.NoError(t, svc.Delete(admin.ID, viewer.ID))
	assert.ErrorIs(t, svc.Delete(admin.ID, viewer.ID), ErrNotFound)

	users, err := svc.List(repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
