package service

import (
	"testing"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWTSecret = []byte("test-secret")

func newTestUserService(db *gorm.DB) UserService {
	return NewUserService(repository.NewUserRepository(db), db, testJWTSecret)
}

func registerUser(t *testing.T, svc UserService, username, email, role, position string) *UserResponse {
	t.Helper()
	user, err := svc.CreateUser(ctx(), CreateUserRequest{
		Username: username,
		Email:    email,
		Password: "hunter22",
		Role:     role,
		Position: position,
	})
	require.NoError(t, err)
	return user
}

func TestUserService_CreateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db)

	created := registerUser(t, svc, "jpark", "jpark@corp.com", model.RoleUser, model.PositionEmployee)
	assert.Equal(t, model.UserActive, created.Status)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx(), CreateUserRequest{
			Username: "jpark", Email: "other@corp.com", Password: "hunter22",
			Role: model.RoleUser, Position: model.PositionEmployee,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "username already exists")
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateUser(ctx(), CreateUserRequest{
			Username: "jpark2", Email: "jpark@corp.com", Password: "hunter22",
			Role: model.RoleUser, Position: model.PositionEmployee,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email already exists")
	})

	t.Run("malformed email", func(t *testing.T) {
		_, err := svc.CreateUser(ctx(), CreateUserRequest{
			Username: "nobody", Email: "not-an-email", Password: "hunter22",
			Role: model.RoleUser, Position: model.PositionEmployee,
		})
		require.Error(t, err)
	})

	t.Run("password is never stored in clear", func(t *testing.T) {
		var stored model.User
		require.NoError(t, db.First(&stored, "username = ?", "jpark").Error)
		assert.NotEqual(t, "hunter22", stored.Password)
	})
}

func TestUserService_Login(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db)
	registerUser(t, svc, "jpark", "jpark@corp.com", model.RoleAdmin, model.PositionManager)

	t.Run("valid credentials", func(t *testing.T) {
		tokens, err := svc.Login(ctx(), LoginUserRequest{Email: "jpark@corp.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Equal(t, "jpark", tokens.User.Username)

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(tokens.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return testJWTSecret, nil
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, claims["role"])
		assert.Equal(t, model.PositionManager, claims["position"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx(), LoginUserRequest{Email: "jpark@corp.com", Password: "wrong"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email or password")
	})

	t.Run("suspended account", func(t *testing.T) {
		require.NoError(t, db.Model(&model.User{}).Where("username = ?", "jpark").Update("status", model.UserSuspended).Error)
		_, err := svc.Login(ctx(), LoginUserRequest{Email: "jpark@corp.com", Password: "hunter22"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account is SUSPENDED")
	})
}

func TestUserService_RefreshRotation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db)
	registerUser(t, svc, "jpark", "jpark@corp.com", model.RoleUser, model.PositionEmployee)

	tokens, err := svc.Login(ctx(), LoginUserRequest{Email: "jpark@corp.com", Password: "hunter22"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	t.Run("old token is gone after rotation", func(t *testing.T) {
		_, err := svc.Refresh(ctx(), tokens.RefreshToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid refresh token")
	})

	t.Run("logout revokes the current token", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx(), rotated.RefreshToken))
		_, err := svc.Refresh(ctx(), rotated.RefreshToken)
		require.Error(t, err)
	})
}

func TestUserService_StatusAndListing(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db)
	admin := registerUser(t, svc, "admin", "admin@corp.com", model.RoleAdmin, model.PositionCEO)
	registerUser(t, svc, "emp1", "emp1@corp.com", model.RoleUser, model.PositionEmployee)
	registerUser(t, svc, "emp2", "emp2@corp.com", model.RoleUser, model.PositionEmployee)

	t.Run("role filter", func(t *testing.T) {
		users, total, err := svc.ListUsers(ctx(), repository.UserFilter{Role: model.RoleUser})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, users, 2)
	})

	t.Run("status update", func(t *testing.T) {
		updated, err := svc.UpdateUserStatus(ctx(), admin.ID.String(), model.UserInactive)
		require.NoError(t, err)
		assert.Equal(t, model.UserInactive, updated.Status)

		_, err = svc.UpdateUserStatus(ctx(), admin.ID.String(), "FROZEN")
		require.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx(), admin.ID.String()))
		_, err := svc.GetUserByID(ctx(), admin.ID.String())
		require.Error(t, err)
	})
}
