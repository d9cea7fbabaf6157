package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/auth"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/internal/testutil"
	"bookinventory/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthFixture(t *testing.T) (AuthService, UserService, *auth.TokenIssuer) {
	t.Helper()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	issuer := auth.NewTokenIssuer("test-secret", 24*time.Hour, 7*24*time.Hour)
	return NewAuthService(users, issuer), NewUserService(users), issuer
}

func TestRegisterThenLogin(t *testing.T) {
	authSvc, _, issuer := newAuthFixture(t)
	ctx := context.Background()

	reg, err := authSvc.Register(ctx, RegisterRequest{Email: "Ana@Example.com ", Password: "secret123", FirstName: "Ana", LastName: "Pérez"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.Equal(t, model.RoleUser, reg.User.Role)
	assert.EqualValues(t, 86400, reg.ExpiresIn)

	_, err = authSvc.Register(ctx, RegisterRequest{Email: "ana@example.com", Password: "secret123", FirstName: "Otra", LastName: "Ana"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	login, err := authSvc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)

	raw, err := json.Marshal(login)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	claims, err := issuer.Parse(login.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestLoginFailures(t *testing.T) {
	authSvc, users, _ := newAuthFixture(t)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, CreateUserRequest{Email: "luis@example.com", Password: "secret123", FirstName: "Luis", LastName: "Gómez"})
	require.NoError(t, err)

	_, err = authSvc.Login(ctx, LoginRequest{Email: "luis@example.com", Password: "wrong"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = authSvc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = users.UpdateUser(ctx, u.ID.String(), UpdateUserRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = authSvc.Login(ctx, LoginRequest{Email: "luis@example.com", Password: "secret123"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestRefresh(t *testing.T) {
	authSvc, users, _ := newAuthFixture(t)
	ctx := context.Background()

	reg, err := authSvc.Register(ctx, RegisterRequest{Email: "eva@example.com", Password: "secret123", FirstName: "Eva", LastName: "Ruiz"})
	require.NoError(t, err)

	res, err := authSvc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.EqualValues(t, 86400, res.ExpiresIn)

	_, err = authSvc.Refresh(ctx, RefreshRequest{RefreshToken: reg.AccessToken})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err), "access tokens cannot refresh")

	_, err = authSvc.Refresh(ctx, RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = users.UpdateUser(ctx, reg.User.ID.String(), UpdateUserRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = authSvc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestProfile(t *testing.T) {
	authSvc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	reg, err := authSvc.Register(ctx, RegisterRequest{Email: "sol@example.com", Password: "secret123", FirstName: "Sol", LastName: "Díaz"})
	require.NoError(t, err)

	user, err := authSvc.Profile(ctx, reg.User.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Sol", user.FirstName)

	_, err = authSvc.Profile(ctx, "nope")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestUserAdministration(t *testing.T) {
	_, users, _ := newAuthFixture(t)
	ctx := context.Background()

	admin, err := users.CreateUser(ctx, CreateUserRequest{Email: "admin@example.com", Password: "secret123", FirstName: "Ad", LastName: "Min", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.NotEqual(t, "secret123", admin.Password)

	plain, err := users.CreateUser(ctx, CreateUserRequest{Email: "plain@example.com", Password: "secret123", FirstName: "Pla", LastName: "In"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, plain.Role)

	_, err = users.CreateUser(ctx, CreateUserRequest{Email: "ADMIN@example.com", Password: "secret123", FirstName: "X", LastName: "Y"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = users.UpdateUser(ctx, plain.ID.String(), UpdateUserRequest{Email: ptr("admin@example.com")})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	promoted, err := users.UpdateUser(ctx, plain.ID.String(), UpdateUserRequest{Role: ptr(model.RoleManager), FirstName: ptr("Plain")})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, promoted.Role)
	assert.Equal(t, "Plain", promoted.FirstName)
	assert.Equal(t, "plain@example.com", promoted.Email)

	_, err = users.UpdateUser(ctx, plain.ID.String(), UpdateUserRequest{Role: ptr("root")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	page, err := users.ListUsers(ctx, "plain", pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

// staleEmailLookup never finds a user by email, like a concurrent registration
// that checked before the other insert committed
type staleEmailLookup struct {
	repository.UserRepository
}

func (staleEmailLookup) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestRegisterRaceOnEmailIsAConflict(t *testing.T) {
	db := testutil.NewDB(t)
	users := staleEmailLookup{repository.NewUserRepository(db)}
	issuer := auth.NewTokenIssuer("test-secret", time.Hour, time.Hour)
	authSvc, userSvc := NewAuthService(users, issuer), NewUserService(users)
	ctx := context.Background()

	_, err := authSvc.Register(ctx, RegisterRequest{Email: "eva@example.com", Password: "secret123", FirstName: "Eva", LastName: "Ruiz"})
	require.NoError(t, err)

	_, err = authSvc.Register(ctx, RegisterRequest{Email: "eva@example.com", Password: "secret123", FirstName: "Eva", LastName: "Ruiz"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = userSvc.CreateUser(ctx, CreateUserRequest{Email: "eva@example.com", Password: "secret123", FirstName: "Eva", LastName: "Ruiz"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	err = repository.NewUserRepository(db).Create(ctx, &model.User{Email: "eva@example.com", Password: "x", FirstName: "E", LastName: "R", Role: model.RoleUser})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
