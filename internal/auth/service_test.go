package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/storefront-backend/internal/users"
	pkgAuth "github.com/shopsense/storefront-backend/pkg/auth"
	"github.com/shopsense/storefront-backend/pkg/auth/session"
	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/redis"
	"github.com/shopsense/storefront-backend/pkg/security"
)

var (
	jwtCfg = config.JWTConfig{
		Secret:                 "secret",
		Issuer:                 "shopsense",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 120,
	}
	passwordCfg = config.PasswordConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
)

type fixture struct {
	svc     Service
	users   *users.Repository
	manager *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromRaw(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	manager, err := session.NewManager(client, jwtCfg)
	require.NoError(t, err)

	repo := users.NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: manager,
		JWTConfig:      jwtCfg,
		PasswordConfig: passwordCfg,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, users: repo, manager: manager}
}

func TestSignupIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: " Ada ", Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, jwtCfg.ExpirationMinutes*60, resp.ExpiresIn)
	assert.Equal(t, "user:"+resp.User.ID.String(), resp.User.Identity)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	has, err := f.manager.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSignupValidationAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@example.com", Password: "12345"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Signup(ctx, SignupRequest{Name: " ", Email: "a@example.com", Password: "123456"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@example.com", Password: "123456"})
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, SignupRequest{Name: "B", Email: "A@EXAMPLE.COM", Password: "123456"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)
	assert.NotEmpty(t, resp.AccessToken)

	for _, req := range []LoginRequest{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
		{Email: " ", Password: "secret1"},
	} {
		_, err := f.svc.Login(ctx, req)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	weak := passwordCfg
	weak.ArgonMemoryKB = 8
	hash, err := security.HashPassword("secret1", weak)
	require.NoError(t, err)
	user, err := f.users.Create(ctx, users.CreateUserDTO{Name: "Old", Email: "old@example.com", PasswordHash: hash})
	require.NoError(t, err)
	require.True(t, security.NeedsRehash(hash, passwordCfg))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "old@example.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, passwordCfg))
	ok, err := security.VerifyPassword("secret1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	pair, err := f.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = f.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old session is gone after rotation")

	_, err = f.svc.Refresh(ctx, pair.AccessToken, "not-the-token")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
	has, err := f.manager.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, has)

	err = f.svc.Logout(ctx, "garbage")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestWithoutSessionStore(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		JWTConfig:      jwtCfg,
		PasswordConfig: passwordCfg,
		Now:            func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Empty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Refresh(ctx, resp.AccessToken, "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, resp.AccessToken), pkgerrors.CodeDependency))
}

func TestNewServiceRequiresUserRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
