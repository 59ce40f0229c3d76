package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/pkg/db"
	"github.com/shopsense/storefront-backend/pkg/db/dbtest"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotEqual(t, "", user.ID.String())

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryDuplicateEmailIsUniqueViolation(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Name: "A", Email: "dup@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Name: "B", Email: "dup@example.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryUpdates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Name: "A", Email: "a@example.com", PasswordHash: "old"})
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))
	assert.Equal(t, "new", got.PasswordHash)
	assert.NotNil(t, FromModel(got))
}

func TestRepositoryEmailIsCaseInsensitive(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Name: "Grace", Email: "  Grace@Example.COM ", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)

	taken, err := repo.EmailTaken(ctx, "GRACE@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.EmailTaken(ctx, "other@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	dto := FromModel(user)
	assert.Equal(t, "user:"+user.ID.String(), dto.Identity)
}

func TestRepositoryUpdateUnknownUser(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdateLastLogin(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
