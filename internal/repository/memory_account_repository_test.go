package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ride-accounts/internal/model"
)

func newUser(id, email, username string) *model.Account {
	return &model.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		FullName:     model.FullName{FirstName: "Ann", LastName: "Lee"},
		PasswordHash: "hash-" + id,
	}
}

func TestMemoryAccountRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo(model.UserRole)

	require.NoError(t, repo.Create(ctx, newUser("u1", "  A@X.com ", "Ann")))

	got, err := repo.GetByEmail(ctx, "a@x.COM")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "ann", got.Username)
	assert.Equal(t, model.RoleUser, got.Role)
	assert.Equal(t, "hash-u1", got.PasswordHash)
	assert.False(t, got.CreatedAt.IsZero())

	profile, err := repo.FindProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, profile.PasswordHash)
	assert.Nil(t, profile.RefreshToken)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAccountRepo_Duplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo(model.UserRole)
	require.NoError(t, repo.Create(ctx, newUser("u1", "a@x.com", "ann")))

	assert.ErrorIs(t, repo.Create(ctx, newUser("u2", "A@x.com", "bob")), ErrEmailExists)
	assert.ErrorIs(t, repo.Create(ctx, newUser("u3", "b@x.com", "ANN")), ErrUsernameExists)
}

func TestMemoryAccountRepo_RefreshTokenSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo(model.CaptainRole)
	require.NoError(t, repo.Create(ctx, newUser("c1", "c@x.com", "")))

	first, second := "digest-1", "digest-2"
	require.NoError(t, repo.SetRefreshToken(ctx, "c1", &first))
	require.NoError(t, repo.SetRefreshToken(ctx, "c1", &second))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "digest-2", *got.RefreshToken)

	require.NoError(t, repo.SetRefreshToken(ctx, "c1", nil))
	require.NoError(t, repo.SetRefreshToken(ctx, "c1", nil))
	got, err = repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)

	assert.ErrorIs(t, repo.SetRefreshToken(ctx, "nope", nil), ErrNotFound)
}

func TestMemoryAccountRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo(model.CaptainRole)
	a := newUser("c1", "c@x.com", "")
	a.Vehicle = &model.Vehicle{Color: "red", Plate: "ABC123", Capacity: 4, VehicleType: model.VehicleCar}
	require.NoError(t, repo.Create(ctx, a))

	a.Vehicle.Color = "blue"
	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "red", got.Vehicle.Color)

	got.Vehicle.Color = "green"
	again, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "red", again.Vehicle.Color)
}

func TestMemoryAccountRepo_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo(model.UserRole)
	require.NoError(t, repo.Create(ctx, newUser("u1", "a@x.com", "ann")))
	require.NoError(t, repo.Create(ctx, newUser("u2", "b@x.com", "bob")))

	err := repo.UpdateProfile(ctx, &model.Account{ID: "u1", Email: "b@x.com", Username: "ann"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = repo.UpdateProfile(ctx, &model.Account{
		ID:       "u1",
		Email:    "new@x.com",
		Username: "ann",
		FullName: model.FullName{FirstName: "Anne", LastName: "Leeds"},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", got.Email)
	assert.Equal(t, "Anne", got.FullName.FirstName)
	assert.Equal(t, "hash-u1", got.PasswordHash)
}
