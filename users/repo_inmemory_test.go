package users_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/users"
)

func TestInMemoryCreateOrFind(t *testing.T) {
	ctx := context.Background()
	repo := users.NewInMemoryRepo()

	created, err := repo.CreateOrFind(ctx, &users.User{ID: 42, Username: "octocat", AvatarURL: "https://avatars/1"})
	require.NoError(t, err)
	require.Equal(t, int64(42), created.ID)
	require.False(t, created.CreatedAt.IsZero())

	found, err := repo.CreateOrFind(ctx, &users.User{ID: 42, Username: "renamed"})
	require.NoError(t, err)
	require.Equal(t, "octocat", found.Username)
	require.Equal(t, created.CreatedAt, found.CreatedAt)

	byID, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, *found, *byID)
}

func TestInMemoryGetByIDNotFound(t *testing.T) {
	_, err := users.NewInMemoryRepo().GetByID(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestInMemoryCreateOrFindRequiresID(t *testing.T) {
	_, err := users.NewInMemoryRepo().CreateOrFind(context.Background(), &users.User{Username: "nobody"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}
