package sessions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/sessions"
)

func TestInMemoryUpsertIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo()
	expiry := time.Unix(1_700_000_000, 0)

	first, err := repo.UpsertByUserID(ctx, &sessions.Record{UserID: 42, AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: expiry})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.UpsertByUserID(ctx, &sessions.Record{UserID: 42, AccessToken: "AT2", RefreshToken: "RT2", ExpiresAt: expiry.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	found, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "AT2", found.AccessToken)
	require.Equal(t, "RT2", found.RefreshToken)
	require.Equal(t, expiry.Add(time.Hour), found.ExpiresAt)

	other, err := repo.UpsertByUserID(ctx, &sessions.Record{UserID: 7, AccessToken: "X", RefreshToken: "Y", ExpiresAt: expiry})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestInMemoryFindByUserIDNotFound(t *testing.T) {
	_, err := sessions.NewInMemoryRepo().FindByUserID(context.Background(), 99)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestInMemoryConcurrentUpsertsKeepOneRecord(t *testing.T) {
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo()

	var wg sync.WaitGroup
	ids := make(chan int64, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := repo.UpsertByUserID(ctx, &sessions.Record{
				UserID:       42,
				AccessToken:  fmt.Sprintf("AT%d", i),
				RefreshToken: fmt.Sprintf("RT%d", i),
			})
			if err == nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 1)

	found, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, found.AccessToken[2:], found.RefreshToken[2:])
}
