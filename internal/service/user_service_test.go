package service

import (
	"context"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetByHandle(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.store, 0)
	ctx := context.Background()

	alice := &models.User{Handle: "alice", DisplayName: "Alice Liddell"}
	require.NoError(t, e.db.Create(alice).Error)

	got, err := svc.GetByHandle(ctx, "  ALICE ")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "Alice Liddell", got.DisplayName)

	_, err = svc.GetByHandle(ctx, "nobody")
	assert.True(t, models.IsNotFound(err), "got %v", err)

	_, err = svc.GetByHandle(ctx, " ")
	assertValidationError(t, err)
}

func TestUserService_Search(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.store, 2)
	ctx := context.Background()

	for _, u := range []*models.User{
		{Handle: "gopher", DisplayName: "Go Fan"},
		{Handle: "gopher2", DisplayName: "Second"},
		{Handle: "other", DisplayName: "A Gopher Too"},
		{Handle: "nobody", DisplayName: "Nobody"},
	} {
		require.NoError(t, e.db.Create(u).Error)
	}

	found, err := svc.Search(ctx, "GOPHER", 0)
	require.NoError(t, err)
	assert.Len(t, found, 2, "capped at the service limit")

	found, err = svc.Search(ctx, "gopher", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2, "requested limit above the cap is clamped")

	found, err = svc.Search(ctx, "too", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "other", found[0].Handle)

	_, err = svc.Search(ctx, "   ", 0)
	assertValidationError(t, err)
}
