package repository

import (
	"context"
	"testing"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Integration(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	gopher := &models.User{Handle: "gopherfan", DisplayName: "Rob"}
	rustacean := &models.User{Handle: "crab", DisplayName: "Ferris the Gopher"}
	other := &models.User{Handle: "plain", DisplayName: "100% Plain"}
	for _, u := range []*models.User{gopher, rustacean, other} {
		require.NoError(t, repo.Create(ctx, u))
	}

	t.Run("GetByHandle ignores case", func(t *testing.T) {
		got, err := repo.GetByHandle(ctx, "GopherFan")
		require.NoError(t, err)
		assert.Equal(t, gopher.ID, got.ID)

		_, err = repo.GetByHandle(ctx, "nobody")
		assert.True(t, models.IsNotFound(err), "got %v", err)
	})

	t.Run("Search matches handle or display name", func(t *testing.T) {
		found, err := repo.Search(ctx, "GOPHER", 10)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, rustacean.ID, found[0].ID, "ordered by handle")
		assert.Equal(t, gopher.ID, found[1].ID)

		limited, err := repo.Search(ctx, "gopher", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Search escapes wildcards", func(t *testing.T) {
		found, err := repo.Search(ctx, "0%", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, other.ID, found[0].ID)

		none, err := repo.Search(ctx, "_", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
