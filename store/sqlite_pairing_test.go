package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
)

func TestSQLitePairingStore_Lifecycle(t *testing.T) {
	_, ps := newTestStores(t)
	ctx := context.Background()

	t.Run("no pairing yields ErrNotFound", func(t *testing.T) {
		_, err := ps.LatestAccepted(ctx, userA)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("pending invite is not an accepted pairing", func(t *testing.T) {
		p, err := ps.Create(ctx, userA, userB)
		require.NoError(t, err)
		assert.Equal(t, models.PairingStatusPending, p.Status)

		_, err = ps.LatestAccepted(ctx, userA)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("accept makes the pairing visible to both sides", func(t *testing.T) {
		p, err := ps.Create(ctx, userA, userB)
		require.NoError(t, err)
		require.NoError(t, ps.Accept(ctx, p.ID))

		got, err := ps.LatestAccepted(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, userB, got.OtherUser(userA))

		got, err = ps.LatestAccepted(ctx, userB)
		require.NoError(t, err)
		assert.Equal(t, userA, got.OtherUser(userB))
	})

	t.Run("accepting twice fails", func(t *testing.T) {
		p, err := ps.Create(ctx, userA, userB)
		require.NoError(t, err)
		require.NoError(t, ps.Accept(ctx, p.ID))

		assert.ErrorIs(t, ps.Accept(ctx, p.ID), pkg.ErrNotFound)
	})
}
