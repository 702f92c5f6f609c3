package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
)

// fakePairingStore, store.PairingStore'un test implementasyonu.
type fakePairingStore struct {
	pairing *models.Pairing
	err     error
}

func (f *fakePairingStore) LatestAccepted(_ context.Context, _ string) (*models.Pairing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pairing, nil
}

func (f *fakePairingStore) Create(_ context.Context, _, _ string) (*models.Pairing, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePairingStore) Accept(_ context.Context, _ string) error {
	return errors.New("not implemented")
}

func TestResolveIdentity(t *testing.T) {
	self := "aaaaaaaa-0000-0000-0000-000000000001"
	partner := "bbbbbbbb-0000-0000-0000-000000000002"

	t.Run("resolves partner from accepted pairing", func(t *testing.T) {
		pairings := &fakePairingStore{pairing: &models.Pairing{
			UserID:    self,
			PartnerID: partner,
			Status:    models.PairingStatusAccepted,
			CreatedAt: time.Now(),
		}}

		identity := ResolveIdentity(context.Background(), pairings, self)
		assert.Equal(t, self, identity.SelfID)
		assert.Equal(t, partner, identity.PartnerID)
		assert.True(t, identity.HasPartner())
	})

	t.Run("resolves when user is the invited side", func(t *testing.T) {
		pairings := &fakePairingStore{pairing: &models.Pairing{
			UserID:    partner,
			PartnerID: self,
			Status:    models.PairingStatusAccepted,
		}}

		identity := ResolveIdentity(context.Background(), pairings, self)
		assert.Equal(t, partner, identity.PartnerID)
	})

	t.Run("no pairing means no partner, not an error", func(t *testing.T) {
		pairings := &fakePairingStore{err: pkg.ErrNotFound}

		identity := ResolveIdentity(context.Background(), pairings, self)
		assert.Equal(t, self, identity.SelfID)
		assert.False(t, identity.HasPartner())
		assert.Empty(t, identity.ChannelKey())
	})

	t.Run("store failure degrades to no partner", func(t *testing.T) {
		pairings := &fakePairingStore{err: errors.New("db locked")}

		identity := ResolveIdentity(context.Background(), pairings, self)
		assert.False(t, identity.HasPartner())
	})

	t.Run("channel key is derived from the pair", func(t *testing.T) {
		pairings := &fakePairingStore{pairing: &models.Pairing{
			UserID:    self,
			PartnerID: partner,
			Status:    models.PairingStatusAccepted,
		}}

		identity := ResolveIdentity(context.Background(), pairings, self)
		assert.Equal(t, DeriveChannelKey(partner, self), identity.ChannelKey())
	})
}
