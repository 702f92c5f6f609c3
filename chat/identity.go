package chat

import (
	"context"
	"errors"
	"log"

	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/store"
)

// Identity, chat session'ının iki tarafını taşır.
// PartnerID boş olabilir — kullanıcının kabul edilmiş eşleşmesi yoksa
// chat özellikleri devre dışıdır ama bu bir hata durumu DEĞİLDİR.
type Identity struct {
	SelfID    string
	PartnerID string
}

// HasPartner, chat'in kullanılabilir olup olmadığını söyler.
func (i Identity) HasPartner() bool {
	return i.PartnerID != ""
}

// ChannelKey, bu kimlik çiftinin kanonik kanal anahtarını döner.
// Eş yoksa boş string — anahtara dayanan bileşenler no-op yapar.
func (i Identity) ChannelKey() string {
	return DeriveChannelKey(i.SelfID, i.PartnerID)
}

// ResolveIdentity, kullanıcının en güncel "accepted" eşleşmesinden karşı
// tarafı çözer.
//
// Eşleşme yoksa veya sorgu hata verirse eşsiz bir Identity döner (nil error):
// caller "chat kullanılamaz" durumunu gösterir, kullanıcıya gürültülü bir
// hata fırlatmaz. Gerçek hatalar sadece diagnostik için loglanır.
func ResolveIdentity(ctx context.Context, pairings store.PairingStore, selfID string) Identity {
	identity := Identity{SelfID: selfID}

	p, err := pairings.LatestAccepted(ctx, selfID)
	if err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			log.Printf("[chat] pairing lookup failed for user %s: %v", selfID, err)
		}
		return identity
	}

	identity.PartnerID = p.OtherUser(selfID)
	return identity
}
