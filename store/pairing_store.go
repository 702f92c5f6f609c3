package store

import (
	"context"

	"github.com/akinalp/ikimiz/models"
)

// PairingStore, eşleşme kayıtları için yetenek sözleşmesi.
//
//   - LatestAccepted: Kullanıcının dahil olduğu en güncel "accepted" eşleşmeyi
//     döner. Hiç yoksa pkg.ErrNotFound — çağıran taraf bunu "chat kullanılamaz"
//     olarak ele alır, gürültülü bir hata olarak değil.
//   - Create: Yeni bir pending eşleşme daveti oluşturur.
//   - Accept: Daveti kabul eder (status → accepted).
type PairingStore interface {
	LatestAccepted(ctx context.Context, userID string) (*models.Pairing, error)
	Create(ctx context.Context, userID, partnerID string) (*models.Pairing, error)
	Accept(ctx context.Context, pairingID string) error
}
