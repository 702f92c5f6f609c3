// Package store, chat çekirdeğinin dış dünyadan beklediği veri yeteneklerini
// (capability contract) tanımlar ve SQLite implementasyonlarını içerir.
//
// Chat çekirdeği (chat paketi) bu interface'lere bağımlıdır, concrete
// struct'lara değil. Böylece:
// 1. Çekirdek test edilirken fake store kullanılabilir
// 2. Backing store değişse bile (hosted Postgres, başka bir relay) çekirdek etkilenmez
package store

import (
	"context"
	"time"

	"github.com/akinalp/ikimiz/models"
)

// MessageStore, mesaj store'unun chat çekirdeğine sunduğu yetenekler.
//
//   - Insert: Kalıcı yazma — store ID ve zaman damgası atar, yazılan satırı döner.
//     Optimistic send protokolü dönen mesajla placeholder'ı reconcile eder.
//   - CountUnread: Tek seferlik sayım sorgusu (unread counter seed'i).
//   - ListUnreadIDs: Okunmamış mesaj ID'lerini toplar (read-receipt batch'i için).
//   - MarkRead: Verilen ID kümesini tek bir bulk update ile okundu işaretler.
//     Boş küme no-op'tur — ikinci kez çağrılan markRead hiçbir update yayınlamaz.
//   - ListByIDs: Verilen ID kümesinin güncel satırlarını getirir. Relay,
//     bulk mark-read sonrası change feed'e yayınlayacağı update event'lerini
//     bu sorguyla toplar.
//   - ListBetween: İki katılımcı arasındaki mesajları getirir (her iki yön),
//     en yeniden eskiye.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) (*models.Message, error)
	CountUnread(ctx context.Context, receiverID, senderID string) (int, error)
	ListUnreadIDs(ctx context.Context, receiverID, senderID string) ([]string, error)
	MarkRead(ctx context.Context, ids []string, readAt time.Time) error
	ListByIDs(ctx context.Context, ids []string) ([]models.Message, error)
	ListBetween(ctx context.Context, userA, userB string, limit int) ([]models.Message, error)
}
