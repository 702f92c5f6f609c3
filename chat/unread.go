package chat

import (
	"context"
	"log"
	"sync"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/realtime"
	"github.com/akinalp/ikimiz/store"
)

// UnreadCounter, eşten gelen okunmamış mesajların rozet sayacını tutar.
//
// İki besleme noktası vardır:
// - Seed: store'dan otoritatif başlangıç değeri (bir kez, açılışta)
// - HandleChange: change feed'den artımlı güncellemeler (insert → +1,
//   okundu flip'i → -1)
//
// Sayaç asla negatife düşmez. Feed ile seed arasındaki yarışlarda sayaç
// geçici olarak sapabilir — bir sonraki Seed/Reset düzeltir; rozet
// doğruluğu uğruna chat bloklanmaz.
type UnreadCounter struct {
	messages  store.MessageStore
	selfID    string
	partnerID string

	mu       sync.Mutex
	count    int
	onChange func(count int)
	closed   bool
}

// NewUnreadCounter, (self, partner) çifti için sayaç oluşturur.
// Sayaç sadece eşten gelen mesajları sayar — kullanıcının kendi
// gönderdikleri rozeti etkilemez.
func NewUnreadCounter(messages store.MessageStore, selfID, partnerID string) *UnreadCounter {
	return &UnreadCounter{
		messages:  messages,
		selfID:    selfID,
		partnerID: partnerID,
	}
}

// Seed, sayacı store'daki gerçek değerle başlatır.
//
// Sorgu başarısız olursa sayaç 0'da kalır ve hata sadece loglanır:
// rozet kozmetiktir, yüzünden chat açılışı engellenmez.
func (u *UnreadCounter) Seed(ctx context.Context) {
	n, err := u.messages.CountUnread(ctx, u.selfID, u.partnerID)
	if err != nil {
		log.Printf("[chat] unread seed failed, defaulting to 0: %v", err)
		return
	}
	u.set(n)
}

// HandleChange, change feed event'ini sayaca uygular.
//
// insert: eşten gelen okunmamış mesaj → +1. Kullanıcının kendi mesajları
// ve zaten okunmuş satırlar sayılmaz.
// update: eşten gelen bir mesaj okundu'ya flip'lendiyse → -1 (alt sınır 0).
func (u *UnreadCounter) HandleChange(kind realtime.MessageChangeKind, msg models.Message) {
	if msg.SenderID != u.partnerID || msg.ReceiverID != u.selfID {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}

	switch kind {
	case realtime.MessageInserted:
		if !msg.IsRead {
			u.setLocked(u.count + 1)
		}
	case realtime.MessageUpdated:
		if msg.IsRead && u.count > 0 {
			u.setLocked(u.count - 1)
		}
	}
}

// Count, güncel rozet değerini döner.
func (u *UnreadCounter) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// Reset, sayacı sıfırlar. Kullanıcı konuşmayı görüntüleyip mesajları
// okundu işaretlediğinde çağrılır — store yanıtı beklenmeden, optimistic.
func (u *UnreadCounter) Reset() {
	u.set(0)
}

// OnChange, sayaç her değiştiğinde çağrılacak callback'i kaydeder.
func (u *UnreadCounter) OnChange(fn func(count int)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onChange = fn
}

// Close, sayacı kapatır. Idempotent'tir; sonrasında hiçbir callback
// tetiklenmez ve feed event'leri yok sayılır.
func (u *UnreadCounter) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
}

func (u *UnreadCounter) set(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.setLocked(n)
}

// setLocked, mu tutulurken çağrılmalıdır.
func (u *UnreadCounter) setLocked(n int) {
	if n < 0 {
		n = 0
	}
	if n == u.count {
		return
	}
	u.count = n
	if u.onChange != nil {
		u.onChange(n)
	}
}
