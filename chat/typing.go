package chat

import (
	"sync"
	"time"

	"github.com/akinalp/ikimiz/realtime"
)

// DefaultTypingExpiry: Eşten "yazıyor" sinyali geldikten sonra, yenisi
// gelmezse göstergenin kendiliğinden sönme süresi. Karşı taraf yazmayı
// kesip sayfayı kapatsa bile gösterge sonsuza dek asılı kalmaz.
const DefaultTypingExpiry = 3 * time.Second

// TypingIndicator, "eşin yazıyor..." göstergesinin iki yönünü yönetir:
// kullanıcının kendi typing sinyalini yayınlamak ve eşin sinyalini
// süre aşımıyla birlikte takip etmek.
//
// Süre aşımı tek timer ile yürür: her yeni "yazıyor" sinyali timer'ı
// SIFIRLAR, yenisini yığmaz. Sinyal yağmurunda bile tek bir sönme anı
// vardır — son sinyalden expiry kadar sonra.
type TypingIndicator struct {
	ch        realtime.Channel
	partnerID string
	expiry    time.Duration

	mu            sync.Mutex
	partnerTyping bool
	timer         *time.Timer
	onChange      func(isTyping bool)
	closed        bool
}

// NewTypingIndicator, göstergeyi oluşturur ve kanalın typing feed'ine
// bağlanır. expiry <= 0 ise DefaultTypingExpiry kullanılır.
func NewTypingIndicator(ch realtime.Channel, partnerID string, expiry time.Duration) *TypingIndicator {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	t := &TypingIndicator{
		ch:        ch,
		partnerID: partnerID,
		expiry:    expiry,
	}
	ch.OnTyping(t.handle)
	return t
}

// Send, kullanıcının typing durumunu yayınlar. Fire-and-forget:
// sinyal kaybolursa kaybolur, compose akışı bu yüzden bozulmaz —
// hata sadece çağırana bilgi olarak döner.
func (t *TypingIndicator) Send(isTyping bool) error {
	return t.ch.SendTyping(isTyping)
}

// PartnerTyping, eşin şu an yazıyor görünüp görünmediğini döner.
func (t *TypingIndicator) PartnerTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.partnerTyping
}

// OnChange, gösterge durumu değiştiğinde çağrılacak callback'i kaydeder.
func (t *TypingIndicator) OnChange(fn func(isTyping bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Close, göstergeyi kapatır: timer durur, sonraki sinyaller yok sayılır.
// Idempotent'tir; Close'dan sonra hiçbir callback tetiklenmez.
func (t *TypingIndicator) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// handle, kanal feed'inden gelen typing sinyalini işler.
// Sadece eşin sinyali dikkate alınır — relay loopback yapsa bile
// kullanıcının kendi sinyali göstergeyi açamaz.
func (t *TypingIndicator) handle(p realtime.TypingPayload) {
	if p.SenderID != t.partnerID {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if !p.IsTyping {
		// Açık "bıraktım" sinyali süre aşımını beklemez.
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.setLocked(false)
		return
	}

	t.setLocked(true)
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.expiry, t.expire)
}

// expire, son sinyalden expiry süre sonra göstergeyi söndürür.
func (t *TypingIndicator) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.timer = nil
	t.setLocked(false)
}

// setLocked, mu tutulurken çağrılmalıdır.
func (t *TypingIndicator) setLocked(typing bool) {
	if t.partnerTyping == typing {
		return
	}
	t.partnerTyping = typing
	if t.onChange != nil {
		t.onChange(typing)
	}
}
