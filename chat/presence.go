package chat

import (
	"log"
	"sync"

	"github.com/akinalp/ikimiz/realtime"
)

// PresenceTracker, eşin çevrimiçi durumunu kanal roster'ı üzerinden izler.
//
// Roster kimlik bazlıdır, bağlantı bazlı değil: eşin birden fazla açık
// sekmesi olabilir. Kimlik, en az bir takipli bağlantısı olduğu sürece
// çevrimiçi sayılır — bir sekme kapanınca diğeri durumu taşır.
type PresenceTracker struct {
	ch        realtime.Channel
	partnerID string

	mu       sync.Mutex
	online   bool
	joined   bool
	onChange func(online bool)
	closed   bool
}

// NewPresenceTracker, izleyiciyi oluşturur ve kanalın presence feed'ine
// bağlanır. Takip Join çağrılana kadar başlamaz.
func NewPresenceTracker(ch realtime.Channel, partnerID string) *PresenceTracker {
	p := &PresenceTracker{
		ch:        ch,
		partnerID: partnerID,
	}
	ch.OnPresence(p.handle)
	return p
}

// Join, bu oturumu kanal roster'ına kaydeder.
//
// Track başarısız olursa izleyici "çevrimdışı" varsayımıyla devam eder:
// presence kozmetik bir özelliktir, başarısızlığı chat'in geri kalanını
// düşürmez. Hata yine de çağırana döner.
func (p *PresenceTracker) Join() error {
	p.mu.Lock()
	if p.closed || p.joined {
		p.mu.Unlock()
		return nil
	}
	p.joined = true
	p.mu.Unlock()

	if err := p.ch.Track(); err != nil {
		log.Printf("[chat] presence track failed, partner will appear offline: %v", err)
		return err
	}
	return nil
}

// Leave, oturumu roster'dan çıkarır. Idempotent — Join'siz veya tekrarlı
// çağrı no-op'tur. Yerel durum anında "çevrimdışı"ya düşer.
func (p *PresenceTracker) Leave() {
	p.mu.Lock()
	if p.closed || !p.joined {
		p.mu.Unlock()
		return
	}
	p.joined = false
	p.setLocked(false)
	p.mu.Unlock()

	if err := p.ch.Untrack(); err != nil {
		log.Printf("[chat] presence untrack failed: %v", err)
	}
}

// PartnerOnline, eşin şu an çevrimiçi görünüp görünmediğini döner.
func (p *PresenceTracker) PartnerOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// OnChange, eşin durumu değiştiğinde çağrılacak callback'i kaydeder.
func (p *PresenceTracker) OnChange(fn func(online bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Close, izleyiciyi kapatır ve roster'dan çıkar. Idempotent'tir;
// sonrasında hiçbir callback tetiklenmez.
func (p *PresenceTracker) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	wasJoined := p.joined
	p.joined = false
	p.online = false
	p.mu.Unlock()

	if wasJoined {
		if err := p.ch.Untrack(); err != nil {
			log.Printf("[chat] presence untrack failed: %v", err)
		}
	}
}

// handle, roster snapshot'larını işler. Her payload tam roster taşır —
// eşin durumu artımlı diff'lerden değil, snapshot'tan okunur.
func (p *PresenceTracker) handle(payload realtime.PresencePayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.setLocked(payload.Roster[p.partnerID] >= 1)
}

// setLocked, mu tutulurken çağrılmalıdır.
func (p *PresenceTracker) setLocked(online bool) {
	if p.online == online {
		return
	}
	p.online = online
	if p.onChange != nil {
		p.onChange(online)
	}
}
