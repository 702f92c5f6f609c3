// Package relay, eş-kanallarını barındıran referans backend'dir: WebSocket
// üzerinden presence roster'ı, typing sinyalleri, store request/reply ve
// message change feed'i sunar. realtime.Client'ın karşı ucudur.
package relay

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/akinalp/ikimiz/realtime"
)

// Hub, tüm eş-kanallarını yöneten merkezi yapıdır (Observer pattern).
//
// Teslim alanı kanal bazlıdır: her event sadece kendi kanalının üyelerine
// gider — iki eşin konuşması üçüncü bir bağlantıya asla sızmaz.
//
// Hub.Run() goroutine'i register/unregister channel'larından `select` ile
// okur; broadcast ve roster işlemleri mutex korumalı metodlarla doğrudan
// client goroutine'lerinden yürür.
type Hub struct {
	// channels: channelKey → kanal durumu (üye bağlantılar + presence roster).
	channels map[string]*channelState

	// mu: channels map'ini ve içindeki kanal durumlarını koruyan RWMutex.
	mu sync.RWMutex

	// register/unregister: Client giriş/çıkış sinyalleri.
	register   chan *client
	unregister chan *client

	// seq: Her outbound event'e verilen artan sayaç.
	seq atomic.Int64
}

// channelState, tek bir eş-kanalının anlık durumudur.
type channelState struct {
	// members: userID → o kimliğin bağlantı seti.
	// Bir kullanıcının birden fazla sekmesi olabilir — set gerekir.
	members map[string]map[*client]bool

	// roster: userID → kaç AÇIK, TAKİPLİ bağlantısı var.
	// Presence kimlik bazlıdır: count >= 1 olduğu sürece kimlik çevrimiçidir.
	// Bağlı ama track etmemiş bağlantılar roster'da görünmez.
	roster map[string]int
}

// NewHub, yeni bir Hub oluşturur.
func NewHub() *Hub {
	return &Hub{
		channels:   make(map[string]*channelState),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// addClient, yeni bir bağlantıyı kanalına ekler.
func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[c.channelKey]
	if !ok {
		ch = &channelState{
			members: make(map[string]map[*client]bool),
			roster:  make(map[string]int),
		}
		h.channels[c.channelKey] = ch
	}
	if _, ok := ch.members[c.userID]; !ok {
		ch.members[c.userID] = make(map[*client]bool)
	}
	ch.members[c.userID][c] = true

	log.Printf("[relay] client connected: user=%s channel=%s (connections for user: %d)",
		c.userID, c.channelKey, len(ch.members[c.userID]))
}

// removeClient, bir bağlantıyı kanalından çıkarır ve send channel'ını kapatır.
// Bağlantı takipliyse roster da düşürülür ve presence leave yayınlanır.
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()

	ch, ok := h.channels[c.channelKey]
	if !ok {
		h.mu.Unlock()
		return
	}
	conns, ok := ch.members[c.userID]
	if !ok || !conns[c] {
		h.mu.Unlock()
		return
	}

	delete(conns, c)
	close(c.send)

	wasTracked := c.tracked.Swap(false)
	if wasTracked && ch.roster[c.userID] > 0 {
		ch.roster[c.userID]--
		if ch.roster[c.userID] == 0 {
			delete(ch.roster, c.userID)
		}
	}

	if len(conns) == 0 {
		delete(ch.members, c.userID)
		log.Printf("[relay] user fully disconnected: user=%s channel=%s", c.userID, c.channelKey)
	}
	// Boş kanal bırakılmaz — son üye gidince kanal durumu da gider.
	if len(ch.members) == 0 {
		delete(h.channels, c.channelKey)
	}
	h.mu.Unlock()

	if wasTracked {
		h.broadcastPresence(c.channelKey, realtime.PresenceLeave, c.userID)
	}
}

// track, bir bağlantıyı kanal roster'ına kaydeder ve join yayınlar.
// Zaten takipliyse no-op — aynı bağlantı roster'ı iki kez şişiremez.
func (h *Hub) track(c *client) {
	if c.tracked.Swap(true) {
		return
	}

	h.mu.Lock()
	if ch, ok := h.channels[c.channelKey]; ok {
		ch.roster[c.userID]++
	}
	h.mu.Unlock()

	h.broadcastPresence(c.channelKey, realtime.PresenceJoin, c.userID)
}

// untrack, bir bağlantıyı roster'dan çıkarır ve leave yayınlar.
func (h *Hub) untrack(c *client) {
	if !c.tracked.Swap(false) {
		return
	}

	h.mu.Lock()
	if ch, ok := h.channels[c.channelKey]; ok && ch.roster[c.userID] > 0 {
		ch.roster[c.userID]--
		if ch.roster[c.userID] == 0 {
			delete(ch.roster, c.userID)
		}
	}
	h.mu.Unlock()

	h.broadcastPresence(c.channelKey, realtime.PresenceLeave, c.userID)
}

// rosterSnapshot, kanalın güncel roster kopyasını döner.
func (h *Hub) rosterSnapshot(channelKey string) map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make(map[string]int)
	if ch, ok := h.channels[channelKey]; ok {
		for userID, count := range ch.roster {
			snapshot[userID] = count
		}
	}
	return snapshot
}

// broadcastPresence, roster değişikliğini kanalın TÜM üyelerine yayınlar.
// Her payload tam roster snapshot'ı taşır — client'lar diff tutmaz.
func (h *Hub) broadcastPresence(channelKey, kind, userID string) {
	ev, err := realtime.NewEvent(realtime.OpPresenceState, realtime.PresencePayload{
		Kind:   kind,
		UserID: userID,
		Roster: h.rosterSnapshot(channelKey),
	})
	if err != nil {
		log.Printf("[relay] failed to build presence event: %v", err)
		return
	}
	h.broadcastToChannel(channelKey, ev, "")
}

// broadcastToChannel, bir event'i kanalın üyelerine gönderir.
// excludeUserID boş değilse o kimliğin bağlantıları atlanır (typing'de
// gönderenin kendi sekmelerine sinyal gitmez).
func (h *Hub) broadcastToChannel(channelKey string, ev realtime.Event, excludeUserID string) {
	ev.Seq = h.seq.Add(1)

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[relay] failed to marshal broadcast event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.channels[channelKey]
	if !ok {
		return
	}
	for userID, conns := range ch.members {
		if userID == excludeUserID {
			continue
		}
		for c := range conns {
			select {
			case c.send <- data:
			default:
				// Buffer dolu — bu client yavaş, kapat
				go func(slow *client) { h.unregister <- slow }(c)
			}
		}
	}
}

// sendToClient, bir event'i tek bir bağlantıya gönderir (store reply'ları
// sadece isteği yapan bağlantıya gider).
func (h *Hub) sendToClient(c *client, ev realtime.Event) {
	ev.Seq = h.seq.Add(1)

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[relay] failed to marshal event for user %s: %v", c.userID, err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("[relay] send buffer full for user %s, dropping connection", c.userID)
		h.unregister <- c
	}
}

// Shutdown, tüm bağlantıları kapatır (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.channels {
		for _, conns := range ch.members {
			for c := range conns {
				close(c.send)
			}
		}
	}
	h.channels = make(map[string]*channelState)
	log.Println("[relay] hub shut down, all connections closed")
}
