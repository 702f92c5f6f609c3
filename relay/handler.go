package relay

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/ikimiz/auth"
	"github.com/akinalp/ikimiz/chat"
	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/pkg/ratelimit"
	"github.com/akinalp/ikimiz/realtime"
	"github.com/akinalp/ikimiz/store"
)

// upgrader, HTTP bağlantısını WebSocket bağlantısına yükseltir.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin: Production'da domain kontrolü yapılmalı.
	// Şimdilik tüm origin'lere izin veriyoruz (development için).
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub       *Hub
	messages  store.MessageStore
	pairings  store.PairingStore
	limiter   *ratelimit.Limiter
	jwtSecret []byte
}

// NewHandler, yeni bir relay handler oluşturur.
//
// Insert rate limit'i tüm bağlantılar arasında paylaşılır — kullanıcı
// ikinci bir sekme açarak limiti katlayamaz. 5 saniyede 10 mesaj iki kişilik
// bir sohbet için fazlasıyla cömerttir.
func NewHandler(hub *Hub, messages store.MessageStore, pairings store.PairingStore, jwtSecret []byte) *Handler {
	return &Handler{
		hub:       hub,
		messages:  messages,
		pairings:  pairings,
		limiter:   ratelimit.New(10, 5*time.Second, 15*time.Second),
		jwtSecret: jwtSecret,
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı
// kanalına kaydeder.
//
// WebSocket handshake'inde HTTP header göndermek tarayıcıda zordur —
// token ve kanal anahtarı query parameter olarak gelir:
//
//	ws://server/ws?token=JWT&channel=idA:idB
//
// Flow:
// 1. Token'ı doğrula → userID
// 2. Kanal anahtarını doğrula: kullanıcı katılımcı mı, eşleşme accepted mı
// 3. HTTP → WebSocket upgrade
// 4. Client oluştur, hub'a kaydet, subscribed snapshot'ı gönder
// 5. Pump goroutine'lerini başlat
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := auth.ParseIdentity(h.jwtSecret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	channelKey := r.URL.Query().Get("channel")
	if err := h.authorizeChannel(r, userID, channelKey); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, pkg.ErrBadRequest) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[relay] upgrade failed for user %s: %v", userID, err)
		return
	}

	c := &client{
		hub:        h.hub,
		conn:       conn,
		messages:   h.messages,
		limiter:    h.limiter,
		userID:     userID,
		channelKey: channelKey,
		send:       make(chan []byte, sendBufferSize),
	}

	h.hub.register <- c

	// İlk snapshot: bağlantı kurulduğu anki roster. Client, eşinin
	// çevrimiçi olup olmadığını join/leave beklemeden öğrenir.
	sub, err := realtime.NewEvent(realtime.OpSubscribed, realtime.PresencePayload{
		Kind:   realtime.PresenceSync,
		Roster: h.hub.rosterSnapshot(channelKey),
	})
	if err != nil {
		log.Printf("[relay] failed to build subscribed event: %v", err)
	} else {
		h.hub.sendToClient(c, sub)
	}

	// writePump ayrı goroutine'de; readPump mevcut goroutine'de çalışmalı —
	// aksi halde HTTP handler hemen döner. readPump bağlantı kapanana kadar bloklar.
	go c.writePump()
	c.readPump()
}

// authorizeChannel, kullanıcının istenen kanala bağlanma hakkını doğrular.
//
// İki koşul: kullanıcı kanal anahtarının katılımcılarından biri olmalı ve
// kanalın diğer katılımcısıyla ACCEPTED durumda bir eşleşmesi olmalı.
// Eşleşme sona erdiyse eski kanal anahtarı da geçersizleşir.
func (h *Handler) authorizeChannel(r *http.Request, userID, channelKey string) error {
	a, b, ok := chat.ParseChannelKey(channelKey)
	if !ok {
		return pkg.ErrBadRequest
	}
	if a != userID && b != userID {
		return pkg.ErrForbidden
	}

	other := a
	if other == userID {
		other = b
	}

	p, err := h.pairings.LatestAccepted(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return pkg.ErrForbidden
		}
		return pkg.ErrInternal
	}
	if p.OtherUser(userID) != other {
		return pkg.ErrForbidden
	}
	return nil
}
