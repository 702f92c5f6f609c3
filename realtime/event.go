// Package realtime, client ile relay arasındaki gerçek zamanlı protokolü tanımlar.
//
// Mimari:
// - Event: Tek wire formatı — op + raw payload + sequence
// - Client: gorilla/websocket üzerinden relay'e bağlanan taraf
// - Channel: chat çekirdeğinin tükettiği soyut kanal interface'i
//
// Payload'lar "tagged union" olarak modellenir: her op'un bilinen, tipli bir
// payload'ı vardır ve subscription sınırında Decode* fonksiyonları ile
// doğrulanarak çözülür. Çekirdek mantığa asla ham/any-tipli veri sızmaz —
// bozuk bir payload daha sınırda reddedilir.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akinalp/ikimiz/models"
)

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "typing", "message_insert" vb.
// Data: Op'a özgü payload — decode edilmeden RawMessage olarak taşınır.
// Seq (sequence number): Relay'in her outbound event'e verdiği artan sayı.
// Client eksik event tespit etmek için seq'i takip edebilir.
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Operation sabitleri.
//
// Client → Relay:
const (
	OpHeartbeat    = "heartbeat"     // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali
	OpTrack        = "track"         // Presence: bu bağlantıyı roster'a kaydet
	OpUntrack      = "untrack"       // Presence: roster'dan çık
	OpStoreRequest = "store_request" // Store mutasyon/sorgu isteği (request/reply)
)

// Relay → Client:
const (
	OpHeartbeatAck  = "heartbeat_ack"  // Heartbeat'e yanıt — "seni duydum"
	OpSubscribed    = "subscribed"     // Bağlantı kuruldu — ilk roster snapshot'ı taşır
	OpMessageInsert = "message_insert" // Change feed: yeni mesaj satırı yazıldı
	OpMessageUpdate = "message_update" // Change feed: mesaj satırı güncellendi (ör. okundu)
	OpPresenceState = "presence_state" // Roster değişti (sync/join/leave)
	OpStoreReply    = "store_reply"    // Store isteğinin yanıtı
)

// Her iki yönde kullanılan op'lar:
const (
	// OpTyping: Client→Relay "ben yazıyorum/bıraktım"; Relay→Client
	// "eşin yazıyor/bıraktı". Hiçbir zaman persist edilmez — broadcast-only.
	OpTyping = "typing"
)

// PresencePayload.Kind değerleri.
const (
	PresenceSync  = "sync"  // Tam roster snapshot'ı (subscribe/track sonrası)
	PresenceJoin  = "join"  // Bir kimlik roster'a katıldı
	PresenceLeave = "leave" // Bir kimliğin bir bağlantısı ayrıldı
)

// TypingPayload, typing event'inin payload'ı.
// SenderID relay tarafından doldurulur — client kendi kimliğini beyan edemez.
type TypingPayload struct {
	SenderID string `json:"sender_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// PresencePayload, roster değişikliği payload'ı.
//
// Roster: kimlik → o kimliğin kaç AÇIK, TAKİPLİ bağlantısı olduğu.
// Aynı kullanıcının birden fazla sekmesi olabilir — bir sekme kapanınca
// diğeri açık kaldığı sürece kimlik roster'da kalır (count >= 1).
type PresencePayload struct {
	Kind   string         `json:"kind"`
	UserID string         `json:"user_id,omitempty"` // join/leave'de değişen kimlik
	Roster map[string]int `json:"roster"`
}

// StoreRequestKind değerleri.
const (
	StoreKindInsert      = "insert"
	StoreKindCountUnread = "count_unread"
	StoreKindListUnread  = "list_unread"
	StoreKindMarkRead    = "mark_read"
	StoreKindListByIDs   = "list_by_ids"
	StoreKindListBetween = "list_between"
)

// StoreRequest, client'ın relay üzerinden yaptığı store isteği.
// ReqID client üretir; relay aynı ReqID ile StoreReply döner.
type StoreRequest struct {
	ReqID      string          `json:"req_id"`
	Kind       string          `json:"kind"`
	Message    *models.Message `json:"message,omitempty"`     // insert
	ReceiverID string          `json:"receiver_id,omitempty"` // count_unread / list_unread
	SenderID   string          `json:"sender_id,omitempty"`
	IDs        []string        `json:"ids,omitempty"`     // mark_read / list_by_ids
	ReadAt     *time.Time      `json:"read_at,omitempty"` // mark_read
	UserA      string          `json:"user_a,omitempty"`  // list_between
	UserB      string          `json:"user_b,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// StoreReply, bir StoreRequest'in yanıtı.
// Error doluysa istek başarısızdır — diğer alanlar yoksayılır.
type StoreReply struct {
	ReqID    string           `json:"req_id"`
	Error    string           `json:"error,omitempty"`
	Message  *models.Message  `json:"message,omitempty"`
	Count    int              `json:"count,omitempty"`
	IDs      []string         `json:"ids,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
}

// NewEvent, tipli bir payload'ı Event'e paketler.
func NewEvent(op string, payload any) (Event, error) {
	if payload == nil {
		return Event{Op: op}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}
	return Event{Op: op, Data: data}, nil
}

// DecodeTyping, typing payload'ını çözer ve doğrular.
func DecodeTyping(ev Event) (TypingPayload, error) {
	var p TypingPayload
	if err := json.Unmarshal(ev.Data, &p); err != nil {
		return TypingPayload{}, fmt.Errorf("invalid typing payload: %w", err)
	}
	return p, nil
}

// DecodePresence, presence payload'ını çözer ve doğrular.
// Bilinmeyen kind reddedilir; nil roster boş map'e normalize edilir.
func DecodePresence(ev Event) (PresencePayload, error) {
	var p PresencePayload
	if err := json.Unmarshal(ev.Data, &p); err != nil {
		return PresencePayload{}, fmt.Errorf("invalid presence payload: %w", err)
	}
	switch p.Kind {
	case PresenceSync, PresenceJoin, PresenceLeave:
	default:
		return PresencePayload{}, fmt.Errorf("invalid presence kind: %q", p.Kind)
	}
	if p.Roster == nil {
		p.Roster = map[string]int{}
	}
	return p, nil
}

// DecodeMessage, change feed event'inin taşıdığı mesaj satırını çözer.
// Kimliksiz (id/sender/receiver eksik) satırlar sınırda reddedilir.
func DecodeMessage(ev Event) (models.Message, error) {
	var m models.Message
	if err := json.Unmarshal(ev.Data, &m); err != nil {
		return models.Message{}, fmt.Errorf("invalid message payload: %w", err)
	}
	if m.ID == "" || m.SenderID == "" || m.ReceiverID == "" {
		return models.Message{}, fmt.Errorf("message payload missing identity fields")
	}
	return m, nil
}

// DecodeStoreRequest, relay tarafında store isteğini çözer ve doğrular.
func DecodeStoreRequest(ev Event) (StoreRequest, error) {
	var req StoreRequest
	if err := json.Unmarshal(ev.Data, &req); err != nil {
		return StoreRequest{}, fmt.Errorf("invalid store request: %w", err)
	}
	if req.ReqID == "" {
		return StoreRequest{}, fmt.Errorf("store request missing req_id")
	}
	switch req.Kind {
	case StoreKindInsert, StoreKindCountUnread, StoreKindListUnread, StoreKindMarkRead,
		StoreKindListByIDs, StoreKindListBetween:
	default:
		return StoreRequest{}, fmt.Errorf("invalid store request kind: %q", req.Kind)
	}
	return req, nil
}

// DecodeStoreReply, client tarafında store yanıtını çözer.
func DecodeStoreReply(ev Event) (StoreReply, error) {
	var reply StoreReply
	if err := json.Unmarshal(ev.Data, &reply); err != nil {
		return StoreReply{}, fmt.Errorf("invalid store reply: %w", err)
	}
	if reply.ReqID == "" {
		return StoreReply{}, fmt.Errorf("store reply missing req_id")
	}
	return reply, nil
}
