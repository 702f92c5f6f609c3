package realtime

import "github.com/akinalp/ikimiz/models"

// MessageChangeKind, change feed event türü.
type MessageChangeKind string

const (
	MessageInserted MessageChangeKind = "insert"
	MessageUpdated  MessageChangeKind = "update"
)

// Channel, chat çekirdeğinin bir eş-kanalından beklediği yetenekler.
//
// Çekirdek (chat paketi) bu interface'e bağımlıdır — concrete Client'a değil.
// Test'lerde fake channel, production'da gorilla/websocket Client kullanılır.
//
// Teardown sözleşmesi: Close idempotent'tir ve Close'dan sonra hiçbir
// callback tetiklenmez. Chat view unmount olduğunda veya eş değiştiğinde
// çağrılır — sızdırılmış listener kalmaz.
type Channel interface {
	// SendTyping, eşe geçici bir typing sinyali yayınlar.
	// Fire-and-forget: caller acknowledgment beklemez.
	SendTyping(isTyping bool) error

	// Track / Untrack, presence roster üyeliğini yönetir.
	Track() error
	Untrack() error

	// Callback kayıtları. Her biri en fazla bir callback tutar —
	// yeniden çağrı öncekinin yerine geçer. Callback'ler change feed'in
	// decode sınırından geçmiş, doğrulanmış payload'lar alır.
	OnMessageChange(fn func(kind MessageChangeKind, msg models.Message))
	OnTyping(fn func(TypingPayload))
	OnPresence(fn func(PresencePayload))

	// Close, kanalı kapatır. Idempotent.
	Close() error
}
