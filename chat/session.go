package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/akinalp/ikimiz/auth"
	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/realtime"
	"github.com/akinalp/ikimiz/store"
)

// defaultHistoryLimit: Açılışta store'dan çekilen mesaj sayısı.
const defaultHistoryLimit = 50

// Session, tek bir kullanıcının eşiyle olan aktif chat oturumudur.
// Mesaj listesi, optimistic gönderim, read-receipt commit'i ve unread
// sayacının kompozisyon noktasıdır.
//
// Kanalın tek message-change slot'u Session'a aittir: feed event'leri
// önce yerel listeye uygulanır, sonra sayaca iletilir. Böylece liste ile
// rozet hiçbir zaman farklı event akışları görmez.
//
// Gönderim protokolü (optimistic send/reconcile):
//  1. Validasyon geçen içerik "temp-" ID'li placeholder olarak listeye
//     anında eklenir — kullanıcı ağ gidiş-dönüşünü beklemez.
//  2. Store insert başarılıysa placeholder, store'un atadığı kalıcı
//     satırla YERİNDE değiştirilir (sıra korunur).
//  3. Başarısızsa placeholder listeden kaldırılır, içerik
//     LastFailedContent'te saklanır ve OnSendFailure tetiklenir.
//     Placeholder asla askıda kalmaz.
//
// Aynı anda tek gönderim uçuşta olabilir: ikinci Send çağrısı
// ErrSendInFlight alır. Eşler art arda kısa mesajlar yazar; sıralamayı
// korumanın en basit garantisi budur.
type Session struct {
	messages store.MessageStore
	identity Identity
	unread   *UnreadCounter

	mu            sync.Mutex
	list          []models.Message
	inFlight      bool
	lastFailed    string
	onListChange  func()
	onSendFailure func(err error)
	closed        bool
}

// NewSession, oturumu oluşturur ve kanalın change feed'ine bağlanır.
// unread nil olabilir — sayaçsız oturum (ör. testler) desteklenir.
func NewSession(messages store.MessageStore, ch realtime.Channel, identity Identity, unread *UnreadCounter) *Session {
	s := &Session{
		messages: messages,
		identity: identity,
		unread:   unread,
		list:     []models.Message{},
	}
	ch.OnMessageChange(s.handleChange)
	return s
}

// LoadHistory, mesaj geçmişini store'dan çeker ve listeyi değiştirir.
// limit <= 0 ise varsayılan kullanılır. Store en yeniden eskiye döner;
// liste kronolojik tutulur, burada ters çevrilir.
func (s *Session) LoadHistory(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	msgs, err := s.messages.ListBetween(ctx, s.identity.SelfID, s.identity.PartnerID, limit)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}

	ordered := make([]models.Message, len(msgs))
	for i, m := range msgs {
		ordered[len(msgs)-1-i] = m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkg.ErrChannelClosed
	}
	s.list = ordered
	s.notifyLocked()
	return nil
}

// Send, bir mesajı optimistic protokolle gönderir.
//
// Guard sırası: kapalı oturum → içerik validasyonu → alıcı kimliği →
// uçuştaki gönderim. Guard'lardan biri düşerse listeye hiçbir şey
// eklenmemiş olur.
func (s *Session) Send(ctx context.Context, content string) (*models.Message, error) {
	req := models.SendMessageRequest{Content: content}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	if !auth.ValidIdentityFormat(s.identity.PartnerID) {
		return nil, fmt.Errorf("%w: no valid chat partner", pkg.ErrNoPartner)
	}

	placeholder := models.Message{
		ID:         models.NewPlaceholderID(),
		SenderID:   s.identity.SelfID,
		ReceiverID: s.identity.PartnerID,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, pkg.ErrChannelClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, pkg.ErrSendInFlight
	}
	s.inFlight = true
	s.list = append(s.list, placeholder)
	s.notifyLocked()
	s.mu.Unlock()

	// Insert mutex dışında yürür — ağ gidiş-dönüşü feed işlemeyi bloklamaz.
	confirmed, err := s.messages.Insert(ctx, &placeholder)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		// Rollback: placeholder kaldırılır, içerik kurtarma için saklanır.
		s.removeLocked(placeholder.ID)
		s.lastFailed = req.Content
		s.notifyLocked()
		if s.onSendFailure != nil && !s.closed {
			s.onSendFailure(err)
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	// Reconcile: feed echo'su Insert yanıtından önce gelmiş ve kalıcı
	// satırı zaten eklemiş olabilir — o durumda placeholder sadece silinir.
	if s.indexOfLocked(confirmed.ID) >= 0 {
		s.removeLocked(placeholder.ID)
	} else if i := s.indexOfLocked(placeholder.ID); i >= 0 {
		s.list[i] = *confirmed
	} else {
		s.list = append(s.list, *confirmed)
	}
	s.lastFailed = ""
	s.notifyLocked()
	return confirmed, nil
}

// MarkRead, eşten gelen tüm okunmamış mesajları okundu olarak commit'ler.
// Kullanıcı konuşma görünümünü açtığında çağrılır.
//
// Idempotent'tir: okunmamış mesaj yoksa store'a yazma yapılmaz ama sayaç
// yine de sıfırlanır — rozet ile görünüm asla çelişmez. Yazma yapıldığında
// sayaç store yanıtı beklenmeden, optimistic sıfırlanır.
func (s *Session) MarkRead(ctx context.Context) error {
	ids, err := s.messages.ListUnreadIDs(ctx, s.identity.SelfID, s.identity.PartnerID)
	if err != nil {
		return fmt.Errorf("failed to list unread messages: %w", err)
	}

	if len(ids) == 0 {
		if s.unread != nil {
			s.unread.Reset()
		}
		return nil
	}

	readAt := time.Now().UTC()
	if err := s.messages.MarkRead(ctx, ids, readAt); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	if s.unread != nil {
		s.unread.Reset()
	}
	s.applyReadLocally(ids, readAt)
	return nil
}

// Messages, mesaj listesinin kopyasını döner. Dönen slice çağıranındır —
// oturumun iç durumuna alias etmez.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.list))
	copy(out, s.list)
	return out
}

// LastFailedContent, son başarısız gönderimin içeriğini döner.
// Frontend bunu compose alanına geri koyarak kullanıcının yazdığını
// kaybetmemesini sağlar. Başarılı gönderim değeri temizler.
func (s *Session) LastFailedContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailed
}

// OnListChange, mesaj listesi her değiştiğinde çağrılacak callback'i kaydeder.
func (s *Session) OnListChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onListChange = fn
}

// OnSendFailure, gönderim rollback'inde çağrılacak callback'i kaydeder.
func (s *Session) OnSendFailure(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSendFailure = fn
}

// Close, oturumu kapatır. Idempotent'tir; sonrasında feed event'leri
// yok sayılır ve hiçbir callback tetiklenmez.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.unread != nil {
		s.unread.Close()
	}
}

// handleChange, kanal change feed'ini yerel listeye ve sayaca uygular.
func (s *Session) handleChange(kind realtime.MessageChangeKind, msg models.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch kind {
	case realtime.MessageInserted:
		// Kullanıcının kendi insert'inin echo'su reconcile ile çakışabilir:
		// kalıcı ID zaten listedeyse event yoksayılır.
		if s.indexOfLocked(msg.ID) < 0 {
			s.list = append(s.list, msg)
			s.notifyLocked()
		}
	case realtime.MessageUpdated:
		if i := s.indexOfLocked(msg.ID); i >= 0 {
			s.list[i] = msg
			s.notifyLocked()
		}
	default:
		log.Printf("[chat] unknown message change kind: %s", kind)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.unread != nil {
		s.unread.HandleChange(kind, msg)
	}
}

// applyReadLocally, okundu commit'ini yerel listeye yansıtır —
// feed echo'su gecikse bile görünüm anında günceldir.
func (s *Session) applyReadLocally(ids []string, readAt time.Time) {
	marked := make(map[string]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	changed := false
	for i := range s.list {
		if marked[s.list[i].ID] && !s.list[i].IsRead {
			s.list[i].IsRead = true
			at := readAt
			s.list[i].ReadAt = &at
			changed = true
		}
	}
	if changed {
		s.notifyLocked()
	}
}

// indexOfLocked, mu tutulurken çağrılmalıdır.
func (s *Session) indexOfLocked(id string) int {
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

// removeLocked, mu tutulurken çağrılmalıdır.
func (s *Session) removeLocked(id string) {
	if i := s.indexOfLocked(id); i >= 0 {
		s.list = append(s.list[:i], s.list[i+1:]...)
	}
}

// notifyLocked, mu tutulurken çağrılmalıdır.
func (s *Session) notifyLocked() {
	if s.onListChange != nil && !s.closed {
		s.onListChange()
	}
}
