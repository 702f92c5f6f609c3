package chat

import (
	"context"
	"sync"
	"time"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/realtime"
)

// fakeChannel, realtime.Channel'ın test implementasyonu.
// Kayıtlı callback'leri dışarıdan tetiklemeye izin verir — relay'miş gibi.
type fakeChannel struct {
	mu              sync.Mutex
	onMessageChange func(kind realtime.MessageChangeKind, msg models.Message)
	onTyping        func(realtime.TypingPayload)
	onPresence      func(realtime.PresencePayload)

	typingSent   []bool
	trackCalls   int
	untrackCalls int

	sendTypingErr error
	trackErr      error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (f *fakeChannel) SendTyping(isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendTypingErr != nil {
		return f.sendTypingErr
	}
	f.typingSent = append(f.typingSent, isTyping)
	return nil
}

func (f *fakeChannel) Track() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return f.trackErr
	}
	f.trackCalls++
	return nil
}

func (f *fakeChannel) Untrack() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.untrackCalls++
	return nil
}

func (f *fakeChannel) OnMessageChange(fn func(kind realtime.MessageChangeKind, msg models.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessageChange = fn
}

func (f *fakeChannel) OnTyping(fn func(realtime.TypingPayload)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTyping = fn
}

func (f *fakeChannel) OnPresence(fn func(realtime.PresencePayload)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPresence = fn
}

func (f *fakeChannel) Close() error { return nil }

// emitMessage, change feed event'ini kayıtlı callback'e iletir.
func (f *fakeChannel) emitMessage(kind realtime.MessageChangeKind, msg models.Message) {
	f.mu.Lock()
	fn := f.onMessageChange
	f.mu.Unlock()
	if fn != nil {
		fn(kind, msg)
	}
}

func (f *fakeChannel) emitTyping(p realtime.TypingPayload) {
	f.mu.Lock()
	fn := f.onTyping
	f.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (f *fakeChannel) emitPresence(p realtime.PresencePayload) {
	f.mu.Lock()
	fn := f.onPresence
	f.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// fakeMessageStore, store.MessageStore'un test implementasyonu.
// Her operasyonun dönüşü alan bazında yapılandırılabilir.
type fakeMessageStore struct {
	mu sync.Mutex

	insertErr   error
	insertedIDs []string
	unreadCount int
	countErr    error
	unreadIDs   []string
	listErr     error
	markReadErr error
	markedIDs   []string
	markCalls   int
	history     []models.Message
	historyErr  error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Insert(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	stored := *msg
	stored.ID = "persisted-" + msg.ID
	stored.CreatedAt = time.Now().UTC()
	f.insertedIDs = append(f.insertedIDs, stored.ID)
	return &stored, nil
}

func (f *fakeMessageStore) CountUnread(_ context.Context, _, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.unreadCount, nil
}

func (f *fakeMessageStore) ListUnreadIDs(_ context.Context, _, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.unreadIDs, nil
}

func (f *fakeMessageStore) MarkRead(_ context.Context, ids []string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markCalls++
	f.markedIDs = append(f.markedIDs, ids...)
	return nil
}

func (f *fakeMessageStore) ListByIDs(_ context.Context, _ []string) ([]models.Message, error) {
	return []models.Message{}, nil
}

func (f *fakeMessageStore) ListBetween(_ context.Context, _, _ string, _ int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeMessageStore) markReadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markCalls
}
