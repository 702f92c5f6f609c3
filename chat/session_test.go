package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/realtime"
)

func testIdentity() Identity {
	return Identity{SelfID: testSelf, PartnerID: testPartner}
}

// blockingStore, Insert'i release channel'ı kapanana kadar bloklar —
// gönderim uçuştayken session durumunu gözlemlemek için.
type blockingStore struct {
	*fakeMessageStore
	release chan struct{}
}

func (b *blockingStore) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	<-b.release
	return b.fakeMessageStore.Insert(ctx, msg)
}

func TestSession_Send(t *testing.T) {
	t.Run("successful send reconciles placeholder in place", func(t *testing.T) {
		ms := newFakeMessageStore()
		s := NewSession(ms, newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		confirmed, err := s.Send(context.Background(), "  merhaba  ")
		require.NoError(t, err)

		msgs := s.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, confirmed.ID, msgs[0].ID)
		assert.False(t, msgs[0].IsPlaceholder())
		assert.Equal(t, "merhaba", msgs[0].Content) // kırpılmış içerik
		assert.Empty(t, s.LastFailedContent())
	})

	t.Run("placeholder is visible while send is in flight", func(t *testing.T) {
		bs := &blockingStore{fakeMessageStore: newFakeMessageStore(), release: make(chan struct{})}
		s := NewSession(bs, newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.Send(context.Background(), "bekleyen mesaj")
		}()

		waitFor(t, time.Second, func() bool { return len(s.Messages()) == 1 })
		msgs := s.Messages()
		assert.True(t, msgs[0].IsPlaceholder())
		assert.Equal(t, "bekleyen mesaj", msgs[0].Content)

		close(bs.release)
		<-done

		msgs = s.Messages()
		require.Len(t, msgs, 1)
		assert.False(t, msgs[0].IsPlaceholder())
	})

	t.Run("second send while in flight is rejected", func(t *testing.T) {
		bs := &blockingStore{fakeMessageStore: newFakeMessageStore(), release: make(chan struct{})}
		s := NewSession(bs, newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.Send(context.Background(), "ilk")
		}()
		waitFor(t, time.Second, func() bool { return len(s.Messages()) == 1 })

		_, err := s.Send(context.Background(), "ikinci")
		assert.ErrorIs(t, err, pkg.ErrSendInFlight)

		close(bs.release)
		<-done
	})

	t.Run("failed send rolls back the placeholder", func(t *testing.T) {
		ms := newFakeMessageStore()
		ms.insertErr = errors.New("store rejected the write")
		s := NewSession(ms, newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		var failureErr error
		s.OnSendFailure(func(err error) { failureErr = err })

		_, err := s.Send(context.Background(), "kaybolmasin")
		require.Error(t, err)

		assert.Empty(t, s.Messages()) // placeholder askıda kalmaz
		assert.Equal(t, "kaybolmasin", s.LastFailedContent())
		assert.Error(t, failureErr)

		// Bir sonraki gönderim hemen mümkün — in-flight kilidi temizlenmiş
		ms.insertErr = nil
		_, err = s.Send(context.Background(), "tekrar")
		require.NoError(t, err)
		assert.Empty(t, s.LastFailedContent())
	})

	t.Run("validation guards fire before anything is appended", func(t *testing.T) {
		s := NewSession(newFakeMessageStore(), newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		_, err := s.Send(context.Background(), "   ")
		assert.ErrorIs(t, err, pkg.ErrBadRequest)

		_, err = s.Send(context.Background(), strings.Repeat("a", models.MaxContentRunes+1))
		assert.ErrorIs(t, err, pkg.ErrBadRequest)

		assert.Empty(t, s.Messages())
	})

	t.Run("content at the rune limit is accepted", func(t *testing.T) {
		s := NewSession(newFakeMessageStore(), newFakeChannel(), testIdentity(), nil)
		defer s.Close()

		// Çok byte'lı karakterler — sınır rune bazlı, byte bazlı değil
		_, err := s.Send(context.Background(), strings.Repeat("ş", models.MaxContentRunes))
		assert.NoError(t, err)
	})

	t.Run("missing partner is rejected", func(t *testing.T) {
		s := NewSession(newFakeMessageStore(), newFakeChannel(), Identity{SelfID: testSelf}, nil)
		defer s.Close()

		_, err := s.Send(context.Background(), "kimse yok")
		assert.ErrorIs(t, err, pkg.ErrNoPartner)
	})

	t.Run("send after close is rejected", func(t *testing.T) {
		s := NewSession(newFakeMessageStore(), newFakeChannel(), testIdentity(), nil)
		s.Close()

		_, err := s.Send(context.Background(), "kapali")
		assert.ErrorIs(t, err, pkg.ErrChannelClosed)
	})
}

func TestSession_ChangeFeed(t *testing.T) {
	t.Run("partner insert appends and counts", func(t *testing.T) {
		ch := newFakeChannel()
		u := NewUnreadCounter(newFakeMessageStore(), testSelf, testPartner)
		s := NewSession(newFakeMessageStore(), ch, testIdentity(), u)
		defer s.Close()

		ch.emitMessage(realtime.MessageInserted, partnerMessage("m1", false))

		require.Len(t, s.Messages(), 1)
		assert.Equal(t, 1, u.Count())
	})

	t.Run("own echo is deduplicated by id", func(t *testing.T) {
		ch := newFakeChannel()
		s := NewSession(newFakeMessageStore(), ch, testIdentity(), nil)
		defer s.Close()

		confirmed, err := s.Send(context.Background(), "tek kopya")
		require.NoError(t, err)

		// Relay echo'su — Insert yanıtından sonra geldi
		ch.emitMessage(realtime.MessageInserted, *confirmed)

		assert.Len(t, s.Messages(), 1)
	})

	t.Run("update replaces the matching row", func(t *testing.T) {
		ch := newFakeChannel()
		s := NewSession(newFakeMessageStore(), ch, testIdentity(), nil)
		defer s.Close()

		ch.emitMessage(realtime.MessageInserted, partnerMessage("m1", false))
		ch.emitMessage(realtime.MessageUpdated, partnerMessage("m1", true))

		msgs := s.Messages()
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsRead)
	})

	t.Run("update for unknown row is ignored", func(t *testing.T) {
		ch := newFakeChannel()
		s := NewSession(newFakeMessageStore(), ch, testIdentity(), nil)
		defer s.Close()

		ch.emitMessage(realtime.MessageUpdated, partnerMessage("ghost", true))

		assert.Empty(t, s.Messages())
	})

	t.Run("feed is ignored after close", func(t *testing.T) {
		ch := newFakeChannel()
		s := NewSession(newFakeMessageStore(), ch, testIdentity(), nil)

		fired := false
		s.OnListChange(func() { fired = true })
		s.Close()

		ch.emitMessage(realtime.MessageInserted, partnerMessage("m1", false))

		assert.False(t, fired)
		assert.Empty(t, s.Messages())
	})
}

func TestSession_MarkRead(t *testing.T) {
	t.Run("bulk commits unread ids and resets the counter", func(t *testing.T) {
		ms := newFakeMessageStore()
		ms.unreadIDs = []string{"m1", "m2"}
		u := NewUnreadCounter(ms, testSelf, testPartner)
		u.HandleChange(realtime.MessageInserted, partnerMessage("m1", false))
		u.HandleChange(realtime.MessageInserted, partnerMessage("m2", false))

		ch := newFakeChannel()
		s := NewSession(ms, ch, testIdentity(), u)
		defer s.Close()
		ch.emitMessage(realtime.MessageInserted, partnerMessage("m1", false))
		ch.emitMessage(realtime.MessageInserted, partnerMessage("m2", false))

		require.NoError(t, s.MarkRead(context.Background()))

		assert.Equal(t, []string{"m1", "m2"}, ms.markedIDs)
		assert.Equal(t, 0, u.Count())
		for _, m := range s.Messages() {
			assert.True(t, m.IsRead)
			assert.NotNil(t, m.ReadAt)
		}
	})

	t.Run("idempotent: nothing unread means no store write", func(t *testing.T) {
		ms := newFakeMessageStore()
		ms.unreadIDs = []string{}
		u := NewUnreadCounter(ms, testSelf, testPartner)
		s := NewSession(ms, newFakeChannel(), testIdentity(), u)
		defer s.Close()

		require.NoError(t, s.MarkRead(context.Background()))
		require.NoError(t, s.MarkRead(context.Background()))

		assert.Equal(t, 0, ms.markReadCalls())
		// Rozet yine de sıfırlanır — görünüm ile rozet çelişmez
		assert.Equal(t, 0, u.Count())
	})

	t.Run("list failure propagates without touching the counter", func(t *testing.T) {
		ms := newFakeMessageStore()
		ms.listErr = errors.New("store unavailable")
		u := NewUnreadCounter(ms, testSelf, testPartner)
		u.HandleChange(realtime.MessageInserted, partnerMessage("m1", false))
		s := NewSession(ms, newFakeChannel(), testIdentity(), u)
		defer s.Close()

		err := s.MarkRead(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 1, u.Count())
	})
}

func TestSession_LoadHistory(t *testing.T) {
	ms := newFakeMessageStore()
	// Store en yeniden eskiye döner
	ms.history = []models.Message{
		{ID: "m3", SenderID: testSelf, ReceiverID: testPartner},
		{ID: "m2", SenderID: testPartner, ReceiverID: testSelf},
		{ID: "m1", SenderID: testSelf, ReceiverID: testPartner},
	}
	s := NewSession(ms, newFakeChannel(), testIdentity(), nil)
	defer s.Close()

	require.NoError(t, s.LoadHistory(context.Background(), 50))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	// Liste kronolojik tutulur
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestSession_MessagesSnapshot(t *testing.T) {
	ch := newFakeChannel()
	s := NewSession(newFakeMessageStore(), ch, testIdentity(), nil)
	defer s.Close()

	ch.emitMessage(realtime.MessageInserted, partnerMessage("m1", false))

	snapshot := s.Messages()
	snapshot[0].Content = "degistirildi"

	assert.Equal(t, "selam", s.Messages()[0].Content)
}
