package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/ikimiz/chat"
	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/pkg/ratelimit"
	"github.com/akinalp/ikimiz/realtime"
	"github.com/akinalp/ikimiz/store"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum event boyutu (byte).
	// Store request'ler mesaj içeriği ve ID listesi taşır — cömert tutulur.
	maxMessageSize = 1 << 16

	// sendBufferSize: Her bağlantının send channel'ının buffer boyutu.
	// Buffer doluysa client yavaş demektir — bağlantı düşürülür.
	sendBufferSize = 256

	// storeTimeout: Tek bir store isteğinin maksimum süresi.
	storeTimeout = 5 * time.Second
)

// client, relay'e açılmış tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır (gorilla/websocket aynı anda
// tek okuma + tek yazma destekler):
// - readPump: Client'dan gelen event'leri okur ve işler
// - writePump: send channel'ından event'leri WebSocket'e yazar
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	messages store.MessageStore
	limiter  *ratelimit.Limiter

	// userID: Token'dan doğrulanmış kimlik — client beyanı değil.
	userID string

	// channelKey: Bağlantının ait olduğu eş-kanalı. Handler membership
	// kontrolünden geçmiştir; bu bağlantı başka kanala event gönderemez.
	channelKey string

	// tracked: Bu bağlantının presence roster'ında olup olmadığı.
	// atomic.Bool — hem readPump hem hub goroutine'i dokunur.
	tracked atomic.Bool

	send chan []byte
	mu   sync.Mutex // conn.WriteMessage çağrılarını korur
}

// readPump, bağlantıdan gelen event'leri okur ve işler.
// Bağlantı kapanana kadar döngüde kalır; kapanınca hub'dan çıkış yapar.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[relay] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[relay] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var ev realtime.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("[relay] invalid event from user %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(ev)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
func (c *client) handleEvent(ev realtime.Event) {
	switch ev.Op {
	case realtime.OpHeartbeat:
		// Heartbeat geldi — deadline'ı yenile ve ack gönder.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[relay] failed to refresh read deadline for user %s: %v", c.userID, err)
			return
		}
		c.hub.sendToClient(c, realtime.Event{Op: realtime.OpHeartbeatAck})

	case realtime.OpTrack:
		c.hub.track(c)

	case realtime.OpUntrack:
		c.hub.untrack(c)

	case realtime.OpTyping:
		c.handleTyping(ev)

	case realtime.OpStoreRequest:
		c.handleStoreRequest(ev)

	default:
		log.Printf("[relay] unknown op from user %s: %s", c.userID, ev.Op)
	}
}

// handleTyping, typing sinyalini kanalın diğer üyesine iletir.
//
// SenderID burada, doğrulanmış kimlikten doldurulur — client kendi
// payload'ında ne beyan ederse etsin üzerine yazılır. Gönderenin kendi
// sekmelerine sinyal gitmez.
func (c *client) handleTyping(ev realtime.Event) {
	p, err := realtime.DecodeTyping(ev)
	if err != nil {
		log.Printf("[relay] invalid typing payload from user %s: %v", c.userID, err)
		return
	}
	p.SenderID = c.userID

	out, err := realtime.NewEvent(realtime.OpTyping, p)
	if err != nil {
		log.Printf("[relay] failed to build typing event: %v", err)
		return
	}
	c.hub.broadcastToChannel(c.channelKey, out, c.userID)
}

// handleStoreRequest, bir store isteğini yürütür ve yanıtını sadece isteği
// yapan bağlantıya döner. Yazma işlemleri (insert, mark_read) ayrıca
// kanala change feed event'i yayınlar — isteği yapan dahil: client'ın
// reconcile mantığı echo'yu ID üzerinden dedupe eder.
func (c *client) handleStoreRequest(ev realtime.Event) {
	req, err := realtime.DecodeStoreRequest(ev)
	if err != nil {
		log.Printf("[relay] invalid store request from user %s: %v", c.userID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	reply := realtime.StoreReply{ReqID: req.ReqID}

	switch req.Kind {
	case realtime.StoreKindInsert:
		msg, err := c.executeInsert(ctx, req)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Message = msg

	case realtime.StoreKindCountUnread:
		count, err := c.messages.CountUnread(ctx, req.ReceiverID, req.SenderID)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Count = count

	case realtime.StoreKindListUnread:
		ids, err := c.messages.ListUnreadIDs(ctx, req.ReceiverID, req.SenderID)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.IDs = ids

	case realtime.StoreKindMarkRead:
		if err := c.executeMarkRead(ctx, req); err != nil {
			reply.Error = err.Error()
		}

	case realtime.StoreKindListByIDs:
		msgs, err := c.messages.ListByIDs(ctx, req.IDs)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Messages = msgs

	case realtime.StoreKindListBetween:
		msgs, err := c.messages.ListBetween(ctx, req.UserA, req.UserB, req.Limit)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Messages = msgs
	}

	out, err := realtime.NewEvent(realtime.OpStoreReply, reply)
	if err != nil {
		log.Printf("[relay] failed to build store reply: %v", err)
		return
	}
	c.hub.sendToClient(c, out)
}

// executeInsert, insert isteğini doğrular, yazar ve change feed'e yayınlar.
//
// Guard'lar: gönderen doğrulanmış kimlik olmalı ve her iki taraf da bu
// bağlantının kanalının katılımcısı olmalı. Bir client başka biri adına
// veya başka bir kanala mesaj yazamaz.
func (c *client) executeInsert(ctx context.Context, req realtime.StoreRequest) (*models.Message, error) {
	if req.Message == nil {
		return nil, fmt.Errorf("%w: insert request missing message", pkg.ErrBadRequest)
	}
	if !c.limiter.Allow(c.userID) {
		return nil, fmt.Errorf("%w: message rate limit exceeded, retry in %ds",
			pkg.ErrBadRequest, c.limiter.CooldownSeconds(c.userID))
	}
	if req.Message.SenderID != c.userID {
		return nil, fmt.Errorf("%w: sender identity mismatch", pkg.ErrForbidden)
	}
	if !chat.KeyContains(c.channelKey, req.Message.SenderID) ||
		!chat.KeyContains(c.channelKey, req.Message.ReceiverID) {
		return nil, fmt.Errorf("%w: message parties outside channel", pkg.ErrForbidden)
	}

	stored, err := c.messages.Insert(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	// Change feed: yeni satır kanalın tüm üyelerine gider — gönderen dahil.
	// Gönderenin diğer sekmeleri mesajı böyle görür; isteği yapan sekme
	// echo'yu ID üzerinden dedupe eder.
	out, err := realtime.NewEvent(realtime.OpMessageInsert, stored)
	if err != nil {
		log.Printf("[relay] failed to build message insert event: %v", err)
	} else {
		c.hub.broadcastToChannel(c.channelKey, out, "")
	}
	return stored, nil
}

// executeMarkRead, bulk mark-read'i yürütür ve güncellenen satırları
// change feed'e message_update olarak yayınlar.
func (c *client) executeMarkRead(ctx context.Context, req realtime.StoreRequest) error {
	if len(req.IDs) == 0 {
		return nil
	}
	readAt := time.Now().UTC()
	if req.ReadAt != nil {
		readAt = req.ReadAt.UTC()
	}

	if err := c.messages.MarkRead(ctx, req.IDs, readAt); err != nil {
		return err
	}

	updated, err := c.messages.ListByIDs(ctx, req.IDs)
	if err != nil {
		// Commit başarılı, feed toplanamadı — client'lar bir sonraki
		// seed'de doğru değeri görür.
		log.Printf("[relay] mark_read feed fetch failed: %v", err)
		return nil
	}
	for _, m := range updated {
		out, err := realtime.NewEvent(realtime.OpMessageUpdate, m)
		if err != nil {
			log.Printf("[relay] failed to build message update event: %v", err)
			continue
		}
		c.hub.broadcastToChannel(c.channelKey, out, "")
	}
	return nil
}

// writePump, send channel'ından event'leri WebSocket bağlantısına yazar.
func (c *client) writePump() {
	defer c.conn.Close()

	for {
		data, ok := <-c.send
		if !ok {
			// Channel kapatıldı — hub bağlantıyı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur —
// gorilla/websocket conn'a aynı anda birden fazla yazma yasaktır).
func (c *client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
