package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
)

// WebSocket bağlantı sabitleri.
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// heartbeatInterval: Client'ın relay'e "hâlâ bağlıyım" deme sıklığı.
	heartbeatInterval = 30 * time.Second

	// pongWait: Relay'den yanıt beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Relay'den gelebilecek maksimum event boyutu (byte).
	// Store reply'ları ID listesi taşıyabilir — cömert tutulur.
	maxMessageSize = 1 << 16

	// sendBufferSize: Outbound event buffer'ı.
	// Buffer doluysa gönderim hata döner — sessiz kayıp olmaz.
	sendBufferSize = 256
)

// Client, relay'e açılmış tek bir WebSocket bağlantısını temsil eder ve
// Channel interface'ini implement eder.
//
// İki goroutine pattern'i (gorilla/websocket aynı anda tek okuma + tek yazma
// destekler, ikisi ayrı goroutine'de birbirini bloklamaz):
// - readPump: Relay'den gelen event'leri okur → callback'lere dağıtır
// - writePump: send channel'ından event'leri WebSocket'e yazar + heartbeat atar
type Client struct {
	conn *websocket.Conn
	send chan []byte

	// writeMu: conn.WriteMessage çağrılarını korur.
	writeMu sync.Mutex

	// cbMu: callback kayıtlarını korur.
	cbMu            sync.RWMutex
	onMessageChange func(kind MessageChangeKind, msg models.Message)
	onTyping        func(TypingPayload)
	onPresence      func(PresencePayload)

	// pending: store request/reply eşleştirmesi (req_id → yanıt kanalı).
	pendMu  sync.Mutex
	pending map[string]chan StoreReply

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial, relay'e bağlanır ve pump goroutine'lerini başlatır.
//
// relayURL: "ws://host:port" biçiminde taban adres.
// token: kimlik sağlayıcının imzaladığı access token (query param olarak
// gönderilir — WebSocket handshake'inde header taşımak tarayıcıda zordur).
// channelKey: chat.DeriveChannelKey ile üretilen eş-kanal anahtarı.
func Dial(ctx context.Context, relayURL, token, channelKey string) (*Client, error) {
	if channelKey == "" {
		return nil, fmt.Errorf("%w: empty channel key", pkg.ErrBadRequest)
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("channel", channelKey)
	endpoint := relayURL + "/ws?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	c := &Client{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		pending: make(map[string]chan StoreReply),
		closed:  make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump, relay'den gelen event'leri okur ve dağıtır.
// Bağlantı kapanana kadar döngüde kalır; kapanınca Close tetiklenir.
func (c *Client) readPump() {
	defer c.Close()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[realtime] unexpected close: %v", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("[realtime] invalid event from relay: %v", err)
			continue
		}

		c.dispatch(ev)
	}
}

// dispatch, tek bir inbound event'i türüne göre işler.
//
// Close'dan sonra callback tetiklenmez: readPump Close ile sonlanır ama
// son bir event yarışabilir — isClosed kontrolü bu pencereyi kapatır.
func (c *Client) dispatch(ev Event) {
	if c.isClosed() {
		return
	}

	switch ev.Op {
	case OpHeartbeatAck:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[realtime] failed to refresh read deadline: %v", err)
		}

	case OpMessageInsert, OpMessageUpdate:
		msg, err := DecodeMessage(ev)
		if err != nil {
			log.Printf("[realtime] dropping malformed change event: %v", err)
			return
		}
		kind := MessageInserted
		if ev.Op == OpMessageUpdate {
			kind = MessageUpdated
		}
		c.cbMu.RLock()
		fn := c.onMessageChange
		c.cbMu.RUnlock()
		if fn != nil {
			fn(kind, msg)
		}

	case OpTyping:
		p, err := DecodeTyping(ev)
		if err != nil {
			log.Printf("[realtime] dropping malformed typing event: %v", err)
			return
		}
		c.cbMu.RLock()
		fn := c.onTyping
		c.cbMu.RUnlock()
		if fn != nil {
			fn(p)
		}

	case OpSubscribed, OpPresenceState:
		p, err := DecodePresence(ev)
		if err != nil {
			log.Printf("[realtime] dropping malformed presence event: %v", err)
			return
		}
		c.cbMu.RLock()
		fn := c.onPresence
		c.cbMu.RUnlock()
		if fn != nil {
			fn(p)
		}

	case OpStoreReply:
		reply, err := DecodeStoreReply(ev)
		if err != nil {
			log.Printf("[realtime] dropping malformed store reply: %v", err)
			return
		}
		c.pendMu.Lock()
		ch, ok := c.pending[reply.ReqID]
		if ok {
			delete(c.pending, reply.ReqID)
		}
		c.pendMu.Unlock()
		if ok {
			ch <- reply // buffered(1) — bloklamaz
		}

	default:
		log.Printf("[realtime] unknown op from relay: %s", ev.Op)
	}
}

// writePump, send channel'ından event'leri WebSocket'e yazar ve
// periyodik heartbeat gönderir.
func (c *Client) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	heartbeat, _ := json.Marshal(Event{Op: OpHeartbeat})

	for {
		select {
		case data := <-c.send:
			if err := c.writeMessage(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writeMessage(heartbeat); err != nil {
				return
			}
		case <-c.closed:
			c.writeMu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.writeMu.Unlock()
			return
		}
	}
}

// writeMessage, WebSocket'e tek bir text frame yazar (mutex ile korunur —
// gorilla/websocket conn'a aynı anda birden fazla yazma yasaktır).
func (c *Client) writeMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// enqueue, bir event'i outbound buffer'a ekler.
// Kapalı bağlantıda veya dolu buffer'da hata döner — sessiz kayıp olmaz.
func (c *Client) enqueue(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	select {
	case <-c.closed:
		return pkg.ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// ─── Channel interface ───

// SendTyping, typing sinyalini relay'e yollar. Fire-and-forget:
// relay sinyali eşin bağlantılarına iletir, acknowledgment yoktur.
// SenderID relay tarafında doldurulur — burada gönderilmez.
func (c *Client) SendTyping(isTyping bool) error {
	ev, err := NewEvent(OpTyping, TypingPayload{IsTyping: isTyping})
	if err != nil {
		return err
	}
	return c.enqueue(ev)
}

// Track, bu bağlantıyı kanal roster'ına kaydeder.
func (c *Client) Track() error {
	return c.enqueue(Event{Op: OpTrack})
}

// Untrack, bu bağlantıyı roster'dan çıkarır.
func (c *Client) Untrack() error {
	return c.enqueue(Event{Op: OpUntrack})
}

// OnMessageChange, change feed callback'ini kaydeder.
func (c *Client) OnMessageChange(fn func(kind MessageChangeKind, msg models.Message)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onMessageChange = fn
}

// OnTyping, typing callback'ini kaydeder.
func (c *Client) OnTyping(fn func(TypingPayload)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onTyping = fn
}

// OnPresence, presence callback'ini kaydeder.
func (c *Client) OnPresence(fn func(PresencePayload)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onPresence = fn
}

// Close, bağlantıyı kapatır. Idempotent — ikinci çağrı no-op'tur.
// Bekleyen store istekleri ErrChannelClosed ile sonlanır.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()

		c.pendMu.Lock()
		for reqID, ch := range c.pending {
			delete(c.pending, reqID)
			close(ch)
		}
		c.pendMu.Unlock()
	})
	return nil
}

// isClosed, bağlantının kapatılıp kapatılmadığını söyler.
func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
