package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
	"github.com/akinalp/ikimiz/store"
)

// Client aynı zamanda store.MessageStore implement eder:
// store istekleri relay üzerinden request/reply olarak yürür.
// Böylece chat çekirdeği, local SQLite store ile relay arkasındaki store
// arasında fark görmez — ikisi de aynı capability contract'ı.
var _ store.MessageStore = (*Client)(nil)

// request, bir store isteğini relay'e gönderir ve yanıtını bekler.
//
// Eşleştirme req_id ile yapılır: yanıt kanalı pending map'ine kaydedilir,
// readPump StoreReply geldiğinde kanala yazar. Context iptali veya bağlantı
// kapanması isteği sonlandırır — pending entry her çıkış yolunda temizlenir.
func (c *Client) request(ctx context.Context, req StoreRequest) (StoreReply, error) {
	req.ReqID = uuid.NewString()

	replyCh := make(chan StoreReply, 1)
	c.pendMu.Lock()
	c.pending[req.ReqID] = replyCh
	c.pendMu.Unlock()

	cleanup := func() {
		c.pendMu.Lock()
		delete(c.pending, req.ReqID)
		c.pendMu.Unlock()
	}

	ev, err := NewEvent(OpStoreRequest, req)
	if err != nil {
		cleanup()
		return StoreReply{}, err
	}
	if err := c.enqueue(ev); err != nil {
		cleanup()
		return StoreReply{}, err
	}

	select {
	case reply, ok := <-replyCh:
		if !ok {
			return StoreReply{}, pkg.ErrChannelClosed
		}
		if reply.Error != "" {
			return StoreReply{}, remoteError(reply.Error)
		}
		return reply, nil
	case <-ctx.Done():
		cleanup()
		return StoreReply{}, ctx.Err()
	case <-c.closed:
		cleanup()
		return StoreReply{}, pkg.ErrChannelClosed
	}
}

// remoteError, relay'in string olarak taşıdığı hatayı sentinel error'lara
// geri map'ler — errors.Is kontrolleri ağ sınırından sonra da çalışsın diye.
// Relay hatayı err.Error() ile serialize eder; wrap edilmiş sentinel'lerin
// metni ("not found" vb.) mesajın içinde korunur.
func remoteError(msg string) error {
	for _, sentinel := range []error{pkg.ErrNotFound, pkg.ErrForbidden, pkg.ErrBadRequest, pkg.ErrUnauthorized} {
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%w: %s", sentinel, msg)
		}
	}
	return fmt.Errorf("%w: %s", pkg.ErrInternal, msg)
}

// Insert, mesajı relay üzerinden kalıcı yazar.
// Dönen mesaj store'un atadığı ID ve zaman damgasını taşır.
func (c *Client) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	reply, err := c.request(ctx, StoreRequest{Kind: StoreKindInsert, Message: msg})
	if err != nil {
		return nil, err
	}
	if reply.Message == nil {
		return nil, fmt.Errorf("%w: insert reply missing message", pkg.ErrInternal)
	}
	return reply.Message, nil
}

// CountUnread, okunmamış mesaj sayısını relay üzerinden sorgular.
func (c *Client) CountUnread(ctx context.Context, receiverID, senderID string) (int, error) {
	reply, err := c.request(ctx, StoreRequest{
		Kind:       StoreKindCountUnread,
		ReceiverID: receiverID,
		SenderID:   senderID,
	})
	if err != nil {
		return 0, err
	}
	return reply.Count, nil
}

// ListUnreadIDs, okunmamış mesaj ID'lerini relay üzerinden toplar.
func (c *Client) ListUnreadIDs(ctx context.Context, receiverID, senderID string) ([]string, error) {
	reply, err := c.request(ctx, StoreRequest{
		Kind:       StoreKindListUnread,
		ReceiverID: receiverID,
		SenderID:   senderID,
	})
	if err != nil {
		return nil, err
	}
	if reply.IDs == nil {
		return []string{}, nil
	}
	return reply.IDs, nil
}

// MarkRead, verilen ID kümesini relay üzerinden okundu işaretler.
// Boş küme client tarafında da no-op'tur — relay'e istek gitmez.
func (c *Client) MarkRead(ctx context.Context, ids []string, readAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.request(ctx, StoreRequest{
		Kind:   StoreKindMarkRead,
		IDs:    ids,
		ReadAt: &readAt,
	})
	return err
}

// ListByIDs, verilen ID kümesinin güncel satırlarını relay üzerinden çeker.
func (c *Client) ListByIDs(ctx context.Context, ids []string) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}
	reply, err := c.request(ctx, StoreRequest{
		Kind: StoreKindListByIDs,
		IDs:  ids,
	})
	if err != nil {
		return nil, err
	}
	if reply.Messages == nil {
		return []models.Message{}, nil
	}
	return reply.Messages, nil
}

// ListBetween, iki katılımcı arasındaki mesaj geçmişini relay üzerinden çeker.
func (c *Client) ListBetween(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	reply, err := c.request(ctx, StoreRequest{
		Kind:  StoreKindListBetween,
		UserA: userA,
		UserB: userB,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	if reply.Messages == nil {
		return []models.Message{}, nil
	}
	return reply.Messages, nil
}
