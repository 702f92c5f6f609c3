package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/ikimiz/models"
)

// sqliteMessageStore, MessageStore interface'inin SQLite implementasyonu.
type sqliteMessageStore struct {
	db *sql.DB
}

// NewSQLiteMessageStore, constructor — interface döner.
func NewSQLiteMessageStore(db *sql.DB) MessageStore {
	return &sqliteMessageStore{db: db}
}

// Insert, mesajı kalıcı olarak yazar. Store ID'yi ve created_at'i atar —
// client'ın optimistic timestamp'i korunmaz, store zamanı geçerlidir.
// Dönen mesaj yazılan satırın birebir kopyasıdır; caller placeholder'ını
// bu kopya ile değiştirir.
func (s *sqliteMessageStore) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	stored := *msg
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.IsRead = false
	stored.ReadAt = nil

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, created_at, is_read,
		                      attachment_url, attachment_type, attachment_name, attachment_size)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.SenderID, stored.ReceiverID, stored.Content, stored.CreatedAt,
		stored.AttachmentURL, stored.AttachmentType, stored.AttachmentName, stored.AttachmentSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return &stored, nil
}

// CountUnread, "sender'dan receiver'a gelen, henüz okunmamış" mesaj sayısını döner.
// Satırları fetch etmeden exact count — unread counter'ın seed sorgusu.
func (s *sqliteMessageStore) CountUnread(ctx context.Context, receiverID, senderID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE receiver_id = ? AND sender_id = ? AND is_read = 0`

	var count int
	if err := s.db.QueryRowContext(ctx, query, receiverID, senderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// ListUnreadIDs, okunmamış mesajların ID'lerini eskiden yeniye döner.
// Read-receipt committer bu kümeyi tek bir bulk update'e çevirir.
func (s *sqliteMessageStore) ListUnreadIDs(ctx context.Context, receiverID, senderID string) ([]string, error) {
	query := `
		SELECT id FROM messages
		WHERE receiver_id = ? AND sender_id = ? AND is_read = 0
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, receiverID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread message ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unread message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread message rows: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// MarkRead, verilen ID kümesini tek bir UPDATE ile okundu işaretler.
// Boş küme no-op'tur — store'a hiçbir statement gitmez.
func (s *sqliteMessageStore) MarkRead(ctx context.Context, ids []string, readAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	// IN (?, ?, ...) placeholder listesini dinamik kur.
	// SQL injection riski yok — değerler her zaman bind edilir.
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	args = append(args, readAt.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"UPDATE messages SET is_read = 1, read_at = ? WHERE id IN (%s)", placeholders)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// ListByIDs, verilen ID kümesinin güncel satırlarını kronolojik döner.
// Bilinmeyen ID'ler sessizce atlanır — dönen liste istenen kümenin
// alt kümesidir.
func (s *sqliteMessageStore) ListByIDs(ctx context.Context, ids []string) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT id, sender_id, receiver_id, content, created_at, is_read, read_at, delivered_at,
		       attachment_url, attachment_type, attachment_name, attachment_size
		FROM messages
		WHERE id IN (%s)
		ORDER BY created_at ASC`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by id: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var isRead int
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt, &isRead,
			&m.ReadAt, &m.DeliveredAt,
			&m.AttachmentURL, &m.AttachmentType, &m.AttachmentName, &m.AttachmentSize,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.IsRead = isRead == 1
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// ListBetween, iki katılımcı arasındaki mesajları her iki yönde getirir —
// "OR of ANDs" çift filtresi: (a→b) OR (b→a). En yeniden eskiye.
func (s *sqliteMessageStore) ListBetween(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, created_at, is_read, read_at, delivered_at,
		       attachment_url, attachment_type, attachment_name, attachment_size
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var isRead int
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt, &isRead,
			&m.ReadAt, &m.DeliveredAt,
			&m.AttachmentURL, &m.AttachmentType, &m.AttachmentName, &m.AttachmentSize,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.IsRead = isRead == 1
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
