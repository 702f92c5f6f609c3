package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxContentRunes, bir mesajın maksimum uzunluğu (rune cinsinden).
// Frontend compose alanı bu sınırda yazımı durdurur ve son 50 karakterde
// kalan karakter sayacını gösterir — bkz. SendMessageRequest.RemainingRunes.
const MaxContentRunes = 500

// placeholderPrefix, henüz store tarafından onaylanmamış mesajların
// geçici ID prefix'i. Store insert başarılı olunca geçici ID kalıcı ID ile
// değiştirilir; başarısız olunca mesaj listeden tamamen kaldırılır.
// Bir placeholder ASLA askıda bırakılmaz.
const placeholderPrefix = "temp-"

// Message, iki eş arasındaki tek bir chat mesajını temsil eder.
// DB'deki "messages" tablosunun Go karşılığı.
//
// ID iki durumdan birindedir:
//   - Kalıcı ID: store insert'in atadığı UUID
//   - Geçici ID: "temp-<uuid>" — optimistic append sırasında client üretir
//
// IsRead/ReadAt/DeliveredAt yaşam döngüsü alanları sadece ALICININ
// read-commit aksiyonu ile değişir — gönderen bu alanlara dokunmaz.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	ReceiverID  string     `json:"receiver_id"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`      // Nullable — okunmadıysa nil
	DeliveredAt *time.Time `json:"delivered_at"` // Nullable — teslim edilmediyse nil

	// Opsiyonel dosya eki referansı — chat çekirdeği için opak payload.
	// İmzalı URL üretimi storage paketinin işidir.
	AttachmentURL  *string `json:"attachment_url,omitempty"`
	AttachmentType *string `json:"attachment_type,omitempty"`
	AttachmentName *string `json:"attachment_name,omitempty"`
	AttachmentSize *int64  `json:"attachment_size,omitempty"`
}

// IsPlaceholder, mesajın henüz store tarafından onaylanmadığını söyler.
func (m *Message) IsPlaceholder() bool {
	return strings.HasPrefix(m.ID, placeholderPrefix)
}

// NewPlaceholderID, optimistic append için geçici bir mesaj ID'si üretir.
// Prefix sayesinde kalıcı ID'lerle karışması imkansızdır.
func NewPlaceholderID() string {
	return placeholderPrefix + uuid.NewString()
}

// SendMessageRequest, yeni mesaj gönderme isteği.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Validate, SendMessageRequest'in geçerli olup olmadığını kontrol eder.
// İçerik boşluk kırpıldıktan sonra 1-500 karakter arası olmalı.
func (r *SendMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > MaxContentRunes {
		return fmt.Errorf("message content must be at most %d characters", MaxContentRunes)
	}
	return nil
}

// RemainingRunes, compose alanındaki kalan karakter sayısını döner.
// Frontend sayacı 50'nin altına düşünce gösterir; negatif dönmez —
// sınır aşıldığında 0 döner (compose zaten bloklanır).
func RemainingRunes(content string) int {
	remaining := MaxContentRunes - utf8.RuneCountInString(content)
	if remaining < 0 {
		return 0
	}
	return remaining
}
