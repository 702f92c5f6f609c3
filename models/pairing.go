// Package models — Pairing domain modeli.
//
// Eşleşme sistemi tek tablo üzerinden çalışır:
// - "pending": Davet gönderildi, henüz kabul edilmedi
// - "accepted": Eşleşme aktif — iki kullanıcı arasındaki özel kanalı yetkilendirir
// - "ended": Eşleşme sonlandırıldı
//
// user_id her zaman daveti gönderen taraftır, partner_id hedef kullanıcıdır.
package models

import "time"

// PairingStatus, eşleşme durumunu temsil eden typed constant.
// Go'da enum yoktur — typed string constant'lar kullanılır.
type PairingStatus string

const (
	PairingStatusPending  PairingStatus = "pending"
	PairingStatusAccepted PairingStatus = "accepted"
	PairingStatusEnded    PairingStatus = "ended"
)

// Pairing, iki kullanıcı arasındaki eşleşme kaydını temsil eder.
// DB'deki "pairings" tablosunun Go karşılığıdır.
type Pairing struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`    // Daveti gönderen
	PartnerID string        `json:"partner_id"` // Hedef kullanıcı
	Status    PairingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// OtherUser, eşleşmenin karşı tarafını döner.
// selfID kayıttaki iki taraftan biri değilse boş string döner —
// çağıran taraf bunu "eş yok" olarak ele almalıdır.
func (p *Pairing) OtherUser(selfID string) string {
	switch selfID {
	case p.UserID:
		return p.PartnerID
	case p.PartnerID:
		return p.UserID
	default:
		return ""
	}
}

// UnreadInfo, bir eşten gelen okunmamış mesaj sayısını taşır.
// Frontend'de chat badge'i için kullanılır.
type UnreadInfo struct {
	PartnerID   string `json:"partner_id"`
	UnreadCount int    `json:"unread_count"`
}
