// Package chat, iki eş arasındaki gerçek zamanlı koordinasyon katmanıdır:
// kanal anahtarı türetme, okunmamış sayacı, typing göstergesi, presence
// takibi, optimistic mesaj gönderimi ve read-receipt commit'i.
//
// Paket store ve realtime interface'lerine bağımlıdır — hangi backend'in
// arkada olduğunu bilmez. Tüm bileşenler deterministik teardown sunar:
// Close/Leave idempotent'tir ve sonrasında callback tetiklenmez.
package chat

import "strings"

// channelKeySeparator, kanal anahtarındaki iki kimliği ayırır.
// Kimlikler UUID'dir — ':' içeremezler, ayrıştırma her zaman kesindir.
const channelKeySeparator = ":"

// DeriveChannelKey, (user, partner) çiftinden sıra-bağımsız kanonik kanal
// anahtarı üretir: iki kimlik sözlük sırasına dizilip ':' ile birleştirilir.
//
// Değişmez: DeriveChannelKey(a, b) == DeriveChannelKey(b, a).
// Bu sayede iki bağımsız client session'ı, merkezi bir isim atayıcı olmadan
// aynı mantıksal kanalda buluşur — kim başlattıysa fark etmez.
//
// Boş input anahtar üretmez: anahtara dayanan chat özellikleri bu durumda
// sessizce no-op yapar, panic atmaz.
func DeriveChannelKey(idA, idB string) string {
	if idA == "" || idB == "" {
		return ""
	}
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + channelKeySeparator + idB
}

// ParseChannelKey, bir kanal anahtarını iki katılımcı kimliğine ayırır.
// Relay, bağlanan kullanıcının kanalın katılımcısı olduğunu doğrularken kullanır.
func ParseChannelKey(key string) (string, string, bool) {
	a, b, found := strings.Cut(key, channelKeySeparator)
	if !found || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

// KeyContains, verilen kimliğin kanal anahtarının katılımcılarından biri
// olup olmadığını söyler.
func KeyContains(key, userID string) bool {
	a, b, ok := ParseChannelKey(key)
	return ok && (a == userID || b == userID)
}
