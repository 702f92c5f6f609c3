// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Domain-level error'lar.
// Relay handler katmanı bu error'ları HTTP status code'larına map'ler,
// chat katmanı kendi fallback davranışını seçerken errors.Is ile ayırt eder.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")

	// ErrNoPartner: Kullanıcının kabul edilmiş bir eşleşmesi yok.
	// Chat özellikleri bu durumda sessizce devre dışı kalır —
	// kullanıcıya gürültülü bir hata gösterilmez.
	ErrNoPartner = errors.New("no accepted pairing")

	// ErrSendInFlight: Aynı anda sadece bir mesaj gönderimi olabilir.
	// İkinci Send çağrısı ilki bitmeden yapılırsa bu error döner.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrChannelClosed: Kapatılmış bir realtime kanal üzerinde işlem yapıldı.
	ErrChannelClosed = errors.New("channel closed")
)
