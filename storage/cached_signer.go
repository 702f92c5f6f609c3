package storage

import (
	"time"

	"github.com/akinalp/ikimiz/pkg/cache"
)

// cacheSafetyMargin: Cache entry'si, imzanın gerçek son kullanma tarihinden
// bu kadar ÖNCE ölür. Cache'ten dönen bir URL'in tarayıcıya ulaşıp
// tıklanması zaman alır — marj, "cache'ten taze çıktı ama tıklanınca
// ölmüştü" penceresini kapatır.
const cacheSafetyMargin = 30 * time.Second

// CachedSigner, URLSigner decorator'ı: aynı dosya yolu için üretilen imzalı
// URL'i, imza ömrü boyunca cache'ler. Bir ek görüntülenen her chat
// açılışında yeniden imzalanmaz.
type CachedSigner struct {
	inner *Signer
	urls  *cache.TTLCache[string, string]
}

// NewCachedSigner, constructor. Cache TTL'i imza ömründen türetilir —
// ayrı bir konfigürasyon değeri gerekmez.
func NewCachedSigner(inner *Signer) *CachedSigner {
	ttl := inner.TTL() - cacheSafetyMargin
	if ttl <= 0 {
		ttl = inner.TTL() / 2
	}
	return &CachedSigner{
		inner: inner,
		urls:  cache.New[string, string](ttl, time.Minute),
	}
}

// SignedURL, cache'ten döner; miss'te imzalar ve cache'ler.
func (c *CachedSigner) SignedURL(path string) (string, error) {
	if u, ok := c.urls.Get(path); ok {
		return u, nil
	}

	u, err := c.inner.SignedURL(path)
	if err != nil {
		return "", err
	}

	ttl := c.inner.TTL() - cacheSafetyMargin
	if ttl <= 0 {
		ttl = c.inner.TTL() / 2
	}
	c.urls.SetWithTTL(path, u, ttl)
	return u, nil
}

// Close, cache'in temizleme goroutine'ini durdurur.
func (c *CachedSigner) Close() {
	c.urls.Close()
}
