// Package storage, mesaj eklerinin imzalı indirme URL'lerini üretir ve sunar.
//
// Ek dosyaları herkese açık değildir: her indirme linki, dosya yolunu ve son
// kullanma tarihini taşıyan kısa ömürlü bir HMAC imzası içerir. İmza süresi
// dolunca link ölür — ekran görüntüsü alınıp paylaşılan bir link kalıcı
// erişim vermez.
package storage

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/ikimiz/pkg"
)

// URLSigner, bir ek dosya yolundan süreli, imzalı indirme URL'i üretir.
// Chat çekirdeği bu interface'i kullanır — imzalama detayını bilmez.
type URLSigner interface {
	SignedURL(path string) (string, error)
}

// signedURLClaims, imzalı URL token'ının taşıdığı bilgi.
type signedURLClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// Signer, JWT HMAC tabanlı URLSigner implementasyonu.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewSigner, constructor. baseURL "http://host:port" biçiminde,
// sondaki slash'sız taban adrestir.
func NewSigner(secret []byte, baseURL string, ttl time.Duration) *Signer {
	return &Signer{
		secret:  secret,
		baseURL: baseURL,
		ttl:     ttl,
	}
}

// TTL, üretilen imzaların yaşam süresini döner.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// SignedURL, verilen dosya yolu için süreli indirme URL'i üretir.
func (s *Signer) SignedURL(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty attachment path", pkg.ErrBadRequest)
	}

	now := time.Now()
	claims := signedURLClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign attachment url: %w", err)
	}

	q := url.Values{}
	q.Set("sig", token)
	return s.baseURL + "/files?" + q.Encode(), nil
}

// Verify, imzalı URL token'ını doğrular ve taşıdığı dosya yolunu döner.
// Süresi dolmuş veya imzası bozuk token ErrUnauthorized ile reddedilir.
func (s *Signer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &signedURLClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: invalid signed url", pkg.ErrUnauthorized)
	}

	claims, ok := parsed.Claims.(*signedURLClaims)
	if !ok || claims.Path == "" {
		return "", fmt.Errorf("%w: signed url missing path", pkg.ErrUnauthorized)
	}
	return claims.Path, nil
}
