// Package auth, harici kimlik sağlayıcının verdiği access token'lardan
// kullanıcı kimliğini çıkarır.
//
// Bu repo login/register İÇERMEZ — authentication protokolü dışarıda yaşar.
// Bizim işimiz: imzalı token'ı doğrula, içindeki kararlı kullanıcı ID'sini ver.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akinalp/ikimiz/pkg"
)

// IdentityClaims, access token'ın taşıdığı kimlik bilgisi.
type IdentityClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseIdentity, JWT access token'ı doğrular ve kullanıcı ID'sini döner.
//
// HMAC dışında bir imzalama yöntemi kabul edilmez — "alg confusion"
// saldırılarına karşı method tipi açıkça kontrol edilir.
func ParseIdentity(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || claims.UserID == "" {
		return "", fmt.Errorf("%w: token missing user id", pkg.ErrUnauthorized)
	}

	if !ValidIdentityFormat(claims.UserID) {
		return "", fmt.Errorf("%w: malformed user id in token", pkg.ErrUnauthorized)
	}

	return claims.UserID, nil
}

// ValidIdentityFormat, bir kullanıcı ID'sinin beklenen formatta (UUID)
// olup olmadığını kontrol eder.
//
// Send protokolünün guard'ı da bunu kullanır: bozuk session state ile
// mesaj göndermeye çalışan kullanıcı I/O başlamadan, senkron olarak durdurulur.
func ValidIdentityFormat(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
