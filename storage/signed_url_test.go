package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/ikimiz/pkg"
)

var testSecret = []byte("test-secret-key")

// extractToken, imzalı URL'den sig query parametresini ayıklar.
func extractToken(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	return u.Query().Get("sig")
}

func TestSigner_SignAndVerify(t *testing.T) {
	s := NewSigner(testSecret, "http://localhost:9090", 15*time.Minute)

	signed, err := s.SignedURL("photos/tatil.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://localhost:9090/files?"))

	path, err := s.Verify(extractToken(t, signed))
	require.NoError(t, err)
	assert.Equal(t, "photos/tatil.jpg", path)
}

func TestSigner_RejectsEmptyPath(t *testing.T) {
	s := NewSigner(testSecret, "http://localhost:9090", 15*time.Minute)

	_, err := s.SignedURL("")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestSigner_RejectsExpiredToken(t *testing.T) {
	// Negatif TTL — token doğduğu anda ölü
	s := NewSigner(testSecret, "http://localhost:9090", -time.Minute)

	signed, err := s.SignedURL("photos/tatil.jpg")
	require.NoError(t, err)

	_, err = s.Verify(extractToken(t, signed))
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestSigner_RejectsForeignSignature(t *testing.T) {
	signer := NewSigner(testSecret, "http://localhost:9090", 15*time.Minute)
	forger := NewSigner([]byte("other-secret"), "http://localhost:9090", 15*time.Minute)

	forged, err := forger.SignedURL("photos/tatil.jpg")
	require.NoError(t, err)

	_, err = signer.Verify(extractToken(t, forged))
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestCachedSigner(t *testing.T) {
	t.Run("same path returns the cached url", func(t *testing.T) {
		cs := NewCachedSigner(NewSigner(testSecret, "http://localhost:9090", 15*time.Minute))
		defer cs.Close()

		first, err := cs.SignedURL("photos/a.jpg")
		require.NoError(t, err)
		second, err := cs.SignedURL("photos/a.jpg")
		require.NoError(t, err)

		// JWT iat/exp her imzada değişir — aynı string dönüyorsa cache'ten geldi
		assert.Equal(t, first, second)
	})

	t.Run("different paths get different urls", func(t *testing.T) {
		cs := NewCachedSigner(NewSigner(testSecret, "http://localhost:9090", 15*time.Minute))
		defer cs.Close()

		a, err := cs.SignedURL("photos/a.jpg")
		require.NoError(t, err)
		b, err := cs.SignedURL("photos/b.jpg")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}
