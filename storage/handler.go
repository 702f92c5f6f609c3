package storage

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"
)

// Handler, imzalı ek indirme endpoint'i.
//
// GET /files?sig=TOKEN — token doğrulanır, taşıdığı yol storage dizini
// altından servis edilir. İmza yoksa veya geçersizse 401 döner.
type Handler struct {
	signer *Signer
	dir    string
}

// NewHandler, constructor. dir, ek dosyalarının kök dizinidir.
func NewHandler(signer *Signer, dir string) *Handler {
	return &Handler{signer: signer, dir: dir}
}

// ServeFile, imzalı indirme isteğini işler.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	sig := r.URL.Query().Get("sig")
	if sig == "" {
		http.Error(w, "missing signature", http.StatusUnauthorized)
		return
	}

	path, err := h.signer.Verify(sig)
	if err != nil {
		http.Error(w, "invalid or expired link", http.StatusUnauthorized)
		return
	}

	// Path traversal koruması: imzalı yol bile dizin dışına çıkamaz.
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	full := filepath.Join(h.dir, clean)
	log.Printf("[storage] serving attachment: %s", clean)
	http.ServeFile(w, r, full)
}
