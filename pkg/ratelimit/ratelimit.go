// Package ratelimit — kullanıcı bazlı spam koruması.
//
// Relay, mesaj insert'lerini kullanıcı başına sliding window ile sınırlar:
// window içinde limit aşılırsa cooldown başlar ve cooldown süresince tüm
// istekler reddedilir. İki eşin normal yazışması limite asla takılmaz —
// hedef, bozuk bir client'ın veya script'in store'u doldurmasını önlemek.
//
// Neden in-memory?
// - SQLite'a her istekte yazmak gereksiz I/O + contention yaratır.
// - Tek instance deploy için Redis bağımlılığı gerekmez.
// - sync.Mutex ile thread-safe.
package ratelimit

import (
	"sync"
	"time"
)

// bucket, bir kullanıcı için istek sayacı ve cooldown bilgisi tutar.
//
// İki durumlu:
// 1. Normal mod: count artırılır, windowStart bazlı pencere kontrolü.
// 2. Cooldown mod: cooldownUntil > now → tüm istekler reddedilir.
type bucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// Limiter, kullanıcı bazlı rate limiter.
//
// max: Bir window içinde izin verilen maksimum istek sayısı.
// window: Sayaç pencere süresi (örn: 5 saniye).
// cooldown: Limit aşıldığında uygulanan ceza süresi (örn: 15 saniye).
//
// Kullanım:
//
//	limiter := ratelimit.New(10, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(userID) { /* isteği reddet */ }
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	max         int
	window      time.Duration
	cooldown    time.Duration
	stopCleanup chan struct{}
}

// New, yeni bir Limiter oluşturur ve arka plan temizleme goroutine'ini başlatır.
func New(max int, window, cooldown time.Duration) *Limiter {
	rl := &Limiter{
		buckets:     make(map[string]*bucket),
		max:         max,
		window:      window,
		cooldown:    cooldown,
		stopCleanup: make(chan struct{}),
	}

	// Bucket'lar kısa ömürlüdür ama uzun süre çalışan relay'de bellek
	// birikmesini önlemek için periyodik temizlik gerekir.
	go rl.cleanupLoop()

	return rl
}

// Allow, verilen kullanıcının isteğine izin verilip verilmediğini kontrol eder.
//
// Akış:
// 1. Cooldown'daysa → reject (cooldown bitmeden hiçbir istek geçmez).
// 2. Window dolmuşsa → yeni pencere başlat.
// 3. Window içindeyse → count artır, max aşıldıysa cooldown başlat.
func (rl *Limiter) Allow(userID string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		rl.buckets[userID] = &bucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() && now.Before(b.cooldownUntil) {
		return false
	}

	// Cooldown bitti veya hiç yok — gerekiyorsa yeni pencere başlat
	if !b.cooldownUntil.IsZero() || now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	b.count++
	if b.count > rl.max {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}

	return true
}

// CooldownSeconds, kalan cooldown süresini saniye cinsinden döner.
// Cooldown yoksa 0 döner. +1 yuvarlama — client'ın tam süreyi beklemesi için.
func (rl *Limiter) CooldownSeconds(userID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := time.Until(b.cooldownUntil)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Close, temizleme goroutine'ini durdurur.
func (rl *Limiter) Close() {
	close(rl.stopCleanup)
}

// cleanupLoop, arka planda süresi dolmuş bucket'ları temizler.
func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, hem window'u hem cooldown'ı geçmiş bucket'ları siler.
// Cooldown'daki kullanıcının bucket'ı yanlışlıkla silinmez.
func (rl *Limiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)

		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}
