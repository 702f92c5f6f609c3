package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	t.Run("allows up to max within the window", func(t *testing.T) {
		rl := New(3, time.Minute, time.Minute)
		defer rl.Close()

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("user"), "request %d should pass", i+1)
		}
		assert.False(t, rl.Allow("user"))
	})

	t.Run("users are tracked independently", func(t *testing.T) {
		rl := New(1, time.Minute, time.Minute)
		defer rl.Close()

		require.True(t, rl.Allow("alice"))
		require.False(t, rl.Allow("alice"))
		assert.True(t, rl.Allow("bob"))
	})

	t.Run("cooldown rejects everything until it expires", func(t *testing.T) {
		rl := New(1, 10*time.Millisecond, 30*time.Millisecond)
		defer rl.Close()

		require.True(t, rl.Allow("user"))
		require.False(t, rl.Allow("user")) // limit aşıldı — cooldown başladı

		assert.False(t, rl.Allow("user"))
		assert.Greater(t, rl.CooldownSeconds("user"), 0)

		time.Sleep(40 * time.Millisecond)
		assert.True(t, rl.Allow("user"), "cooldown bitince istek geçmeli")
		assert.Equal(t, 0, rl.CooldownSeconds("user"))
	})

	t.Run("window resets after it elapses", func(t *testing.T) {
		rl := New(2, 20*time.Millisecond, time.Minute)
		defer rl.Close()

		require.True(t, rl.Allow("user"))
		time.Sleep(30 * time.Millisecond)

		// Yeni pencere — sayaç sıfırdan başlar
		assert.True(t, rl.Allow("user"))
		assert.True(t, rl.Allow("user"))
	})
}

func TestLimiter_Cleanup(t *testing.T) {
	rl := New(5, 10*time.Millisecond, 10*time.Millisecond)
	defer rl.Close()

	rl.Allow("user")
	time.Sleep(30 * time.Millisecond)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.buckets)
}
