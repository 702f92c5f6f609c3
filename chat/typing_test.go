package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/ikimiz/realtime"
)

// Kısa expiry ile test edilir — gerçek 3sn bekleme testleri yavaşlatır.
const testExpiry = 40 * time.Millisecond

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.Fail(t, "condition not met within timeout")
}

func TestTypingIndicator_Send(t *testing.T) {
	ch := newFakeChannel()
	ti := NewTypingIndicator(ch, testPartner, testExpiry)
	defer ti.Close()

	require.NoError(t, ti.Send(true))
	require.NoError(t, ti.Send(false))

	assert.Equal(t, []bool{true, false}, ch.typingSent)
}

func TestTypingIndicator_PartnerSignal(t *testing.T) {
	t.Run("partner typing turns indicator on", func(t *testing.T) {
		ch := newFakeChannel()
		ti := NewTypingIndicator(ch, testPartner, testExpiry)
		defer ti.Close()

		ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: true})

		assert.True(t, ti.PartnerTyping())
	})

	t.Run("foreign sender is ignored", func(t *testing.T) {
		ch := newFakeChannel()
		ti := NewTypingIndicator(ch, testPartner, testExpiry)
		defer ti.Close()

		ch.emitTyping(realtime.TypingPayload{SenderID: testSelf, IsTyping: true})

		assert.False(t, ti.PartnerTyping())
	})

	t.Run("explicit stop clears immediately", func(t *testing.T) {
		ch := newFakeChannel()
		ti := NewTypingIndicator(ch, testPartner, time.Minute)
		defer ti.Close()

		ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: true})
		ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: false})

		assert.False(t, ti.PartnerTyping())
	})
}

func TestTypingIndicator_Expiry(t *testing.T) {
	t.Run("indicator expires without fresh signals", func(t *testing.T) {
		ch := newFakeChannel()
		ti := NewTypingIndicator(ch, testPartner, testExpiry)
		defer ti.Close()

		ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: true})
		require.True(t, ti.PartnerTyping())

		waitFor(t, time.Second, func() bool { return !ti.PartnerTyping() })
	})

	t.Run("fresh signal rearms the timer instead of stacking", func(t *testing.T) {
		ch := newFakeChannel()
		ti := NewTypingIndicator(ch, testPartner, testExpiry)
		defer ti.Close()

		var offCount int
		ti.OnChange(func(typing bool) {
			if !typing {
				offCount++
			}
		})

		// Sinyal yağmuru — her biri timer'ı sıfırlar
		for i := 0; i < 5; i++ {
			ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: true})
			time.Sleep(testExpiry / 4)
		}
		require.True(t, ti.PartnerTyping())

		waitFor(t, time.Second, func() bool { return !ti.PartnerTyping() })

		// Tek sönme — yığılmış timer'lar olsaydı birden fazla off görülürdü
		time.Sleep(2 * testExpiry)
		assert.Equal(t, 1, offCount)
	})
}

func TestTypingIndicator_Close(t *testing.T) {
	ch := newFakeChannel()
	ti := NewTypingIndicator(ch, testPartner, testExpiry)

	fired := false
	ti.OnChange(func(bool) { fired = true })

	ti.Close()
	ti.Close() // idempotent

	ch.emitTyping(realtime.TypingPayload{SenderID: testPartner, IsTyping: true})
	time.Sleep(2 * testExpiry)

	assert.False(t, fired)
	assert.False(t, ti.PartnerTyping())
}
