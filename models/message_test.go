package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageRequest_Validate(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		req := SendMessageRequest{Content: "  merhaba  "}
		require.NoError(t, req.Validate())
		assert.Equal(t, "merhaba", req.Content)
	})

	t.Run("rejects empty and whitespace-only content", func(t *testing.T) {
		for _, content := range []string{"", "   ", "\n\t"} {
			req := SendMessageRequest{Content: content}
			assert.Error(t, req.Validate(), "content %q should be rejected", content)
		}
	})

	t.Run("limit is counted in runes, not bytes", func(t *testing.T) {
		// "ş" UTF-8'de 2 byte — 500 tanesi 1000 byte ama 500 rune
		req := SendMessageRequest{Content: strings.Repeat("ş", MaxContentRunes)}
		assert.NoError(t, req.Validate())

		req = SendMessageRequest{Content: strings.Repeat("ş", MaxContentRunes+1)}
		assert.Error(t, req.Validate())
	})
}

func TestMessage_IsPlaceholder(t *testing.T) {
	placeholder := Message{ID: NewPlaceholderID()}
	assert.True(t, placeholder.IsPlaceholder())

	persisted := Message{ID: "2f4c9e2a-7c1d-4c6e-9f3a-111111111111"}
	assert.False(t, persisted.IsPlaceholder())
}

func TestNewPlaceholderID_Unique(t *testing.T) {
	assert.NotEqual(t, NewPlaceholderID(), NewPlaceholderID())
}

func TestRemainingRunes(t *testing.T) {
	assert.Equal(t, MaxContentRunes, RemainingRunes(""))
	assert.Equal(t, MaxContentRunes-5, RemainingRunes("selam"))
	assert.Equal(t, 0, RemainingRunes(strings.Repeat("a", MaxContentRunes)))
	// Sınır aşımında negatif dönmez
	assert.Equal(t, 0, RemainingRunes(strings.Repeat("a", MaxContentRunes+10)))
}
