package ticketcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShortCode(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		code, err := NewShortCode()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(code, "TK-"))
		assert.Len(t, code, 3+CodeLength)
	})

	t.Run("Alphabet", func(t *testing.T) {
		code, err := NewShortCode()
		require.NoError(t, err)

		for _, ch := range code[3:] {
			assert.Contains(t, alphabet, string(ch), "unexpected character %q", ch)
		}
	})

	t.Run("No Ambiguous Characters", func(t *testing.T) {
		for _, forbidden := range []string{"0", "O", "1", "I", "L", "U"} {
			assert.NotContains(t, alphabet, forbidden)
		}
	})

	t.Run("Distinct Across Generations", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			code, err := NewShortCode()
			require.NoError(t, err)
			assert.False(t, seen[code], "collision on %s after %d codes", code, i)
			seen[code] = true
		}
	})
}

func TestQRPayload(t *testing.T) {
	payload := QRPayload("https://tickets.swiftbus.app/verify", "TK-7XK2M9QD")
	assert.Equal(t, "https://tickets.swiftbus.app/verify/TK-7XK2M9QD", payload)
}
