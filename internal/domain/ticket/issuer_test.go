//go:build unit

package ticket_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"culture-booking/internal/domain/ticket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	t.Run("format is prefix, date, random suffix", func(t *testing.T) {
		id, err := ticket.NewID("EVT", now)
		require.NoError(t, err)

		parts := strings.Split(id, "-")
		require.Len(t, parts, 3)
		assert.Equal(t, "EVT", parts[0])
		assert.Equal(t, "20260315", parts[1])
		assert.Len(t, parts[2], 8)
	})

	t.Run("identifiers minted together differ", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			id, err := ticket.NewID("SCR", now)
			require.NoError(t, err)
			require.False(t, seen[id], "duplicate identifier %s", id)
			seen[id] = true
		}
	})

	t.Run("date component uses UTC", func(t *testing.T) {
		lagos := time.FixedZone("WAT", 3600)
		justPastMidnight := time.Date(2026, 3, 16, 0, 30, 0, 0, lagos)

		id, err := ticket.NewID("TUR", justPastMidnight)
		require.NoError(t, err)
		assert.Contains(t, id, "-20260315-")
	})

	t.Run("empty prefix rejected", func(t *testing.T) {
		_, err := ticket.NewID("", now)
		require.ErrorIs(t, err, ticket.ErrEmptyPrefix)
	})
}

func TestEncodeQR(t *testing.T) {
	t.Run("produces a base64 PNG", func(t *testing.T) {
		encoded, err := ticket.EncodeQR("EVT-20260315-ABCDEFGH")
		require.NoError(t, err)
		require.NotEmpty(t, encoded)

		png, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "payload is not a PNG")
	})

	t.Run("empty identifier rejected", func(t *testing.T) {
		_, err := ticket.EncodeQR("")
		require.ErrorIs(t, err, ticket.ErrEmptyID)
	})
}
