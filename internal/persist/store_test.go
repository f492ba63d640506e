// internal/persist/store_test.go
package persist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carteserver/carte/internal/game"
)

func TestSavedGameValidity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		savedAt time.Time
		version int
		want    bool
	}{
		{"fresh and current", now.Add(-time.Hour), 1, true},
		{"saved just now", now, 1, true},
		{"exactly at the deadline", now.Add(-DefaultTTL), 1, true},
		{"past the deadline", now.Add(-DefaultTTL - time.Second), 1, false},
		{"stale rule version", now.Add(-time.Hour), 0, false},
		{"future rule version", now.Add(-time.Hour), 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &SavedGame{Version: tt.version, SavedAt: tt.savedAt}
			assert.Equal(t, tt.want, entry.Valid(1, DefaultTTL, now))
		})
	}
}

func TestRedisKeyRoundTrip(t *testing.T) {
	k := game.Key{Type: "scopa", ID: "friday-night"}
	assert.Equal(t, "carte:saved:scopa:friday-night", redisKey(k))

	parsed, ok := parseKey(redisKey(k))
	assert.True(t, ok)
	assert.Equal(t, k, parsed)

	// Ids may themselves contain the separator; only the first one splits.
	k = game.Key{Type: "briscola", ID: "a:b"}
	parsed, ok = parseKey(redisKey(k))
	assert.True(t, ok)
	assert.Equal(t, k, parsed)

	_, ok = parseKey("other:namespace:x")
	assert.False(t, ok)
	_, ok = parseKey("carte:saved:noseparator")
	assert.False(t, ok)
}
