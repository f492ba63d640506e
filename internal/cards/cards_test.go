// internal/cards/cards_test.go
package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullDeck(t *testing.T) {
	deck := FullDeck()
	require.Len(t, deck, 40)

	seen := make(map[Card]bool)
	for _, c := range deck {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, c := range FullDeck() {
		parsed, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for _, s := range []string{
		"", "denari", "denari:", ":re", "hearts:7", "denari:11",
		"denari:re:extra", "DENARI:7", "denari 7",
	} {
		_, err := Parse(s)
		assert.Error(t, err, "token %q", s)
	}
}

func TestWireForm(t *testing.T) {
	assert.Equal(t, "denari:7", Card{Suit: Denari, Rank: Sette}.String())
	assert.Equal(t, "bastoni:fante", Card{Suit: Bastoni, Rank: Fante}.String())
}

func TestJSONUsesWireForm(t *testing.T) {
	data, err := json.Marshal(Card{Suit: Spade, Rank: Asso})
	require.NoError(t, err)
	assert.Equal(t, `"spade:1"`, string(data))

	var c Card
	require.NoError(t, json.Unmarshal([]byte(`"coppe:re"`), &c))
	assert.Equal(t, Card{Suit: Coppe, Rank: Re}, c)

	assert.Error(t, json.Unmarshal([]byte(`"coppe:11"`), &c))
}

func TestCanonicalOrder(t *testing.T) {
	assert.Equal(t, []Suit{Bastoni, Coppe, Denari, Spade}, Suits())
	assert.Len(t, Ranks(), 10)
	assert.Equal(t, Asso, Ranks()[0])
	assert.Equal(t, Re, Ranks()[9])
}
