// internal/game/scopa_test.go
package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carteserver/carte/internal/cards"
)

// craftedScopa builds a started scopa game whose hands, table and deck the
// test sets directly.
func craftedScopa(t *testing.T) (*Scopa, []*Conn, []*frameRecorder) {
	t.Helper()
	g := NewScopa("test")
	conns, recs := seatPlayers(g.baseGame)
	g.status = StatusStarted
	g.startingPlayer = 0
	g.currentPlayer = 0
	g.playing = PlayingHand
	return g, conns, recs
}

func TestCheckCombinations(t *testing.T) {
	tests := []struct {
		name   string
		target int
		values []int
		want   []int
	}{
		{"several overlapping sums", 10, []int{7, 6, 4, 3, 1}, []int{1, 3, 4, 6, 7}},
		{"partial participation", 5, []int{4, 2, 1}, []int{1, 4}},
		{"exact single value", 3, []int{3, 2, 1}, []int{1, 2, 3}},
		{"duplicate values", 4, []int{3, 3, 1}, []int{1, 3}},
		{"nothing combines", 7, []int{10, 9, 8}, nil},
		{"empty table", 7, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkCombinations(tt.target, tt.values, 0)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCalculateTakeable(t *testing.T) {
	s := NewScopa("test")
	s.table = mustCards(t, "denari:1", "spade:6", "coppe:4", "bastoni:2")

	got := s.calculateTakeable(mustCard(t, "coppe:7"), nil)
	assert.Equal(t, s.table, got, "every table card joins some sum to 7")

	got = s.calculateTakeable(mustCard(t, "coppe:7"), mustCards(t, "spade:6"))
	assert.Equal(t, mustCards(t, "denari:1"), got, "only the asso completes the remainder")

	s.table = mustCards(t, "coppe:re", "spade:fante")
	got = s.calculateTakeable(mustCard(t, "denari:7"), nil)
	assert.Empty(t, got, "court cards exceed the target")
}

func TestSameRankCaptureIsForced(t *testing.T) {
	s := NewScopa("test")
	s.table = mustCards(t, "coppe:3", "denari:1", "spade:2")

	// 1+2 also sums to 3, but the rank match preempts the search.
	got := s.checkPlayingCard(mustCard(t, "bastoni:3"))
	assert.Equal(t, mustCards(t, "coppe:3"), got)

	s.table = mustCards(t, "denari:1", "spade:2")
	got = s.checkPlayingCard(mustCard(t, "bastoni:3"))
	assert.Equal(t, mustCards(t, "denari:1", "spade:2"), got)
}

func TestPlayToTableAdvancesTurn(t *testing.T) {
	ctx := context.Background()
	g, conns, recs := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:re")
	g.players[1].Hand = mustCards(t, "spade:1")
	g.table = mustCards(t, "spade:2")

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:re"}))

	assert.Equal(t, mustCards(t, "spade:2", "coppe:re"), g.table)
	assert.Empty(t, g.players[0].Hand)
	assert.Equal(t, 1, g.currentPlayer)
	assert.Equal(t, PlayingHand, g.playing)
	assert.True(t, recs[1].contains("play_card|0|coppe:re"))
	assert.True(t, recs[1].contains("turn_status|hand"))
	assert.NotNil(t, recs[1].last(EventTurn))
}

func TestPlayOutsideHandPhase(t *testing.T) {
	ctx := context.Background()
	g, conns, _ := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:7", "coppe:re")
	g.playing = PlayingCapture
	g.active = mustCard(t, "coppe:7")

	err := g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:re"})
	ce := asCmdError(t, err)
	assert.Equal(t, ErrorRule, ce.Kind)
	assert.Equal(t, "you can't play a card now", ce.Message)
}

func TestCaptureChoiceFlow(t *testing.T) {
	ctx := context.Background()
	g, conns, recs := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:7")
	g.players[1].Hand = mustCards(t, "spade:re")
	g.table = mustCards(t, "denari:1", "spade:6", "coppe:4", "bastoni:2")

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:7"}))

	assert.Equal(t, PlayingCapture, g.playing)
	assert.Equal(t, mustCard(t, "coppe:7"), g.active)
	assert.True(t, recs[1].contains("activate_card|0|coppe:7"))
	assert.Equal(t,
		[]string{"capture_takeable_cards", "denari:1", "spade:6", "coppe:4", "bastoni:2"},
		recs[0].last(EventCaptureTakeable))
	assert.Nil(t, recs[1].last(EventCaptureTakeable), "choices are private to the player")
	assert.True(t, recs[1].contains("turn_status|capture"))

	// Selecting the sei prunes the offer to what still completes the sum.
	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"spade:6"}))
	assert.Equal(t, mustCards(t, "spade:6"), g.selected)
	assert.Equal(t, mustCards(t, "denari:1"), g.takeable)
	assert.Equal(t,
		[]string{"capture_takeable_cards", "spade:6", "coppe:4", "bastoni:2"},
		recs[0].last(EventCaptureTakeable))
	assert.True(t, recs[1].contains("capture_selected_cards|spade:6"))

	// Completing the sum captures the active card plus the selection.
	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"denari:1"}))
	assert.Equal(t, mustCards(t, "coppe:7", "spade:6", "denari:1"), g.players[0].Captured)
	assert.Equal(t, mustCards(t, "coppe:4", "bastoni:2"), g.table)
	assert.True(t, recs[1].contains("take|0|0"))
	assert.Equal(t, 0, g.lastTaker)
	assert.Empty(t, g.players[0].ScopaCards)
	assert.Equal(t, PlayingHand, g.playing)
	assert.Equal(t, 1, g.currentPlayer)
	assert.Empty(t, g.takeable)
	assert.Empty(t, g.selected)
	assert.NotNil(t, recs[1].last(EventTurn))
}

func TestDeselectRestoresOffer(t *testing.T) {
	ctx := context.Background()
	g, conns, recs := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:7")
	g.players[1].Hand = mustCards(t, "spade:re")
	g.table = mustCards(t, "denari:1", "spade:6", "coppe:4", "bastoni:2")

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:7"}))
	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"spade:6"}))
	recs[0].clear()

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"spade:6"}))

	assert.Empty(t, g.selected)
	assert.Equal(t, mustCards(t, "denari:1", "spade:6", "coppe:4", "bastoni:2"), g.takeable)
	assert.Equal(t,
		[]string{"capture_takeable_cards", "spade:6", "coppe:4", "bastoni:2"},
		recs[0].last(EventCaptureTakeable))
	assert.Equal(t, PlayingCapture, g.playing)
}

func TestTakeChoiceRejections(t *testing.T) {
	ctx := context.Background()
	g, conns, _ := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:7")
	g.players[1].Hand = mustCards(t, "spade:re")
	g.table = mustCards(t, "denari:1", "spade:6", "coppe:4", "bastoni:2")

	err := g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"denari:1"})
	ce := asCmdError(t, err)
	assert.Equal(t, "you can't take a card now", ce.Message)

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:7"}))

	// A card that is neither offered nor selected cannot be toggled.
	err = g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"spade:re"})
	ce = asCmdError(t, err)
	assert.Equal(t, ErrorRule, ce.Kind)
	assert.Equal(t, "you can't swap that card", ce.Message)
}

func TestScopaSweepAwardsCard(t *testing.T) {
	ctx := context.Background()
	g, conns, recs := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:3")
	g.players[1].Hand = mustCards(t, "spade:re")
	g.table = mustCards(t, "spade:3")

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:3"}))
	assert.Equal(t, PlayingCapture, g.playing)
	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdTakeChoice, []string{"spade:3"}))

	assert.Empty(t, g.table)
	assert.True(t, recs[1].contains("take|0|1"))
	assert.Equal(t, mustCards(t, "coppe:3"), g.players[0].ScopaCards)
	assert.Equal(t, mustCards(t, "coppe:3", "spade:3"), g.players[0].Captured)
}

func TestLeftoversGoToLastTaker(t *testing.T) {
	ctx := context.Background()
	g, conns, recs := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:re")
	g.players[1].Hand = nil
	g.table = mustCards(t, "spade:2")
	g.deck = nil
	g.lastTaker = 1

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:re"}))

	assert.Equal(t, StatusEnded, g.Status())
	assert.True(t, recs[0].contains("take_all|1"))
	assert.True(t, recs[0].contains("results_prepare"))
	assert.Equal(t, []string{"results_detail", "cards", "0", "2"},
		recs[0].last(EventResultsDetail+"|cards"))
	assert.Equal(t, []string{"results_detail", "settebello", "0", "0"},
		recs[0].last(EventResultsDetail+"|settebello"))
	assert.Equal(t, []string{"results", "1", "2"}, recs[0].last(EventResults))
}

func TestRedealWhenHandsEmpty(t *testing.T) {
	ctx := context.Background()
	g, conns, _ := craftedScopa(t)
	g.players[0].Hand = mustCards(t, "coppe:re")
	g.players[1].Hand = nil
	g.table = mustCards(t, "spade:2")
	g.deck = stackDeck(t,
		"denari:1", "denari:2", "denari:3", "denari:4", "denari:5", "denari:6",
		"spade:1", "spade:3", "spade:4", "spade:5", "spade:6", "spade:7",
	)

	require.NoError(t, g.HandleCommand(ctx, conns[0], CmdPlay, []string{"coppe:re"}))

	assert.Equal(t, StatusStarted, g.Status())
	assert.Empty(t, g.deck)
	assert.Len(t, g.players[0].Hand, 6)
	assert.Len(t, g.players[1].Hand, 6)
	assert.Equal(t, 1, g.currentPlayer)
	// The new deal starts from the seat about to act.
	assert.Equal(t, mustCard(t, "denari:1"), g.players[1].Hand[0])
}

func TestPrimieraScoring(t *testing.T) {
	g, _, recs := craftedScopa(t)
	g.players[0].Captured = mustCards(t, "bastoni:7", "coppe:7", "denari:7", "spade:7")
	g.players[1].Captured = mustCards(t, "bastoni:6", "coppe:6", "denari:6", "spade:1")

	pts := g.resultsPrimiera()
	assert.Equal(t, []int{1, 0}, pts)

	detail := recs[0].last(EventResultsDetail + "|primiera")
	require.NotNil(t, detail)
	assert.Equal(t, []int{84, 70}, frameInts(t, detail, 2, 2))
	// Per suit, the rank each player counted.
	assert.Equal(t, []string{"bastoni", "7", "6", "coppe", "7", "6", "denari", "7", "6", "spade", "7", "1"},
		detail[4:])
}

func TestPrimieraTieScoresNothing(t *testing.T) {
	g, _, _ := craftedScopa(t)
	g.players[0].Captured = mustCards(t, "bastoni:7")
	g.players[1].Captured = mustCards(t, "coppe:7")

	assert.Equal(t, []int{0, 0}, g.resultsPrimiera())
}

func TestAwardCategory(t *testing.T) {
	assert.Equal(t, []int{1, 0}, awardCategory([]int{21, 19}, 20))
	assert.Equal(t, []int{0, 1}, awardCategory([]int{19, 21}, 20))
	assert.Equal(t, []int{0, 0}, awardCategory([]int{20, 20}, 20))
	assert.Equal(t, []int{0, 0}, awardCategory([]int{5, 5}, 5))
	assert.Equal(t, []int{0, 1}, awardCategory([]int{4, 6}, 5))
}

func TestFullSeededGames(t *testing.T) {
	ctx := context.Background()

	for _, seed := range []int64{1, 2, 3, 4, 5} {
		g, conns, recs := startedScopa(t, seed)

		turns := 0
		for g.Status() == StatusStarted {
			require.Less(t, turns, 500, "seed %d", seed)
			turns++

			groups := [][]cards.Card{g.deck, g.table}
			for _, p := range g.players {
				groups = append(groups, p.Hand, p.Captured)
			}
			assertFullPartition(t, groups...)

			idx := g.currentPlayer
			if g.playing == PlayingCapture {
				require.NotEmpty(t, g.takeable, "seed %d: offer must stay completable", seed)
				require.NoError(t, g.HandleCommand(ctx, conns[idx], CmdTakeChoice,
					[]string{g.takeable[0].String()}))
			} else {
				card := g.players[idx].Hand[0]
				require.NoError(t, g.HandleCommand(ctx, conns[idx], CmdPlay,
					[]string{card.String()}))
			}
		}

		cardCounts := frameInts(t, recs[0].last(EventResultsDetail+"|cards"), 2, 2)
		denari := frameInts(t, recs[0].last(EventResultsDetail+"|denari"), 2, 2)
		primiera := frameInts(t, recs[0].last(EventResultsDetail+"|primiera"), 2, 2)
		sette := frameInts(t, recs[0].last(EventResultsDetail+"|settebello"), 2, 2)
		scopas := frameInts(t, recs[0].last(EventResultsDetail+"|scopa"), 2, 2)

		assert.Equal(t, 40, cardCounts[0]+cardCounts[1], "seed %d", seed)
		assert.Equal(t, 10, denari[0]+denari[1], "seed %d", seed)
		assert.Equal(t, 1, sette[0]+sette[1], "seed %d", seed)

		// The scopa detail must agree with the sweeps announced during play.
		for i := 0; i < 2; i++ {
			assert.Equal(t, scopas[i], recs[0].count("take|"+[]string{"0", "1"}[i]+"|1"),
				"seed %d", seed)
		}

		// The summed result must follow from the category details.
		expected := make([]int, 2)
		for i, pts := range awardCategory(cardCounts, 20) {
			expected[i] += pts
		}
		for i, pts := range awardCategory(denari, 5) {
			expected[i] += pts
		}
		if primiera[0] != primiera[1] {
			if primiera[0] > primiera[1] {
				expected[0]++
			} else {
				expected[1]++
			}
		}
		for i := 0; i < 2; i++ {
			expected[i] += sette[i] + scopas[i]
		}

		results := frameInts(t, recs[0].last(EventResults), 1, 2)
		assert.Equal(t, expected, results, "seed %d", seed)
	}
}

func TestSeededScopaIsDeterministic(t *testing.T) {
	ctx := context.Background()

	run := func() []string {
		g, conns, recs := startedScopa(t, 42)
		for g.Status() == StatusStarted {
			idx := g.currentPlayer
			if g.playing == PlayingCapture {
				require.NoError(t, g.HandleCommand(ctx, conns[idx], CmdTakeChoice,
					[]string{g.takeable[0].String()}))
			} else {
				require.NoError(t, g.HandleCommand(ctx, conns[idx], CmdPlay,
					[]string{g.players[idx].Hand[0].String()}))
			}
		}
		return recs[0].all()
	}

	assert.Equal(t, run(), run())
}

func TestScopaBoardStateCapsPileHeight(t *testing.T) {
	g, _, _ := craftedScopa(t)
	g.players[0].Captured = cards.FullDeck()[:20]
	g.players[0].ScopaCards = mustCards(t, "bastoni:1")

	var points []any
	for _, f := range g.boardState(g.players[1]) {
		if f[0] == EventPoints && f[1] == 0 {
			points = f
		}
	}
	require.NotNil(t, points)
	assert.Equal(t, 6, points[2])
}
