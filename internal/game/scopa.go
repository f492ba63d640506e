// internal/game/scopa.go
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/carteserver/carte/internal/cards"
)

const (
	scopaVersion   = 1
	scopaTableSize = 4
)

// scopaValues is the capture value of each rank.
var scopaValues = map[cards.Rank]int{
	cards.Asso:    1,
	cards.Due:     2,
	cards.Tre:     3,
	cards.Quattro: 4,
	cards.Cinque:  5,
	cards.Sei:     6,
	cards.Sette:   7,
	cards.Fante:   8,
	cards.Cavallo: 9,
	cards.Re:      10,
}

// primieraValues is the fixed primiera table, distinct from face value.
var primieraValues = map[cards.Rank]int{
	cards.Sette:   21,
	cards.Sei:     18,
	cards.Asso:    16,
	cards.Cinque:  15,
	cards.Quattro: 14,
	cards.Tre:     13,
	cards.Due:     12,
	cards.Re:      10,
	cards.Cavallo: 10,
	cards.Fante:   10,
}

// settebello is the single named card worth a point on its own.
var settebello = cards.Card{Suit: cards.Denari, Rank: cards.Sette}

// PlayingStatus is scopa's in-turn sub-machine.
type PlayingStatus string

const (
	PlayingHand         PlayingStatus = "hand"
	PlayingCapture      PlayingStatus = "capture"
	PlayingTurnFinished PlayingStatus = "turn_finished"
)

func (s PlayingStatus) String() string { return string(s) }

// Scopa is the two-player capture engine: played cards take table cards
// whose values sum to the played card's value.
type Scopa struct {
	*baseGame

	table     []cards.Card
	playing   PlayingStatus
	lastTaker int

	// Capture decision state, meaningful only while playing == capture.
	active   cards.Card
	takeable []cards.Card
	selected []cards.Card
}

// NewScopa builds a fresh scopa session.
func NewScopa(id string) *Scopa {
	s := &Scopa{baseGame: newBaseGame("scopa", id, scopaVersion, 2, 6)}
	s.rules = s
	s.playing = PlayingHand
	s.register(
		&Command{
			Name:          CmdPlay,
			Status:        statusPtr(StatusStarted),
			CurrentPlayer: true,
			Params:        []ParamKind{ParamCard},
			Handler:       s.cmdPlay,
		},
		&Command{
			Name:          CmdTakeChoice,
			Status:        statusPtr(StatusStarted),
			CurrentPlayer: true,
			Params:        []ParamKind{ParamCard},
			Handler:       s.cmdTakeChoice,
		},
	)
	return s
}

func (s *Scopa) resetRound() {
	s.table = nil
	s.playing = PlayingHand
	s.lastTaker = 0
	s.active = cards.Card{}
	s.takeable = nil
	s.selected = nil
}

func (s *Scopa) dealInitial(ctx context.Context) error {
	if err := s.dealFullHands(); err != nil {
		return err
	}
	for i := 0; i < scopaTableSize; i++ {
		card := s.deck[len(s.deck)-1]
		s.deck = s.deck[:len(s.deck)-1]
		s.table = append(s.table, card)
		s.send(EventAddToTable, card)
	}
	return nil
}

func (s *Scopa) afterStart(ctx context.Context) error {
	s.sendPlayer(s.players[s.currentPlayer], EventTurnStatus, s.playing)
	return nil
}

func (s *Scopa) dealFullHands() error {
	for i := 0; i < s.handSize; i++ {
		for j := 0; j < s.seats; j++ {
			p := s.players[(s.currentPlayer+j)%s.seats]
			if err := s.drawCard(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scopa) boardState(viewer *Player) []frame {
	var out []frame

	for i, p := range s.players {
		for _, card := range p.Hand {
			if viewer != nil && p.token == viewer.token {
				out = append(out, frame{EventDrawCard, i, card})
			} else {
				out = append(out, frame{EventDrawCard, i})
			}
		}
	}

	for _, card := range s.table {
		out = append(out, frame{EventAddToTable, card})
	}

	// Pile heights are capped so the replay does not leak how many cards an
	// opponent captured late in the hand.
	for i, p := range s.players {
		if len(p.Captured) > 0 {
			out = append(out, frame{EventPoints, i, min(len(p.Captured)-len(p.ScopaCards), 6)})
		}
		if len(p.ScopaCards) > 0 {
			f := frame{EventPointsScopa, i}
			for _, c := range p.ScopaCards {
				f = append(f, c)
			}
			out = append(out, f)
		}
	}

	out = append(out, frame{EventDeckCount, "deck", len(s.deck)})

	out = append(out, frame{EventTurnStatus, s.playing})
	if s.playing == PlayingCapture {
		out = append(out, frame{EventActivateCard, s.currentPlayer, s.active})
		if viewer != nil && s.playerIndex(viewer) == s.currentPlayer {
			f := frame{EventCaptureTakeable}
			for _, c := range s.takeable {
				f = append(f, c)
			}
			out = append(out, f)
		}
		f := frame{EventCaptureSelected}
		for _, c := range s.selected {
			f = append(f, c)
		}
		out = append(out, f)
	}

	if viewer != nil && s.playerIndex(viewer) == s.currentPlayer {
		out = append(out, frame{EventTurn})
	}
	return out
}

// cmdPlay plays a card from the hand. A rank match on the table forces that
// capture; otherwise the subset-sum search decides between offering a
// capture choice and dropping the card on the table.
func (s *Scopa) cmdPlay(ctx context.Context, inv *Invocation) error {
	if s.playing != PlayingHand {
		return newRuleError("you can't play a card now")
	}
	card := inv.Cards[0]
	cp := s.players[s.currentPlayer]
	if !cp.holds(card) {
		return newRuleError("you don't have that card")
	}

	takeable := s.checkPlayingCard(card)

	if len(takeable) == 0 {
		s.send(EventPlayCard, s.currentPlayer, card)
		cp.removeFromHand(card)
		s.table = append(s.table, card)
		s.playing = PlayingTurnFinished
	} else {
		s.active = card
		s.takeable = takeable
		s.selected = nil
		s.send(EventActivateCard, s.currentPlayer, card)
		s.sendPlayer(cp, append(frame{EventCaptureTakeable}, cardsToArgs(takeable)...)...)
		s.playing = PlayingCapture
	}

	if s.playing == PlayingTurnFinished {
		finished, err := s.finishTurn()
		if err != nil || finished {
			return err
		}
	}

	s.send(EventTurnStatus, s.playing)
	s.sendPlayer(s.players[s.currentPlayer], EventTurn)
	return nil
}

// cmdTakeChoice toggles one table card between offered and selected. Only
// the symmetric difference of the recomputed takeable set is sent back, plus
// the toggled card itself; the client tracks cumulative state. A selection
// summing to the active card's value completes the capture.
func (s *Scopa) cmdTakeChoice(ctx context.Context, inv *Invocation) error {
	if s.playing != PlayingCapture {
		return newRuleError("you can't take a card now")
	}
	card := inv.Cards[0]

	inTakeable := containsCard(s.takeable, card)
	if !inTakeable && !containsCard(s.selected, card) {
		return newRuleError("you can't swap that card")
	}

	oldTakeable := s.takeable
	if inTakeable {
		s.takeable = removeCard(s.takeable, card)
		s.selected = append(s.selected, card)
	} else {
		s.selected = removeCard(s.selected, card)
		s.takeable = append(s.takeable, card)
	}

	selectedSum := lo.SumBy(s.selected, func(c cards.Card) int { return scopaValues[c.Rank] })

	// Recompute what is still combinable, excluding the selection, and
	// publish only the membership delta.
	newTakeable := s.calculateTakeable(s.active, s.selected)
	delta := symmetricDiff(oldTakeable, newTakeable)
	s.takeable = newTakeable

	cp := s.players[s.currentPlayer]
	s.sendPlayer(cp, append(frame{EventCaptureTakeable}, cardsToArgs(delta)...)...)
	s.send(EventCaptureSelected, card)

	if selectedSum == scopaValues[s.active.Rank] {
		cp.removeFromHand(s.active)
		cp.Captured = append(cp.Captured, s.active)
		s.table = lo.Filter(s.table, func(c cards.Card, _ int) bool {
			return !containsCard(s.selected, c)
		})
		cp.Captured = append(cp.Captured, s.selected...)

		isScopa := len(s.table) == 0
		s.send(EventTake, s.currentPlayer, boolToInt(isScopa))
		s.lastTaker = s.currentPlayer
		if isScopa {
			cp.ScopaCards = append(cp.ScopaCards, s.active)
		}

		s.playing = PlayingHand
		s.active = cards.Card{}
		s.takeable = nil
		s.selected = nil
		s.send(EventTurnStatus, s.playing)

		finished, err := s.finishTurn()
		if err != nil || finished {
			return err
		}
	}

	s.sendPlayer(s.players[s.currentPlayer], EventTurn)
	return nil
}

// finishTurn advances the turn and handles the hand boundary: redeal while
// the deck lasts, otherwise leftovers to the last taker and final scoring.
// It reports true when the game ended.
func (s *Scopa) finishTurn() (bool, error) {
	s.nextPlayer()

	if lo.EveryBy(s.players, func(p *Player) bool { return len(p.Hand) == 0 }) {
		if len(s.deck) > 0 {
			if err := s.dealFullHands(); err != nil {
				return false, err
			}
		} else {
			if len(s.table) > 0 {
				s.send(EventTakeAll, s.lastTaker)
				last := s.players[s.lastTaker]
				last.Captured = append(last.Captured, s.table...)
				s.table = nil
			}

			s.status = StatusEnded
			s.send(EventResultsPrepare)

			cardsPts := s.resultsCards()
			denariPts := s.resultsDenari()
			primieraPts := s.resultsPrimiera()
			settebelloPts := s.resultsSettebello()

			scopaPts := lo.Map(s.players, func(p *Player, _ int) int { return len(p.ScopaCards) })
			s.send(append(frame{EventResultsDetail, "scopa"}, intsToArgs(scopaPts)...)...)

			results := make([]int, len(s.players))
			for i := range results {
				results[i] = scopaPts[i] + cardsPts[i] + denariPts[i] + primieraPts[i] + settebelloPts[i]
			}
			s.sendResults(results)
			return true, nil
		}
	}

	s.playing = PlayingHand
	return false, nil
}

// checkPlayingCard decides what the played card may capture. A same-rank
// table card is a forced capture; only without one does the combination
// search run.
func (s *Scopa) checkPlayingCard(card cards.Card) []cards.Card {
	sameRank := lo.Filter(s.table, func(c cards.Card, _ int) bool { return c.Rank == card.Rank })
	if len(sameRank) > 0 {
		return sameRank
	}
	return s.calculateTakeable(card, nil)
}

// calculateTakeable returns, in table order, every unselected table card
// whose value participates in at least one combination summing exactly to
// the active card's remaining value (its value minus the selected sum).
func (s *Scopa) calculateTakeable(card cards.Card, used []cards.Card) []cards.Card {
	target := scopaValues[card.Rank]
	target -= lo.SumBy(used, func(c cards.Card) int { return scopaValues[c.Rank] })

	var values []int
	for _, c := range s.table {
		if containsCard(used, c) {
			continue
		}
		if v := scopaValues[c.Rank]; v <= target {
			values = append(values, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	valid := checkCombinations(target, values, 0)
	validSet := lo.SliceToMap(valid, func(v int) (int, struct{}) { return v, struct{}{} })

	return lo.Filter(s.table, func(c cards.Card, _ int) bool {
		if containsCard(used, c) {
			return false
		}
		_, ok := validSet[scopaValues[c.Rank]]
		return ok
	})
}

// checkCombinations returns the sorted distinct values, among values[start:],
// that either equal target exactly or participate in some recursive
// completion of it. Values must not exceed target and arrive sorted
// descending.
func checkCombinations(target int, values []int, start int) []int {
	out := map[int]struct{}{}
	for i := start; i < len(values); i++ {
		v := values[i]
		rem := target - v
		if rem < 0 {
			continue
		}
		if rem == 0 {
			out[v] = struct{}{}
			continue
		}
		rec := checkCombinations(rem, values, i+1)
		if len(rec) > 0 {
			out[v] = struct{}{}
			for _, r := range rec {
				out[r] = struct{}{}
			}
		}
	}
	keys := lo.Keys(out)
	sort.Ints(keys)
	return keys
}

// Each results category broadcasts its own results_detail frame and returns
// the per-player points it awards, so clients can render a breakdown before
// the summed result arrives.

func (s *Scopa) resultsCards() []int {
	scores := lo.Map(s.players, func(p *Player, _ int) int { return len(p.Captured) })
	s.send(append(frame{EventResultsDetail, "cards"}, intsToArgs(scores)...)...)
	return awardCategory(scores, 20)
}

func (s *Scopa) resultsDenari() []int {
	scores := lo.Map(s.players, func(p *Player, _ int) int {
		return lo.CountBy(p.Captured, func(c cards.Card) bool { return c.Suit == cards.Denari })
	})
	s.send(append(frame{EventResultsDetail, "denari"}, intsToArgs(scores)...)...)
	return awardCategory(scores, 5)
}

// resultsPrimiera scores the best card per suit under the primiera table and
// details, per suit, which rank each player counted ("0" for a missing suit).
func (s *Scopa) resultsPrimiera() []int {
	scores := make([]int, len(s.players))
	bestRanks := make([][]string, len(s.players))

	for i, p := range s.players {
		bestRanks[i] = make([]string, len(cards.Suits()))
		for j, suit := range cards.Suits() {
			suitCards := lo.Filter(p.Captured, func(c cards.Card, _ int) bool { return c.Suit == suit })
			if len(suitCards) == 0 {
				bestRanks[i][j] = "0"
				continue
			}
			best := lo.MaxBy(suitCards, func(a, b cards.Card) bool {
				return primieraValues[a.Rank] > primieraValues[b.Rank]
			})
			scores[i] += primieraValues[best.Rank]
			bestRanks[i][j] = string(best.Rank)
		}
	}

	detail := append(frame{EventResultsDetail, "primiera"}, intsToArgs(scores)...)
	for j, suit := range cards.Suits() {
		detail = append(detail, suit)
		for i := range s.players {
			detail = append(detail, bestRanks[i][j])
		}
	}
	s.send(detail...)

	sorted := append([]int(nil), scores...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	results := make([]int, len(s.players))
	if sorted[0] != sorted[1] {
		results[lo.IndexOf(scores, sorted[0])]++
	}
	return results
}

func (s *Scopa) resultsSettebello() []int {
	out := lo.Map(s.players, func(p *Player, _ int) int {
		return boolToInt(containsCard(p.Captured, settebello))
	})
	s.send(append(frame{EventResultsDetail, "settebello"}, intsToArgs(out)...)...)
	return out
}

// awardCategory gives one point to the highest score, with the named tie
// value (an even split of the category total) scoring nothing for anyone.
func awardCategory(scores []int, tie int) []int {
	results := make([]int, len(scores))
	max := lo.Max(scores)
	if max != tie {
		results[lo.IndexOf(scores, max)]++
	}
	return results
}

func containsCard(list []cards.Card, card cards.Card) bool {
	for _, c := range list {
		if c == card {
			return true
		}
	}
	return false
}

// removeCard copies; callers keep aliases of the input for delta diffing.
func removeCard(list []cards.Card, card cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(list))
	for _, c := range list {
		if c != card {
			out = append(out, c)
		}
	}
	return out
}

// symmetricDiff returns the cards in exactly one of the two sets, before-side
// members first, in their original order.
func symmetricDiff(before, after []cards.Card) []cards.Card {
	var out []cards.Card
	for _, c := range before {
		if !containsCard(after, c) {
			out = append(out, c)
		}
	}
	for _, c := range after {
		if !containsCard(before, c) {
			out = append(out, c)
		}
	}
	return out
}

func cardsToArgs(list []cards.Card) []any {
	out := make([]any, len(list))
	for i, c := range list {
		out[i] = c
	}
	return out
}

func intsToArgs(list []int) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scopaState is the suspend/resume serialization of a scopa game.
type scopaState struct {
	baseState
	Table     []cards.Card  `json:"table"`
	Playing   PlayingStatus `json:"playing"`
	LastTaker int           `json:"last_taker"`
	Active    *cards.Card   `json:"active,omitempty"`
	Takeable  []cards.Card  `json:"takeable,omitempty"`
	Selected  []cards.Card  `json:"selected,omitempty"`
}

func (s *Scopa) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := scopaState{
		baseState: s.baseSnapshot(),
		Table:     s.table,
		Playing:   s.playing,
		LastTaker: s.lastTaker,
		Takeable:  s.takeable,
		Selected:  s.selected,
	}
	if s.playing == PlayingCapture {
		active := s.active
		st.Active = &active
	}
	return json.Marshal(st)
}

func restoreScopa(id string, data []byte) (Game, error) {
	var st scopaState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode scopa state: %w", err)
	}
	s := NewScopa(id)
	if err := s.restoreBase(st.baseState); err != nil {
		return nil, err
	}
	s.table = st.Table
	s.playing = st.Playing
	s.lastTaker = st.LastTaker
	if st.Active != nil {
		s.active = *st.Active
	}
	s.takeable = st.Takeable
	s.selected = st.Selected
	return s, nil
}
