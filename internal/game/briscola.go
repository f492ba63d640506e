// internal/game/briscola.go
package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/carteserver/carte/internal/cards"
)

const briscolaVersion = 1

// briscolaPoints is the fixed rank -> points table. All 40 cards together
// are worth 120 points.
var briscolaPoints = map[cards.Rank]int{
	cards.Due:     0,
	cards.Quattro: 0,
	cards.Cinque:  0,
	cards.Sei:     0,
	cards.Sette:   0,
	cards.Fante:   2,
	cards.Cavallo: 3,
	cards.Re:      4,
	cards.Tre:     10,
	cards.Asso:    11,
}

// briscolaOrder ranks cards by trick strength, weakest first.
var briscolaOrder = []cards.Rank{
	cards.Due, cards.Quattro, cards.Cinque, cards.Sei, cards.Sette,
	cards.Fante, cards.Cavallo, cards.Re, cards.Tre, cards.Asso,
}

func briscolaStrength(r cards.Rank) int {
	for i, other := range briscolaOrder {
		if other == r {
			return i
		}
	}
	return -1
}

// playedCard is one card on the trick, in play order.
type playedCard struct {
	Player int        `json:"player"`
	Card   cards.Card `json:"card"`
}

// Briscola is the two-player trump trick-taking engine.
type Briscola struct {
	*baseGame

	briscola      cards.Card
	briscolaDrawn bool
	played        []playedCard
}

// NewBriscola builds a fresh briscola session.
func NewBriscola(id string) *Briscola {
	b := &Briscola{baseGame: newBaseGame("briscola", id, briscolaVersion, 2, 3)}
	b.rules = b
	b.register(&Command{
		Name:          CmdPlay,
		Status:        statusPtr(StatusStarted),
		CurrentPlayer: true,
		Params:        []ParamKind{ParamCard},
		Handler:       b.cmdPlay,
	})
	return b
}

func (b *Briscola) resetRound() {
	b.played = nil
	b.briscolaDrawn = false
}

// dealInitial deals three cards round-robin from the starting seat, then
// reveals the trump card from the deck.
func (b *Briscola) dealInitial(ctx context.Context) error {
	for i := 0; i < b.handSize; i++ {
		for j := 0; j < b.seats; j++ {
			p := b.players[(b.currentPlayer+j)%b.seats]
			if err := b.drawCard(p); err != nil {
				return err
			}
		}
	}

	b.briscola = b.deck[len(b.deck)-1]
	b.deck = b.deck[:len(b.deck)-1]
	b.briscolaDrawn = false
	b.send(EventShowBriscola, b.briscola)
	return nil
}

func (b *Briscola) afterStart(ctx context.Context) error { return nil }

func (b *Briscola) boardState(viewer *Player) []frame {
	var out []frame

	for i, p := range b.players {
		for _, card := range p.Hand {
			if viewer != nil && p.token == viewer.token {
				out = append(out, frame{EventDrawCard, i, card})
			} else {
				out = append(out, frame{EventDrawCard, i})
			}
		}
	}

	if !b.briscolaDrawn {
		out = append(out, frame{EventShowBriscola, b.briscola})
	}

	for _, pc := range b.played {
		if viewer != nil && b.players[pc.Player].token == viewer.token {
			out = append(out, frame{EventDrawCard, pc.Player, pc.Card})
		} else {
			out = append(out, frame{EventDrawCard, pc.Player})
		}
		out = append(out, frame{EventPlayCard, pc.Player, pc.Card})
	}

	for i, p := range b.players {
		if len(p.Captured) > 0 {
			out = append(out, frame{EventPoints, i, len(p.Captured)})
		}
	}

	out = append(out, frame{EventDeckCount, "deck", len(b.deck)})

	if viewer != nil && b.playerIndex(viewer) == b.currentPlayer {
		out = append(out, frame{EventTurn})
	}
	return out
}

// cmdPlay plays one card from the current player's hand. When the trick is
// full it is resolved: the winner collects, leads the next trick and draws
// first; the trump card itself is the last draw once the deck runs dry.
func (b *Briscola) cmdPlay(ctx context.Context, inv *Invocation) error {
	card := inv.Cards[0]
	cp := b.players[b.currentPlayer]
	if !cp.removeFromHand(card) {
		return newRuleError("you don't have that card")
	}

	b.played = append(b.played, playedCard{Player: b.currentPlayer, Card: card})
	b.send(EventPlayCard, b.currentPlayer, card)

	if len(b.played) < b.seats {
		b.nextPlayer()
		b.sendPlayer(b.players[b.currentPlayer], EventTurn)
		return nil
	}

	winner := b.resolveTrick()
	for _, pc := range b.played {
		b.players[winner].Captured = append(b.players[winner].Captured, pc.Card)
	}
	b.played = nil
	b.currentPlayer = winner
	b.send(EventTake, b.currentPlayer)

	if len(b.deck) > 0 {
		for i := 0; i < b.seats; i++ {
			p := b.players[(b.currentPlayer+i)%b.seats]
			if len(b.deck) > 0 {
				if err := b.drawCard(p); err != nil {
					return err
				}
			} else {
				b.briscolaDrawn = true
				p.Hand = append(p.Hand, b.briscola)
				b.send(EventDrawBriscola, b.playerIndex(p))
			}
		}
	} else if lo.EveryBy(b.players, func(p *Player) bool { return len(p.Hand) == 0 }) {
		b.endGame()
		return nil
	}

	b.sendPlayer(b.players[b.currentPlayer], EventTurn)
	return nil
}

// resolveTrick returns the seat of the trick winner: the first card stands
// unless a later card is same-suit-higher or trumps a non-trump.
func (b *Briscola) resolveTrick() int {
	win := b.played[0]
	for _, pc := range b.played[1:] {
		beats := (pc.Card.Suit == win.Card.Suit &&
			briscolaStrength(pc.Card.Rank) > briscolaStrength(win.Card.Rank)) ||
			(pc.Card.Suit == b.briscola.Suit && win.Card.Suit != b.briscola.Suit)
		if beats {
			win = pc
		}
	}
	return win.Player
}

func (b *Briscola) endGame() {
	b.status = StatusEnded
	results := lo.Map(b.players, func(p *Player, _ int) int {
		return lo.SumBy(p.Captured, func(c cards.Card) int { return briscolaPoints[c.Rank] })
	})
	b.sendResults(results)
}

// briscolaState is the suspend/resume serialization of a briscola game.
type briscolaState struct {
	baseState
	Briscola      cards.Card   `json:"briscola"`
	BriscolaDrawn bool         `json:"briscola_drawn"`
	Played        []playedCard `json:"played,omitempty"`
}

func (b *Briscola) Snapshot() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return json.Marshal(briscolaState{
		baseState:     b.baseSnapshot(),
		Briscola:      b.briscola,
		BriscolaDrawn: b.briscolaDrawn,
		Played:        b.played,
	})
}

func restoreBriscola(id string, data []byte) (Game, error) {
	var st briscolaState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode briscola state: %w", err)
	}
	b := NewBriscola(id)
	if err := b.restoreBase(st.baseState); err != nil {
		return nil, err
	}
	b.briscola = st.Briscola
	b.briscolaDrawn = st.BriscolaDrawn
	b.played = st.Played
	return b, nil
}
