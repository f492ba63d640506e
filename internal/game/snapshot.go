// internal/game/snapshot.go
package game

import (
	"fmt"

	"github.com/carteserver/carte/internal/cards"
)

// playerState is a seat as persisted in a suspended game. Tokens are stored
// so a reconnect after resume finds its seat again; the store itself is
// server-side only.
type playerState struct {
	Token      string       `json:"token"`
	Name       string       `json:"name"`
	Ready      bool         `json:"ready"`
	Hand       []cards.Card `json:"hand"`
	Captured   []cards.Card `json:"captured"`
	ScopaCards []cards.Card `json:"scopa_cards,omitempty"`
}

// baseState is the variant-independent part of a snapshot. Variant states
// embed it.
type baseState struct {
	Players        []playerState `json:"players"`
	Deck           []cards.Card  `json:"deck"`
	Status         GameStatus    `json:"status"`
	StartingPlayer int           `json:"starting_player"`
	CurrentPlayer  int           `json:"current_player"`
}

// baseSnapshot captures the shared state. Callers hold the execution lock.
func (g *baseGame) baseSnapshot() baseState {
	st := baseState{
		Players:        make([]playerState, len(g.players)),
		Deck:           g.deck,
		Status:         g.status,
		StartingPlayer: g.startingPlayer,
		CurrentPlayer:  g.currentPlayer,
	}
	for i, p := range g.players {
		st.Players[i] = playerState{
			Token:      p.token,
			Name:       p.Name,
			Ready:      p.Ready,
			Hand:       p.Hand,
			Captured:   p.Captured,
			ScopaCards: p.ScopaCards,
		}
	}
	return st
}

// restoreBase rebuilds the shared state from a snapshot. Connection sets
// start empty; clients re-attach through the normal join path.
func (g *baseGame) restoreBase(st baseState) error {
	if len(st.Players) > g.seats {
		return fmt.Errorf("saved game has %d players, want at most %d", len(st.Players), g.seats)
	}
	if st.Status != StatusNotStarted &&
		(st.CurrentPlayer < 0 || st.CurrentPlayer >= len(st.Players)) {
		return fmt.Errorf("saved game has invalid current player %d", st.CurrentPlayer)
	}

	g.players = make([]*Player, len(st.Players))
	for i, ps := range st.Players {
		p := newPlayer(ps.Token, ps.Name)
		p.Ready = ps.Ready
		p.Hand = ps.Hand
		p.Captured = ps.Captured
		p.ScopaCards = ps.ScopaCards
		g.players[i] = p
	}
	g.deck = st.Deck
	g.status = st.Status
	g.startingPlayer = st.StartingPlayer
	g.currentPlayer = st.CurrentPlayer
	return nil
}
