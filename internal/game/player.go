// internal/game/player.go
package game

import "github.com/carteserver/carte/internal/cards"

// Player is one seat in a game. Identity is the session token alone; the
// display name is mutable and never part of equality. A player with zero
// attached connections is disconnected but keeps its seat, hand and pile so
// a reconnect resumes where it left off.
type Player struct {
	token string

	Name  string
	Ready bool

	Hand     []cards.Card
	Captured []cards.Card

	// ScopaCards holds the cards that earned a clean sweep. Only the scopa
	// engine appends to it.
	ScopaCards []cards.Card

	conns map[*Conn]struct{}
}

func newPlayer(token, name string) *Player {
	return &Player{token: token, Name: name, conns: make(map[*Conn]struct{})}
}

func (p *Player) Token() string {
	return p.token
}

func (p *Player) attach(c *Conn) {
	p.conns[c] = struct{}{}
}

func (p *Player) detach(c *Conn) {
	delete(p.conns, c)
}

func (p *Player) hasConn(c *Conn) bool {
	_, ok := p.conns[c]
	return ok
}

// reset clears the per-hand state between rematches. The seat and token stay.
func (p *Player) reset() {
	p.Ready = false
	p.Hand = nil
	p.Captured = nil
	p.ScopaCards = nil
}

func (p *Player) removeFromHand(card cards.Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Player) holds(card cards.Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}
