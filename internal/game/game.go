// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/carteserver/carte/internal/cards"
)

// GameStatus is the lifecycle state of a game session.
type GameStatus int

const (
	StatusNotStarted GameStatus = iota
	StatusStarted
	StatusEnded
)

func (s GameStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusStarted:
		return "started"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Game is the interface the connection layer drives. Both rule engines embed
// baseGame and add their Snapshot.
type Game interface {
	Type() string
	ID() string
	Version() int
	Status() GameStatus

	// HandleFrame decodes one inbound text frame and dispatches it.
	HandleFrame(ctx context.Context, conn *Conn, raw string) error
	// HandleCommand dispatches an already-decoded command.
	HandleCommand(ctx context.Context, conn *Conn, name string, args []string) error

	Attach(conn *Conn)
	Detach(conn *Conn)
	ConnCount() int

	// Snapshot serializes the full game state for suspension.
	Snapshot() ([]byte, error)
}

// engine is what a rule variant layers on top of the shared state machine.
type engine interface {
	// resetRound clears per-hand engine state before a (re)deal.
	resetRound()
	// dealInitial deals the opening hands once the deck is fresh.
	dealInitial(ctx context.Context) error
	// afterStart runs after the opening turn announcement.
	afterStart(ctx context.Context) error
	// boardState replays every event needed to rebuild the viewer's visible
	// board. viewer may be nil for spectators.
	boardState(viewer *Player) []frame
}

// frame is one outbound event before encoding.
type frame []any

// baseGame carries the state and behavior shared by every variant: the
// roster, the deck, the turn pointer, the command registry and the two
// per-game locks.
type baseGame struct {
	typ      string
	id       string
	version  int
	seats    int
	handSize int

	// mu is the per-game execution lock: exactly one command is in flight
	// per game. It also guards every mutable field below.
	mu sync.Mutex
	// sendMu keeps each broadcast atomic on the wire. Always acquired after
	// mu, never the other way around.
	sendMu sync.Mutex

	conns   map[*Conn]struct{}
	players []*Player

	deck           []cards.Card
	startingPlayer int
	currentPlayer  int
	status         GameStatus

	rng *rand.Rand
	// newDeck produces the deck for a fresh hand. Tests stack it.
	newDeck func() []cards.Card

	commands map[string]*Command
	rules    engine

	log *logrus.Entry
}

func newBaseGame(typ, id string, version, numPlayers, handSize int) *baseGame {
	g := &baseGame{
		typ:      typ,
		id:       id,
		version:  version,
		seats:    numPlayers,
		handSize: handSize,
		conns:    make(map[*Conn]struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		commands: make(map[string]*Command),
		log:      logrus.WithFields(logrus.Fields{"game_type": typ, "game_id": id}),
	}
	g.startingPlayer = g.rng.Intn(numPlayers)
	g.newDeck = g.shuffledDeck
	g.registerBaseCommands()
	return g
}

func (g *baseGame) Type() string { return g.typ }
func (g *baseGame) ID() string   { return g.id }

func (g *baseGame) Version() int { return g.version }

func (g *baseGame) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Attach adds a connection to the game's broadcast set. Player association
// happens separately, via the join command.
func (g *baseGame) Attach(conn *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[conn] = struct{}{}
}

// Detach removes a connection from the game and from whichever player held
// it. The player itself is never removed: a reconnect with the same token
// resumes the same seat.
func (g *baseGame) Detach(conn *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	conn.Close()
	delete(g.conns, conn)
	for _, p := range g.players {
		p.detach(conn)
	}
}

func (g *baseGame) ConnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *baseGame) shuffledDeck() []cards.Card {
	deck := cards.FullDeck()
	g.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

func (g *baseGame) playerByToken(token string) *Player {
	for _, p := range g.players {
		if p.token == token {
			return p
		}
	}
	return nil
}

func (g *baseGame) playerIndex(p *Player) int {
	for i, other := range g.players {
		if other.token == p.token {
			return i
		}
	}
	return -1
}

// currentPlayerRef is nil until the game has started at least once.
func (g *baseGame) currentPlayerRef() *Player {
	if g.status == StatusNotStarted || g.currentPlayer >= len(g.players) {
		return nil
	}
	return g.players[g.currentPlayer]
}

func (g *baseGame) nextPlayer() {
	g.currentPlayer = (g.currentPlayer + 1) % g.seats
}

func (g *baseGame) playerNames() []any {
	return lo.Map(g.players, func(p *Player, _ int) any { return p.Name })
}

// prepareStart moves the game into STARTED: fresh deck, turn pointer on the
// starting seat, roster and seat announcements, then the variant's deal.
func (g *baseGame) prepareStart(ctx context.Context) error {
	g.deck = g.newDeck()
	g.currentPlayer = g.startingPlayer
	g.status = StatusStarted
	g.rules.resetRound()

	g.send(append(frame{EventPlayers}, g.playerNames()...)...)
	for i, p := range g.players {
		g.sendPlayer(p, EventPlayerID, i)
	}
	g.send(EventBegin)

	if err := g.rules.dealInitial(ctx); err != nil {
		return err
	}
	g.sendPlayer(g.players[g.currentPlayer], EventTurn)
	return g.rules.afterStart(ctx)
}

// drawCard moves the top deck card into the player's hand, revealing it only
// to its owner. Everyone else just sees the seat draw.
func (g *baseGame) drawCard(p *Player) error {
	if len(g.deck) == 0 {
		return fmt.Errorf("draw from empty deck in game %s/%s", g.typ, g.id)
	}
	card := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	p.Hand = append(p.Hand, card)

	idx := g.playerIndex(p)
	g.sendPlayer(p, EventDrawCard, idx, card)
	g.sendOthersPlayer(p, EventDrawCard, idx)
	return nil
}

// sendResults ends a hand: broadcast the final scores, rotate the deal and
// clear every seat for a possible rematch.
func (g *baseGame) sendResults(results []int) {
	args := frame{EventResults}
	for _, r := range results {
		args = append(args, r)
	}
	g.send(args...)

	g.startingPlayer = (g.startingPlayer + 1) % g.seats
	for _, p := range g.players {
		p.reset()
	}
}

// sendCurrentState replays everything one connection needs to reconstruct
// the visible game: roster, own seat, and the full board when a hand is in
// progress. The replay is bracketed by animations off/on so the client does
// not animate catch-up. On an ended game a player's rematch vote is cast
// automatically.
func (g *baseGame) sendCurrentState(ctx context.Context, conn *Conn, p *Player) error {
	g.sendConn(conn, append(frame{EventPlayers}, g.playerNames()...)...)
	if p != nil && g.status != StatusNotStarted {
		g.sendConn(conn, EventPlayerID, g.playerIndex(p))
	}

	switch g.status {
	case StatusStarted:
		g.sendConn(conn, EventAnimations, "off")
		g.sendConn(conn, EventBegin)
		for _, f := range g.rules.boardState(p) {
			g.sendConn(conn, f...)
		}
		g.sendConn(conn, EventAnimations, "on")
	case StatusEnded:
		if p != nil {
			return g.rematchVote(ctx, p)
		}
	}
	return nil
}

// rematchVote marks a player ready and restarts once the vote is unanimous.
func (g *baseGame) rematchVote(ctx context.Context, p *Player) error {
	p.Ready = true
	if lo.EveryBy(g.players, func(pl *Player) bool { return pl.Ready }) {
		return g.prepareStart(ctx)
	}
	return nil
}
