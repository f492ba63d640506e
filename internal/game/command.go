// internal/game/command.go
package game

import (
	"context"
	"errors"
	"strings"

	"github.com/carteserver/carte/internal/cards"
)

// ParamKind declares how one handler parameter is filled during dispatch.
// Conn and Player kinds are resolved from the invoking connection; Card and
// String kinds each consume one positional wire argument.
type ParamKind int

const (
	// ParamConn binds the invoking connection.
	ParamConn ParamKind = iota
	// ParamPlayer binds the resolved player; dispatch fails if the
	// connection's token is not seated.
	ParamPlayer
	// ParamOptPlayer binds the resolved player, or nil when not seated.
	ParamOptPlayer
	// ParamCard consumes one argument parsed as "suit:rank".
	ParamCard
	// ParamString consumes one raw argument.
	ParamString
)

// Handler executes a command. The execution lock is held for the whole call.
type Handler func(ctx context.Context, inv *Invocation) error

// Command is a registered handler descriptor: its name, its declarative
// preconditions and its typed parameter list. The registry is built once at
// game construction; there is no runtime reflection.
type Command struct {
	Name string
	// Status, when set, requires the game to be in exactly that state.
	Status *GameStatus
	// CurrentPlayer requires the invoking connection to belong to the
	// player whose turn it is.
	CurrentPlayer bool
	Params        []ParamKind
	Handler       Handler
}

// Invocation carries the coerced arguments for one handler call.
type Invocation struct {
	Conn   *Conn
	Player *Player
	Cards  []cards.Card
	Args   []string
}

func statusPtr(s GameStatus) *GameStatus { return &s }

func (g *baseGame) register(cmds ...*Command) {
	for _, c := range cmds {
		g.commands[c.Name] = c
	}
}

func (g *baseGame) registerBaseCommands() {
	g.register(
		&Command{
			Name:    CmdCurrentState,
			Params:  []ParamKind{ParamConn, ParamOptPlayer},
			Handler: g.cmdCurrentState,
		},
		&Command{
			Name:    CmdJoin,
			Params:  []ParamKind{ParamConn, ParamString},
			Handler: g.cmdJoin,
		},
		&Command{
			Name:    CmdName,
			Params:  []ParamKind{ParamPlayer, ParamString},
			Handler: g.cmdName,
		},
		&Command{
			Name:    CmdRematch,
			Status:  statusPtr(StatusEnded),
			Params:  []ParamKind{ParamPlayer},
			Handler: g.cmdRematch,
		},
	)
}

// HandleFrame decodes a raw text frame ("name|arg|arg|...") and dispatches.
func (g *baseGame) HandleFrame(ctx context.Context, conn *Conn, raw string) error {
	parts := strings.Split(raw, "|")
	return g.HandleCommand(ctx, conn, parts[0], parts[1:])
}

// HandleCommand resolves, validates and executes one command. Execution for
// a given game is fully serialized: the lock is taken before preconditions
// are evaluated and held until the handler returns. Errors returned by the
// handler are tagged with the command name; errors detected before the
// handler runs are not.
func (g *baseGame) HandleCommand(ctx context.Context, conn *Conn, name string, args []string) error {
	cmd, ok := g.commands[name]
	if !ok {
		return newProtocolError("invalid command %s", name)
	}

	// Arity over the argument-consuming parameters must match exactly.
	consuming := 0
	for _, k := range cmd.Params {
		if k == ParamCard || k == ParamString {
			consuming++
		}
	}
	if consuming != len(args) {
		return newProtocolError("invalid number of parameters for command %s: %d expected, %d given",
			name, consuming, len(args))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cmd.Status != nil && *cmd.Status != g.status {
		return newPreconditionError("invalid game status")
	}
	if cmd.CurrentPlayer {
		cp := g.currentPlayerRef()
		if cp == nil || !cp.hasConn(conn) {
			return newPreconditionError("it's not your turn")
		}
	}

	inv := &Invocation{Conn: conn}
	next := 0
	for _, kind := range cmd.Params {
		switch kind {
		case ParamConn:
			// already bound
		case ParamPlayer:
			p := g.playerByToken(conn.Token())
			if p == nil {
				return newPreconditionError("you're not a player")
			}
			inv.Player = p
		case ParamOptPlayer:
			inv.Player = g.playerByToken(conn.Token())
		case ParamCard:
			card, err := cards.Parse(args[next])
			next++
			if err != nil {
				return newProtocolError("invalid card: %s", args[next-1])
			}
			inv.Cards = append(inv.Cards, card)
		case ParamString:
			inv.Args = append(inv.Args, args[next])
			next++
		}
	}

	if err := cmd.Handler(ctx, inv); err != nil {
		var ce *CmdError
		if errors.As(err, &ce) && ce.Command == "" {
			ce.Command = name
		}
		return err
	}
	return nil
}

func (g *baseGame) cmdCurrentState(ctx context.Context, inv *Invocation) error {
	return g.sendCurrentState(ctx, inv.Conn, inv.Player)
}

// cmdJoin seats the connection's token, or reconnects it to its existing
// seat. A full game answers an unknown token with a spectator replay rather
// than an error. Filling the last seat starts the game with a shuffled seat
// order.
func (g *baseGame) cmdJoin(ctx context.Context, inv *Invocation) error {
	name := inv.Args[0]

	p := g.playerByToken(inv.Conn.Token())
	if p == nil {
		if len(g.players) >= g.seats {
			return g.sendCurrentState(ctx, inv.Conn, nil)
		}
		p = newPlayer(inv.Conn.Token(), name)
		g.players = append(g.players, p)
		g.sendOthersConn(inv.Conn, append(frame{EventPlayers}, g.playerNames()...)...)
	} else {
		p.Name = name
	}

	p.attach(inv.Conn)
	if err := g.sendCurrentState(ctx, inv.Conn, p); err != nil {
		return err
	}

	if len(g.players) == g.seats && g.status == StatusNotStarted {
		g.rng.Shuffle(len(g.players), func(i, j int) {
			g.players[i], g.players[j] = g.players[j], g.players[i]
		})
		return g.prepareStart(ctx)
	}
	return nil
}

func (g *baseGame) cmdName(ctx context.Context, inv *Invocation) error {
	inv.Player.Name = inv.Args[0]
	g.send(append(frame{EventPlayers}, g.playerNames()...)...)
	return nil
}

func (g *baseGame) cmdRematch(ctx context.Context, inv *Invocation) error {
	return g.rematchVote(ctx, inv.Player)
}
