// internal/game/messaging.go
package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const writeTimeout = 3 * time.Second

// formatFrame joins stringified args with the frame delimiter, stripping any
// literal delimiter from the arguments themselves.
func formatFrame(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strings.ReplaceAll(stringify(a), "|", "")
	}
	return strings.Join(parts, "|")
}

func stringify(a any) string {
	switch v := a.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// send broadcasts one frame to every connection attached to the game.
func (g *baseGame) send(args ...any) {
	g.fanOut(g.targets(nil), args)
}

// sendConn sends one frame to a single connection.
func (g *baseGame) sendConn(conn *Conn, args ...any) {
	g.fanOut([]*Conn{conn}, args)
}

// sendPlayer sends one frame to every connection of one player.
func (g *baseGame) sendPlayer(p *Player, args ...any) {
	targets := make([]*Conn, 0, len(p.conns))
	for c := range p.conns {
		targets = append(targets, c)
	}
	g.fanOut(targets, args)
}

// sendOthersPlayer broadcasts to everyone except the given player's
// connections.
func (g *baseGame) sendOthersPlayer(p *Player, args ...any) {
	g.fanOut(g.targets(func(c *Conn) bool { return p.hasConn(c) }), args)
}

// sendOthersConn broadcasts to everyone except one connection.
func (g *baseGame) sendOthersConn(conn *Conn, args ...any) {
	g.fanOut(g.targets(func(c *Conn) bool { return c == conn }), args)
}

// targets snapshots the game's connection set, minus excluded ones. Callers
// hold the execution lock.
func (g *baseGame) targets(exclude func(*Conn) bool) []*Conn {
	out := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		if exclude != nil && exclude(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// fanOut delivers one encoded frame to every target concurrently. The send
// lock is held for the whole fan-out, so two broadcasts never interleave on
// the wire. A failed write is logged and skipped; it never aborts sibling
// sends or the calling command. Write contexts are detached from the caller
// so one closing connection cannot cancel another's send.
func (g *baseGame) fanOut(targets []*Conn, args []any) {
	msg := formatFrame(args)

	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	var wg sync.WaitGroup
	for _, c := range targets {
		if c.Closed() {
			continue
		}
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.write(ctx, msg); err != nil {
				g.log.WithError(err).Warn("websocket write failed")
			}
		}(c)
	}
	wg.Wait()
}
