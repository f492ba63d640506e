// internal/game/conn.go
package game

import (
	"context"
	"sync/atomic"
)

// WriteFunc delivers one text frame to a client. The outer transport layer
// supplies it when a connection attaches; tests supply recorders.
type WriteFunc func(ctx context.Context, frame string) error

// Conn is one client connection as the game core sees it: an opaque session
// token plus a way to push text frames. Several Conns may carry the same
// token (one player, many tabs).
type Conn struct {
	token  string
	write  WriteFunc
	closed atomic.Bool
}

func NewConn(token string, write WriteFunc) *Conn {
	return &Conn{token: token, write: write}
}

// Token returns the opaque session token this connection authenticated with.
func (c *Conn) Token() string {
	return c.token
}

// Close marks the connection dead. Subsequent broadcasts skip it.
func (c *Conn) Close() {
	c.closed.Store(true)
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Send writes a single frame directly, bypassing the per-game send lock.
// Used only for per-connection error reporting.
func (c *Conn) Send(ctx context.Context, frame string) error {
	if c.Closed() {
		return nil
	}
	return c.write(ctx, frame)
}
