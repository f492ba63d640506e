// internal/handlers/ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carteserver/carte/internal/game"
	"github.com/carteserver/carte/internal/metrics"
	"github.com/carteserver/carte/internal/middleware"
)

const (
	sessionCookie  = "session_id"
	sessionMaxAge  = 24 * 60 * 60
	pingInterval   = 15 * time.Second
	pingTimeout    = 10 * time.Second
	errorFrameWait = 5 * time.Second
)

// GameWSHandler upgrades a connection for /ws/{game_type}/{game_id},
// associates it with a session token, attaches it to the game (creating or
// resuming as needed) and pumps frames between the socket and the game core
// until the connection dies.
func GameWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.Error(w, "expected /ws/{game_type}/{game_id}", http.StatusBadRequest)
			return
		}
		k := game.Key{Type: parts[0], ID: parts[1]}
		if _, ok := game.Lookup(k.Type); !ok {
			http.Error(w, "unknown game type", http.StatusNotFound)
			return
		}

		// The session token is the player's whole identity; mint one for
		// first-time visitors. Must happen before the upgrade writes headers.
		token := sessionToken(w, r)

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")
		middleware.LogConnect(logger, r.RemoteAddr, k.String())
		metrics.OpenConnections.Inc()
		defer metrics.OpenConnections.Dec()

		conn := game.NewConn(token, func(ctx context.Context, frame string) error {
			return c.Write(ctx, websocket.MessageText, []byte(frame))
		})

		g, err := s.acquireGame(r.Context(), k, conn)
		if err != nil {
			logger.WithError(err).WithField("key", k.String()).Warn("game acquire failed")
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Liveness probe: a failed ping tears the connection down through
		// the same detach path as an explicit close.
		go pingLoop(ctx, cancel, c)

		readErr := readFrames(ctx, c, g, conn, logger)

		conn.Close()
		s.releaseConn(k, g, conn)
		middleware.LogDisconnect(logger, r.RemoteAddr, k.String(), readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// sessionToken returns the request's session token, setting a fresh opaque
// one as a cookie when the client has none.
func sessionToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		MaxAge:   sessionMaxAge,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func pingLoop(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pctx)
			pcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// readFrames is the per-connection read loop. Every client-visible command
// failure is answered with a full state replay followed by an error frame,
// so a rejected action never leaves the client's view stale. Returns the
// terminal read error.
func readFrames(ctx context.Context, c *websocket.Conn, g game.Game, conn *game.Conn, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			reportError(ctx, conn, &game.CmdError{
				Kind:    game.ErrorProtocol,
				Message: "incorrect message type: expected text",
			})
			continue
		}

		raw := string(data)
		if err := g.HandleFrame(ctx, conn, raw); err != nil {
			var ce *game.CmdError
			if !errors.As(err, &ce) {
				logger.WithError(err).WithFields(logrus.Fields{
					"game_type": g.Type(),
					"game_id":   g.ID(),
				}).Error("command handler failed")
				continue
			}
			metrics.CommandErrors.WithLabelValues(ce.Kind.String()).Inc()

			// Resync first, then report, matching the client's expectation
			// that the error arrives against a fresh view.
			if rerr := g.HandleCommand(ctx, conn, game.CmdCurrentState, nil); rerr != nil {
				logger.WithError(rerr).Warn("state resync failed")
			}
			reportError(ctx, conn, ce)
			continue
		}
		name, _, _ := strings.Cut(raw, "|")
		metrics.CommandsProcessed.WithLabelValues(name).Inc()
	}
}

func reportError(ctx context.Context, conn *game.Conn, ce *game.CmdError) {
	wctx, cancel := context.WithTimeout(ctx, errorFrameWait)
	defer cancel()
	// Best effort: the read loop notices a dead connection on its own.
	_ = conn.Send(wctx, ce.Frame())
}
