// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carteserver/carte/internal/game"
	"github.com/carteserver/carte/internal/metrics"
	"github.com/carteserver/carte/internal/persist"
)

// Server owns the arena of live games and the durable store for suspended
// ones, and serializes the transitions between them: resume on first
// connect, suspend on last disconnect.
type Server struct {
	Logger *logrus.Logger
	Games  *game.Store
	Saved  *persist.Store

	// mu orders acquire/release so a game is never suspended while a new
	// connection is attaching to it.
	mu sync.Mutex
}

func NewServer(logger *logrus.Logger, saved *persist.Store) *Server {
	return &Server{
		Logger: logger,
		Games:  game.NewStore(),
		Saved:  saved,
	}
}

// CurrentVersion maps a game type to its live rule version, for saved-entry
// validation.
func CurrentVersion(gameType string) (int, bool) {
	v, ok := game.Lookup(gameType)
	if !ok {
		return 0, false
	}
	return v.Version, true
}

// acquireGame attaches a connection to the game under key, creating or
// resuming the game as needed. Resume requires a valid saved entry (age
// within TTL, version match); anything else starts fresh, and stale entries
// are dropped on the way.
func (s *Server) acquireGame(ctx context.Context, k game.Key, conn *game.Conn) (game.Game, error) {
	variant, ok := game.Lookup(k.Type)
	if !ok {
		return nil, &game.CmdError{Kind: game.ErrorProtocol, Message: "unknown game type: " + k.Type}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.Games.Get(k); ok {
		g.Attach(conn)
		return g, nil
	}

	if g := s.tryResume(ctx, k, variant); g != nil {
		g.Attach(conn)
		s.Games.Put(k, g)
		metrics.ActiveGames.Set(float64(s.Games.Len()))
		metrics.GamesResumed.Inc()
		return g, nil
	}

	g := variant.New(k.ID)
	g.Attach(conn)
	s.Games.Put(k, g)
	metrics.ActiveGames.Set(float64(s.Games.Len()))
	return g, nil
}

// tryResume loads, validates and restores a suspended game. Valid entries
// are deleted once resumed; invalid or unreadable ones are deleted and
// ignored.
func (s *Server) tryResume(ctx context.Context, k game.Key, variant game.VariantInfo) game.Game {
	if s.Saved == nil {
		return nil
	}

	entry, err := s.Saved.Load(ctx, k)
	if err != nil {
		s.Logger.WithError(err).WithField("key", k.String()).Warn("saved game load failed")
		return nil
	}
	if entry == nil {
		return nil
	}
	if !entry.Valid(variant.Version, s.Saved.TTL(), time.Now().UTC()) {
		s.Saved.Delete(ctx, k)
		return nil
	}

	g, err := variant.Restore(k.ID, entry.State)
	if err != nil {
		s.Logger.WithError(err).WithField("key", k.String()).Warn("discarding unrestorable saved game")
		s.Saved.Delete(ctx, k)
		return nil
	}

	s.Saved.Delete(ctx, k)
	s.Logger.WithField("key", k.String()).Info("resumed suspended game")
	return g
}

// releaseConn detaches a connection. When it was the game's last one, the
// game leaves the arena: suspended to the durable store if a hand was ever
// dealt, dropped outright otherwise.
func (s *Server) releaseConn(k game.Key, g game.Game, conn *game.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.Detach(conn)
	if g.ConnCount() > 0 {
		return
	}

	if g.Status() != game.StatusNotStarted && s.Saved != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		state, err := g.Snapshot()
		if err != nil {
			s.Logger.WithError(err).WithField("key", k.String()).Error("game snapshot failed")
		} else if err := s.Saved.Save(ctx, k, g.Version(), state); err != nil {
			s.Logger.WithError(err).WithField("key", k.String()).Error("game suspend failed")
		} else {
			metrics.GamesSuspended.Inc()
			s.Logger.WithField("key", k.String()).Info("suspended idle game")
		}
	}

	s.Games.Delete(k)
	metrics.ActiveGames.Set(float64(s.Games.Len()))
}

// gameSummary is one row of the status report.
type gameSummary struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Status      string `json:"status,omitempty"`
	Connections int    `json:"connections,omitempty"`
	SavedAt     string `json:"saved_at,omitempty"`
}

// StatusHandler reports the live and suspended games as JSON.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := struct {
			Active []gameSummary `json:"active_games"`
			Saved  []gameSummary `json:"saved_games"`
		}{Active: []gameSummary{}, Saved: []gameSummary{}}

		s.Games.Each(func(k game.Key, g game.Game) {
			report.Active = append(report.Active, gameSummary{
				Type:        k.Type,
				ID:          k.ID,
				Status:      g.Status().String(),
				Connections: g.ConnCount(),
			})
		})

		if s.Saved != nil {
			saved, err := s.Saved.List(r.Context(), CurrentVersion)
			if err != nil {
				s.Logger.WithError(err).Warn("saved game listing failed")
			} else {
				for k, entry := range saved {
					report.Saved = append(report.Saved, gameSummary{
						Type:    k.Type,
						ID:      k.ID,
						SavedAt: entry.SavedAt.Format(time.RFC3339),
					})
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			s.Logger.WithError(err).Warn("status encode failed")
		}
	}
}
