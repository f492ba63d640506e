// internal/persist/sweeper.go
package persist

import (
	"context"
	"time"

	"github.com/carteserver/carte/internal/metrics"
)

// RunSweeper runs Sweep immediately and then on every interval tick until
// the context is canceled. Intended to run as a background goroutine for
// the lifetime of the process.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, currentVersion func(gameType string) (int, bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		removed, err := s.Sweep(ctx, currentVersion)
		if err != nil {
			s.log.WithError(err).Warn("saved game sweep failed")
		} else if removed > 0 {
			s.log.WithField("removed", removed).Info("swept stale saved games")
		}
		metrics.SavedGamesSwept.Add(float64(removed))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
