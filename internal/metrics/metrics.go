// internal/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OpenConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carte_open_connections",
			Help: "Currently open websocket connections.",
		})

	ActiveGames = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carte_active_games",
			Help: "Games currently held in memory.",
		})

	CommandsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carte_commands_total",
			Help: "Commands processed, by command name.",
		},
		[]string{"command"})

	CommandErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carte_command_errors_total",
			Help: "Commands rejected, by error kind.",
		},
		[]string{"kind"})

	GamesSuspended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carte_games_suspended_total",
			Help: "Games serialized to the durable store on last disconnect.",
		})

	GamesResumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carte_games_resumed_total",
			Help: "Games restored from the durable store.",
		})

	SavedGamesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carte_saved_games_swept_total",
			Help: "Stale or invalid saved games deleted by the sweeper.",
		})
)

func init() {
	prometheus.MustRegister(
		OpenConnections,
		ActiveGames,
		CommandsProcessed,
		CommandErrors,
		GamesSuspended,
		GamesResumed,
		SavedGamesSwept,
	)
}
