// internal/middleware/logging.go
package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LogMiddleware logs every HTTP request with its method, path, duration and
// remote address.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP request")
		})
	}
}

// LogConnect logs a websocket attaching to a game session.
func LogConnect(logger *logrus.Logger, remoteAddr, gameKey string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"game":   gameKey,
	}).Info("websocket connected")
}

// LogDisconnect logs a websocket leaving a game session, with the terminal
// read error when there was one.
func LogDisconnect(logger *logrus.Logger, remoteAddr, gameKey string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"game":   gameKey,
	}
	if err != nil {
		fields["reason"] = err.Error()
	}
	logger.WithFields(fields).Info("websocket disconnected")
}
