// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/carteserver/carte/internal/handlers"
	"github.com/carteserver/carte/internal/middleware"
	"github.com/carteserver/carte/internal/persist"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	rdb, err := persist.Connect()
	if err != nil {
		logger.Fatalf("redis connection failed: %v", err)
	}
	saveTTL := time.Duration(envInt("SAVE_TTL_HOURS", 7*24)) * time.Hour
	saved := persist.NewStore(rdb, saveTTL, logger)

	srv := handlers.NewServer(logger, saved)

	sweepInterval := time.Duration(envInt("SWEEP_INTERVAL_HOURS", 12)) * time.Hour
	go saved.RunSweeper(context.Background(), sweepInterval, handlers.CurrentVersion)

	mux := http.NewServeMux()
	mux.Handle("/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))
	mux.Handle("/status", middleware.LogMiddleware(logger)(srv.StatusHandler()))
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
