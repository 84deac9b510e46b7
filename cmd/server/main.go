package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bondhu/relay/internal/logger"
	"github.com/bondhu/relay/internal/relay"
)

func main() {
	cfg, err := relay.NewConfigFromEnv()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	registry := relay.NewRegistry(log)

	bridge, err := relay.NewBridge(context.Background(), cfg.RedisURL, log)
	if err != nil {
		// Degrade to single-instance operation rather than refusing to start.
		log.Warn("fan-out bridge unavailable, running single-instance", zap.Error(err))
	} else {
		if err := registry.UseBridge(bridge); err != nil {
			log.Warn("fan-out bridge subscription failed, running single-instance", zap.Error(err))
		}
		defer func() { _ = bridge.Close() }()
	}

	limiter := relay.NewRateLimiter(cfg.EventLimits())
	dedupe := relay.NewDedupeCache(cfg.DedupeWindow, cfg.DedupeMaxEntries)
	notifier := relay.NewHTTPNotifier(cfg.PushEndpoint)
	router := relay.NewRouter(limiter, dedupe, registry, notifier, log)
	hub := relay.NewHub(registry, limiter, router, log)

	go hub.Run()

	srv := relay.NewServer(cfg, hub, log)
	httpServer := relay.NewHTTPServer(cfg.Port, srv.Routes())

	go func() {
		log.Info("relay listening",
			zap.String("addr", cfg.Port), zap.String("env", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	if err := relay.ShutdownHTTPServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("hub shutdown", zap.Error(err))
	}
}
