// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Command matchd runs the battle matchmaking gateway.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vocabattle/battle-matchmaker/pkg/api"
	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/debuglog"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/matchmaker"
	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/reaper"
	"github.com/vocabattle/battle-matchmaker/pkg/reconnect"
	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
	"github.com/vocabattle/battle-matchmaker/pkg/settlement"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
	"github.com/vocabattle/battle-matchmaker/pkg/store/memstore"
	"github.com/vocabattle/battle-matchmaker/pkg/store/pgstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to parse config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	debugLogs := debuglog.NewBuffer(cfg.DebugLogCapacity)
	logrus.AddHook(debugLogs)

	shutdownTracing, err := setupTracing(cfg.ZipkinURL)
	if err != nil {
		logrus.Fatalf("failed to set up tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope := envelope.NewRootScope(ctx, "matchd", "")
	defer scope.Finish()

	feed, closeFeed := newFeed(cfg, scope)
	defer closeFeed()

	matchStore, err := newStore(cfg, feed, scope)
	if err != nil {
		scope.Log.Fatalf("failed to open match store: %v", err)
	}

	sched, err := scheduler.NewGocron()
	if err != nil {
		scope.Log.Fatalf("failed to start scheduler: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mm := metrics.NewMetrics(registry)

	staleReaper := reaper.New(scope, cfg, matchStore, sched, mm)
	if err = staleReaper.Start(); err != nil {
		scope.Log.Fatalf("failed to start stale-match reaper: %v", err)
	}

	server := api.New(api.Dependencies{
		Scope:       scope,
		Store:       matchStore,
		Coordinator: matchmaker.NewCoordinator(scope, cfg, matchStore, feed, sched, mm, matchmaker.WithSweeper(staleReaper)),
		Reaper:      staleReaper,
		Resolver:    reconnect.New(cfg, matchStore, mm),
		Settler:     settlement.New(matchStore),
		DebugLogs:   debugLogs,
		Gatherer:    registry,
	})
	app := server.App()

	go func() {
		scope.Log.Infof("matchd listening on %s", cfg.HTTPAddr)
		if errListen := app.Listen(cfg.HTTPAddr); errListen != nil {
			scope.Log.Errorf("listener stopped: %v", errListen)
			stop()
		}
	}()

	<-ctx.Done()
	scope.Log.Info("shutting down")

	staleReaper.Stop()
	var shutdownErr error
	shutdownErr = errors.Join(shutdownErr, app.ShutdownWithTimeout(shutdownTimeout))
	shutdownErr = errors.Join(shutdownErr, sched.Shutdown())

	tracingCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr = errors.Join(shutdownErr, shutdownTracing(tracingCtx))
	if shutdownErr != nil {
		scope.Log.Errorf("unclean shutdown: %v", shutdownErr)
	}
}

// newFeed picks redis pub/sub when configured so that several gateways share queue updates.
func newFeed(cfg *config.Config, scope *envelope.Scope) (notify.Feed, func()) {
	if cfg.RedisAddr == "" {
		return notify.NewHub(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(scope.Ctx).Err(); err != nil {
		scope.Log.Fatalf("failed to reach redis at %s: %v", cfg.RedisAddr, err)
	}
	return notify.NewRedisFeed(client, scope.Log), func() { _ = client.Close() }
}

func newStore(cfg *config.Config, feed notify.Publisher, scope *envelope.Scope) (store.MatchStore, error) {
	if cfg.DatabaseURL == "" {
		scope.Log.Warn("DATABASE_URL not set, using the in-memory match store")
		return memstore.New(memstore.WithPublisher(feed)), nil
	}
	return pgstore.Open(cfg.DatabaseURL, feed, scope.Log)
}
