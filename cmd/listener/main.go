package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eternalApril/moonwire/internal/client"
	"github.com/eternalApril/moonwire/internal/config"
	"github.com/eternalApril/moonwire/internal/logger"
	"github.com/eternalApril/moonwire/internal/metrics"
	"github.com/eternalApril/moonwire/internal/runner"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []client.Option{
		client.WithLogger(log),
		client.WithDialTimeout(cfg.Redis.DialTimeout),
	}
	if cfg.Metrics.Addr != "" {
		collector, err := metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			log.Error("cant register metrics", zap.Error(err))
			return
		}
		if _, err := metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, log); err != nil {
			log.Error("metrics listener error", zap.Error(err))
			return
		}
		opts = append(opts, client.WithMetrics(collector))
	}

	log.Info("Listener starting",
		zap.String("redis", cfg.Redis.Host+":"+cfg.Redis.Port),
		zap.Strings("channels", cfg.PubSub.Channels),
	)

	r := &runner.Listener{
		Options: runner.Options{
			Dial:    runner.DialerFor(cfg.Redis.Host, cfg.Redis.Port, opts...),
			Out:     os.Stdout,
			Logger:  log,
			Backoff: cfg.Backoff(),
		},
		Channels: cfg.PubSub.Channels,
	}
	if err := r.Run(ctx); err != nil {
		log.Error("listener stopped", zap.Error(err))
		return
	}

	log.Info("Listener stopped")
}
