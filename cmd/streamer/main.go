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
	"github.com/eternalApril/moonwire/internal/persistence"
	"github.com/eternalApril/moonwire/internal/runner"
	"github.com/eternalApril/moonwire/internal/stream"
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

	pcfg := stream.PollerConfig{
		Key:     cfg.Stream.Key,
		Block:   cfg.Stream.Block,
		Count:   cfg.Stream.Count,
		StartID: cfg.Stream.StartID,
	}
	if cfg.Stream.CursorFile != "" {
		pcfg.Store = persistence.NewCursorFile(cfg.Stream.CursorFile, log)
	}

	poller, err := stream.NewPoller(pcfg)
	if err != nil {
		log.Error("cant restore stream cursor", zap.Error(err))
		return
	}

	log.Info("Streamer starting",
		zap.String("redis", cfg.Redis.Host+":"+cfg.Redis.Port),
		zap.String("stream", poller.Key()),
		zap.String("cursor", poller.Cursor()),
		zap.Duration("block", cfg.Stream.Block),
	)

	r := &runner.StreamConsumer{
		Options: runner.Options{
			Dial:    runner.DialerFor(cfg.Redis.Host, cfg.Redis.Port, opts...),
			Out:     os.Stdout,
			Logger:  log,
			Backoff: cfg.Backoff(),
		},
		Poller: poller,
	}
	if err := r.Run(ctx); err != nil {
		log.Error("streamer stopped", zap.Error(err))
		return
	}

	log.Info("Streamer stopped", zap.String("cursor", poller.Cursor()))
}
