package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-window-etl/internal/adapter/console"
	httpadapter "github.com/couchcryptid/weather-window-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-window-etl/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/weather-window-etl/internal/adapter/redis"
	"github.com/couchcryptid/weather-window-etl/internal/adapter/socket"
	"github.com/couchcryptid/weather-window-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/weather-window-etl/internal/config"
	"github.com/couchcryptid/weather-window-etl/internal/observability"
	"github.com/couchcryptid/weather-window-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

type closingSource interface {
	pipeline.LineSource
	io.Closer
}

type closingSink interface {
	pipeline.ResultSink
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The station table must be complete before the first line is enriched.
	index, err := stationfile.Load(cfg.StationsPath)
	if err != nil {
		logger.Error("failed to load station table", "error", err)
		os.Exit(1)
	}
	metrics.StationsLoaded.Set(float64(index.Len()))
	logger.Info("station table loaded", "path", cfg.StationsPath, "stations", index.Len())

	source := newSource(cfg, logger)
	sink := newSink(cfg, logger)

	clock := clockwork.NewRealClock()
	transformer := pipeline.NewTransformer(index, clock)

	engine, err := pipeline.New(source, transformer, sink, logger, metrics,
		pipeline.WithWindow(cfg.WindowLength, cfg.TickInterval),
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithClock(clock),
	)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := engine.Run(ctx); err != nil {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("engine did not stop before shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := source.Close(); err != nil {
		logger.Error("source close error", "error", err)
	}
	if err := sink.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func newSource(cfg *config.Config, logger *slog.Logger) closingSource {
	switch cfg.SourceKind {
	case config.SourceKafka:
		logger.Info("reading from kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSourceTopic, "group", cfg.KafkaGroupID)
		return kafkaadapter.NewReader(cfg, logger)
	default:
		logger.Info("reading from socket", "addr", cfg.SocketAddr)
		return socket.NewReader(cfg.SocketAddr, logger)
	}
}

func newSink(cfg *config.Config, logger *slog.Logger) closingSink {
	switch cfg.SinkKind {
	case config.SinkKafka:
		logger.Info("writing to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
		return kafkaadapter.NewWriter(cfg, logger)
	case config.SinkRedis:
		logger.Info("writing to redis", "addr", cfg.RedisAddr, "key", cfg.RedisKey)
		return redisadapter.NewSink(cfg, logger)
	default:
		return nopCloser{console.NewSink(os.Stdout)}
	}
}

type nopCloser struct {
	pipeline.ResultSink
}

func (nopCloser) Close() error { return nil }

