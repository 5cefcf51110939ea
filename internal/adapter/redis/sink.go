// Package redis publishes the latest window snapshot to Redis hashes.
//
// For a key prefix P, every tick atomically replaces:
//
//	P:results  field "country|year" -> JSON extremes for that group
//	P:meta     fields tick_at, window_start, groups
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/config"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Sink writes each batch as the current snapshot. It implements
// pipeline.ResultSink.
type Sink struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewSink creates a Sink using the configured address and key prefix.
func NewSink(cfg *config.Config, logger *slog.Logger) *Sink {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	return &Sink{client: client, prefix: cfg.RedisKey, logger: logger}
}

// Ping checks connectivity to the Redis server.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Emit replaces the stored snapshot with batch inside a MULTI/EXEC so readers
// never observe a mix of two ticks.
func (s *Sink) Emit(ctx context.Context, batch domain.Batch) error {
	fields, err := resultFields(batch.Results)
	if err != nil {
		return err
	}
	resultsKey, metaKey := keys(s.prefix)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, resultsKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, resultsKey, fields)
		}
		pipe.HSet(ctx, metaKey, metaFields(batch))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis emit %s: %w", resultsKey, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.client.Close()
}

func keys(prefix string) (results, meta string) {
	return prefix + ":results", prefix + ":meta"
}

type resultValue struct {
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
	WindMin float64 `json:"wind_min"`
	WindMax float64 `json:"wind_max"`
}

// resultFields maps each group key to its JSON-encoded extremes.
func resultFields(results []domain.AggregationResult) (map[string]any, error) {
	fields := make(map[string]any, len(results))
	for _, r := range results {
		data, err := json.Marshal(resultValue{
			TempMin: r.TempMin,
			TempMax: r.TempMax,
			WindMin: r.WindMin,
			WindMax: r.WindMax,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize result %s: %w", r.Key, err)
		}
		fields[r.Key.String()] = string(data)
	}
	return fields, nil
}

func metaFields(batch domain.Batch) map[string]any {
	return map[string]any{
		"tick_at":      batch.TickAt.Format(time.RFC3339Nano),
		"window_start": batch.WindowStart.Format(time.RFC3339Nano),
		"groups":       strconv.Itoa(len(batch.Results)),
	}
}
