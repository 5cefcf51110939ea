package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/config"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes window results to a Kafka topic, one message per group.
// It implements pipeline.ResultSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are hashed by key so every country|year group stays on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Emit publishes every result of the batch in a single WriteMessages call.
// An empty batch produces no messages.
func (w *Writer) Emit(ctx context.Context, batch domain.Batch) error {
	if len(batch.Results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Results))
	for i := range batch.Results {
		msg, err := serializeToMessage(batch, batch.Results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d results: %w", len(msgs), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// resultMessage is the JSON value of a sink message.
type resultMessage struct {
	Country string  `json:"country"`
	Year    string  `json:"year"`
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
	WindMin float64 `json:"wind_min"`
	WindMax float64 `json:"wind_max"`
}

// serializeToMessage marshals one result into a Kafka message keyed by
// country|year, with the tick boundaries as headers.
func serializeToMessage(batch domain.Batch, r domain.AggregationResult) (kafkago.Message, error) {
	data, err := json.Marshal(resultMessage{
		Country: r.Key.Country,
		Year:    r.Key.Year,
		TempMin: r.TempMin,
		TempMax: r.TempMax,
		WindMin: r.WindMin,
		WindMax: r.WindMax,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result %s: %w", r.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(r.Key.String()),
		Value: data,
		Time:  batch.TickAt,
		Headers: []kafkago.Header{
			{Key: "tick_at", Value: []byte(batch.TickAt.Format(time.RFC3339Nano))},
			{Key: "window_start", Value: []byte(batch.WindowStart.Format(time.RFC3339Nano))},
		},
	}, nil
}
