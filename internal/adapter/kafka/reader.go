package kafka

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/weather-window-etl/internal/config"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes ISD lines from a Kafka topic, one line per message value.
// It implements pipeline.LineSource.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// ReadLine fetches the next message without committing it. The returned
// line's Commit callback commits the offset once the engine has queued it.
func (r *Reader) ReadLine(ctx context.Context) (domain.RawLine, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawLine{}, err
	}
	raw := mapMessageToRawLine(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawLine(msg kafkago.Message) domain.RawLine {
	return domain.RawLine{
		Text:      string(msg.Value),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
