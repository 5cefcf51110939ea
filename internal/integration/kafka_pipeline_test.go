//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-window-etl/internal/config"
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/couchcryptid/weather-window-etl/internal/observability"
	"github.com/couchcryptid/weather-window-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
)

type sinkMessage struct {
	Key     string
	Headers map[string]string
	Value   struct {
		Country string  `json:"country"`
		Year    string  `json:"year"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
		WindMin float64 `json:"wind_min"`
		WindMax float64 `json:"wind_max"`
	}
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	out := sinkMessage{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		out.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &out.Value), "unmarshal sink message")
	return out
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaSourceTopic: testSourceTopic,
		KafkaSinkTopic:   testSinkTopic,
		KafkaGroupID:     fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
	}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter round-trips one line through the source adapter and
// one result through the sink adapter.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	text := observationLine("010010", "99999", "20200101", -5.2, 10)
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Value: []byte(text)}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	raw, err := reader.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, text, raw.Text)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	index := domain.NewStationIndex([]domain.StationReference{{USAF: "010010", WBAN: "99999", Country: "NO"}})
	obs, err := pipeline.NewTransformer(index, nil).Transform(raw)
	require.NoError(t, err)

	tick := time.Now().UTC().Truncate(time.Second)
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.Emit(ctx, domain.Batch{
		TickAt:      tick,
		WindowStart: tick.Add(-10 * time.Second),
		Results:     domain.Aggregate([]domain.EnrichedObservation{obs}),
	}))

	msg := readSink(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "NO|2020", msg.Key)
	assert.Equal(t, tick.Format(time.RFC3339Nano), msg.Headers["tick_at"])
	assert.Equal(t, tick.Add(-10*time.Second).Format(time.RFC3339Nano), msg.Headers["window_start"])
	assert.Equal(t, -5.2, msg.Value.TempMin)
	assert.Equal(t, -5.2, msg.Value.TempMax)
	assert.Equal(t, 10.0, msg.Value.WindMin)
}

// TestPipelineEndToEnd runs the engine against real Kafka on both ends,
// including a malformed line that must be skipped.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Value: []byte(observationLine("1", "2", "20200101", 10, 5))},
		kafkago.Message{Value: []byte("not an ISD line")},
		kafkago.Message{Value: []byte(observationLine("1", "2", "20200102", 20, 1))},
		kafkago.Message{Value: []byte(observationLine("9", "9", "20210101", 3, 3))},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	index := domain.NewStationIndex([]domain.StationReference{{USAF: "1", WBAN: "2", Country: "DE"}})
	metrics := observability.NewMetricsForTesting()
	engine, err := pipeline.New(reader, pipeline.NewTransformer(index, nil), writer, discardLogger(), metrics,
		pipeline.WithWindow(30*time.Second, time.Second))
	require.NoError(t, err)

	engineCtx, engineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(engineCtx) }()

	// Every tick re-emits the whole window; keep reading until both groups
	// have been seen with all their observations.
	consumer := sinkConsumer(t, broker)
	seen := map[string]sinkMessage{}
	for {
		msg := readSink(ctx, t, consumer)
		seen[msg.Key] = msg
		de, okDE := seen["DE|2020"]
		_, okNone := seen["none|2021"]
		if okDE && okNone && de.Value.TempMax == 20 {
			break
		}
	}

	engineCancel()
	require.NoError(t, <-errCh)

	de := seen["DE|2020"].Value
	assert.Equal(t, 10.0, de.TempMin)
	assert.Equal(t, 20.0, de.TempMax)
	assert.Equal(t, 1.0, de.WindMin)
	assert.Equal(t, 5.0, de.WindMax)

	none := seen["none|2021"].Value
	assert.Equal(t, 3.0, none.TempMin)
	assert.Equal(t, 3.0, none.WindMax)
}
