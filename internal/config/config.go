package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/weather-window-etl/internal/window"
)

// Record source kinds.
const (
	SourceSocket = "socket"
	SourceKafka  = "kafka"
)

// Result sink kinds.
const (
	SinkConsole = "console"
	SinkKafka   = "kafka"
	SinkRedis   = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceKind       string
	SocketAddr       string
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	SinkKind  string
	RedisAddr string
	RedisKey  string

	StationsPath string
	WindowLength time.Duration
	TickInterval time.Duration
	QueueSize    int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	windowLength, err := parsePositiveDuration("WINDOW_LENGTH", "10s")
	if err != nil {
		return nil, err
	}
	tickInterval, err := parsePositiveDuration("TICK_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	if err := window.Validate(windowLength, tickInterval); err != nil {
		return nil, fmt.Errorf("WINDOW_LENGTH/TICK_INTERVAL: %w", err)
	}

	queueSize, err := parseQueueSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceKind:       sharedcfg.EnvOrDefault("SOURCE_KIND", SourceSocket),
		SocketAddr:       sharedcfg.EnvOrDefault("SOCKET_ADDR", "localhost:9999"),
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-weather-observations"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-window-results"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "weather-window-etl"),

		SinkKind:  sharedcfg.EnvOrDefault("SINK_KIND", SinkConsole),
		RedisAddr: sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisKey:  sharedcfg.EnvOrDefault("REDIS_KEY", "weather:window"),

		StationsPath: sharedcfg.EnvOrDefault("STATIONS_PATH", "data/isd-history.csv"),
		WindowLength: windowLength,
		TickInterval: tickInterval,
		QueueSize:    queueSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SourceKind {
	case SourceSocket:
		if c.SocketAddr == "" {
			return errors.New("SOCKET_ADDR is required when SOURCE_KIND is socket")
		}
	case SourceKafka:
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required when SOURCE_KIND is kafka")
		}
	default:
		return fmt.Errorf("SOURCE_KIND must be %q or %q, got %q", SourceSocket, SourceKafka, c.SourceKind)
	}

	switch c.SinkKind {
	case SinkConsole:
	case SinkKafka:
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required when SINK_KIND is kafka")
		}
	case SinkRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when SINK_KIND is redis")
		}
	default:
		return fmt.Errorf("SINK_KIND must be one of %q, %q, %q, got %q", SinkConsole, SinkKafka, SinkRedis, c.SinkKind)
	}

	if (c.SourceKind == SourceKafka || c.SinkKind == SinkKafka) && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.StationsPath == "" {
		return errors.New("STATIONS_PATH is required")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseQueueSize() (int, error) {
	s := os.Getenv("QUEUE_SIZE")
	if s == "" {
		return 1024, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid QUEUE_SIZE %q", s)
	}
	return n, nil
}
