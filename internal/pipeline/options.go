package pipeline

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// options defines the engine configuration.
type options struct {
	windowLength time.Duration // W: how far back a snapshot reaches
	tickInterval time.Duration // T: how often the window advances
	queueSize    int           // capacity of the ingest-to-tick channel
	clock        clockwork.Clock
}

// Option configures an Engine.
type Option func(*options)

// WithWindow sets the window length and tick interval. length must be a
// positive multiple of tick.
func WithWindow(length, tick time.Duration) Option {
	return func(o *options) {
		o.windowLength = length
		o.tickInterval = tick
	}
}

// WithQueueSize sets how many enriched observations may wait between
// ingestion and the next tick before ingestion blocks.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithClock sets the time source for ticks and backoff sleeps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func defaultOptions() options {
	return options{
		windowLength: 10 * time.Second,
		tickInterval: time.Second,
		queueSize:    1024,
		clock:        clockwork.NewRealClock(),
	}
}
