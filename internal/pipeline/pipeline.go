package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/couchcryptid/weather-window-etl/internal/observability"
	"github.com/couchcryptid/weather-window-etl/internal/window"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// LineSource reads raw lines from the record source. ReadLine blocks until a
// line is available or ctx is done. io.EOF means the source is exhausted.
type LineSource interface {
	ReadLine(ctx context.Context) (domain.RawLine, error)
}

// Transformer converts a raw line into an enriched observation.
type Transformer interface {
	Transform(raw domain.RawLine) (domain.EnrichedObservation, error)
}

// ResultSink receives one batch of aggregation results per tick.
type ResultSink interface {
	Emit(ctx context.Context, batch domain.Batch) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Engine runs the ingest and tick loops. The ingest goroutine reads, parses
// and enriches lines and queues them; the tick goroutine owns the window
// buffer, advances it once per tick and hands the aggregates to the sink.
type Engine struct {
	source      LineSource
	transformer Transformer
	sink        ResultSink
	buffer      *window.Buffer
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	latest      atomic.Pointer[domain.Batch]
	opts        options
}

// New creates an Engine. It fails if the window length is not a positive
// multiple of the tick interval.
func New(src LineSource, t Transformer, sink ResultSink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := window.Validate(o.windowLength, o.tickInterval); err != nil {
		return nil, err
	}
	if o.queueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", o.queueSize)
	}

	return &Engine{
		source:      src,
		transformer: t,
		sink:        sink,
		buffer:      window.NewBuffer(o.windowLength),
		logger:      logger,
		metrics:     metrics,
		opts:        o,
	}, nil
}

// CheckReadiness returns nil once the engine has emitted at least one tick,
// or an error describing why the service is not yet ready.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not emitted a window yet")
	}
	return nil
}

// LatestBatch returns the most recently emitted batch. ok is false until the
// first successful emit.
func (e *Engine) LatestBatch() (batch domain.Batch, ok bool) {
	b := e.latest.Load()
	if b == nil {
		return domain.Batch{}, false
	}
	return *b, true
}

// Run executes the ingest and tick loops until the context is cancelled.
// The window in progress at cancellation is discarded without being emitted.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		"window_length", e.opts.windowLength,
		"tick_interval", e.opts.tickInterval,
		"queue_size", e.opts.queueSize,
	)
	e.metrics.EngineRunning.Set(1)
	defer e.metrics.EngineRunning.Set(0)

	queue := make(chan domain.EnrichedObservation, e.opts.queueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.ingest(gctx, queue)
		return nil
	})
	g.Go(func() error {
		e.tickLoop(gctx, queue)
		return nil
	})
	return g.Wait()
}

// ingest moves lines from the source onto the queue. Malformed lines are
// logged and skipped; source failures are retried with backoff.
func (e *Engine) ingest(ctx context.Context, queue chan<- domain.EnrichedObservation) {
	backoff := initialBackoff

	for {
		raw, err := e.source.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				e.logger.Info("record source exhausted, ingestion stopped")
				return
			}
			e.logger.Error("read line failed", "error", err, "retry_in", backoff)
			if !sleepWithContext(ctx, e.opts.clock, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if strings.TrimSpace(raw.Text) == "" {
			e.commitLine(ctx, raw)
			continue
		}
		e.metrics.LinesConsumed.Inc()

		obs, err := e.transformer.Transform(raw)
		if err != nil {
			e.logger.Warn("transform failed, skipping line",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			e.metrics.ParseErrors.Inc()
			e.commitLine(ctx, raw)
			continue
		}
		if obs.Country == domain.NoCountry {
			e.metrics.LookupMisses.Inc()
		}

		select {
		case queue <- obs:
		case <-ctx.Done():
			return
		}
		e.commitLine(ctx, raw)
	}
}

// tickLoop owns the window buffer. Nothing else may touch it.
func (e *Engine) tickLoop(ctx context.Context, queue <-chan domain.EnrichedObservation) {
	ticker := e.opts.clock.NewTicker(e.opts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", "reason", ctx.Err(), "abandoned", e.buffer.Len())
			e.buffer.Reset()
			return
		case obs := <-queue:
			e.buffer.Push(obs)
		case now := <-ticker.Chan():
			e.processTick(ctx, queue, now)
		}
	}
}

// processTick drains the queue, advances the window to now, aggregates the
// snapshot and emits it.
func (e *Engine) processTick(ctx context.Context, queue <-chan domain.EnrichedObservation, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	start := e.opts.clock.Now()

	e.drain(queue)
	snapshot := e.buffer.Advance(now)
	results := domain.Aggregate(snapshot)
	e.metrics.ObservationsBuffered.Set(float64(e.buffer.Len()))

	batch := domain.Batch{
		TickAt:      now,
		WindowStart: now.Add(-e.buffer.Length()),
		Results:     results,
	}
	if err := e.sink.Emit(ctx, batch); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Error("emit batch failed", "error", err, "results", len(results))
		e.metrics.SinkErrors.Inc()
		return
	}

	e.metrics.ResultsEmitted.Add(float64(len(results)))
	e.metrics.TickDuration.Observe(e.opts.clock.Since(start).Seconds())
	e.latest.Store(&batch)
	e.ready.Store(true)
	e.logger.Debug("tick emitted",
		"tick_at", now,
		"observations", len(snapshot),
		"results", len(results),
	)
}

func (e *Engine) drain(queue <-chan domain.EnrichedObservation) {
	for {
		select {
		case obs := <-queue:
			e.buffer.Push(obs)
		default:
			return
		}
	}
}

// commitLine acknowledges the line if the source supports it.
func (e *Engine) commitLine(ctx context.Context, raw domain.RawLine) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		e.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
