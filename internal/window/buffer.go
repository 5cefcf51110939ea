// Package window holds enriched observations inside a sliding arrival-time
// window. The window has a fixed length and is advanced once per tick by the
// engine that owns it; a Buffer is not safe for concurrent use.
package window

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
)

// ErrInvalidWindow is returned for a window length or tick interval the
// engine cannot run with.
var ErrInvalidWindow = errors.New("invalid window")

// Validate checks that length is a positive multiple of a positive tick.
func Validate(length, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("%w: tick interval %s must be positive", ErrInvalidWindow, tick)
	}
	if length <= 0 {
		return fmt.Errorf("%w: window length %s must be positive", ErrInvalidWindow, length)
	}
	if length%tick != 0 {
		return fmt.Errorf("%w: window length %s is not a multiple of tick interval %s", ErrInvalidWindow, length, tick)
	}
	return nil
}

// Buffer keeps observations ordered by ArrivedAt.
type Buffer struct {
	length  time.Duration
	entries []domain.EnrichedObservation
}

// NewBuffer creates an empty buffer for a window of the given length.
func NewBuffer(length time.Duration) *Buffer {
	return &Buffer{length: length}
}

// Length returns the window length.
func (b *Buffer) Length() time.Duration { return b.length }

// Len returns the number of buffered observations, including any that
// arrived at or after the most recent tick.
func (b *Buffer) Len() int { return len(b.entries) }

// Push inserts an observation by arrival time. Arrivals are almost always in
// order, so the insertion point is searched from the tail; observations with
// equal arrival times keep their push order.
func (b *Buffer) Push(obs domain.EnrichedObservation) {
	b.entries = append(b.entries, obs)
	i := len(b.entries) - 1
	for i > 0 && b.entries[i-1].ArrivedAt.After(obs.ArrivedAt) {
		b.entries[i] = b.entries[i-1]
		i--
	}
	b.entries[i] = obs
}

// Advance evicts every observation that arrived before now minus the window
// length and returns a copy of those that arrived in [now-length, now).
// Observations arriving at or after now are kept for later ticks.
func (b *Buffer) Advance(now time.Time) []domain.EnrichedObservation {
	cutoff := now.Add(-b.length)
	expired := sort.Search(len(b.entries), func(i int) bool {
		return !b.entries[i].ArrivedAt.Before(cutoff)
	})
	if expired > 0 {
		n := copy(b.entries, b.entries[expired:])
		clear(b.entries[n:])
		b.entries = b.entries[:n]
	}

	end := sort.Search(len(b.entries), func(i int) bool {
		return !b.entries[i].ArrivedAt.Before(now)
	})
	snapshot := make([]domain.EnrichedObservation, end)
	copy(snapshot, b.entries[:end])
	return snapshot
}

// Reset drops every buffered observation.
func (b *Buffer) Reset() {
	clear(b.entries)
	b.entries = b.entries[:0]
}
