// Package console prints window results as a text table.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
)

// Sink writes one table per batch to w. It implements pipeline.ResultSink.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Emit(_ context.Context, batch domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "window [%s, %s) groups=%d\n",
		batch.WindowStart.Format(time.RFC3339), batch.TickAt.Format(time.RFC3339), len(batch.Results)); err != nil {
		return fmt.Errorf("console emit: %w", err)
	}
	if len(batch.Results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "country\tyear\ttemp_min\ttemp_max\twind_min\twind_max\t")
	for _, r := range batch.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Key.Country, r.Key.Year,
			formatValue(r.TempMin), formatValue(r.TempMax),
			formatValue(r.WindMin), formatValue(r.WindMax))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("console emit: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
