package pipeline

import (
	"github.com/couchcryptid/weather-window-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// ObservationTransformer implements Transformer: it parses an ISD line,
// stamps its arrival time from the clock, and joins it with the station table.
type ObservationTransformer struct {
	index *domain.StationIndex
	clock clockwork.Clock
}

// NewTransformer creates an ObservationTransformer. The index must be fully
// built before the first call to Transform. A nil clock uses real time.
func NewTransformer(index *domain.StationIndex, clock clockwork.Clock) *ObservationTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ObservationTransformer{index: index, clock: clock}
}

func (t *ObservationTransformer) Transform(raw domain.RawLine) (domain.EnrichedObservation, error) {
	obs, err := domain.ParseObservation(raw.Text, t.clock.Now())
	if err != nil {
		return domain.EnrichedObservation{}, err
	}
	return domain.Enrich(obs, t.index), nil
}
