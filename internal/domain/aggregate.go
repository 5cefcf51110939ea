package domain

import (
	"cmp"
	"math"
	"slices"
)

// Sentinels substituted for untrusted readings. A minimum of MissingHigh or
// a maximum of MissingLow means the group had no reading with quality 1.
const (
	MissingHigh = 9999.0
	MissingLow  = -9999.0

	validQuality = 1
)

type extremes struct {
	tempMin, tempMax float64
	windMin, windMax float64
}

func newExtremes() *extremes {
	return &extremes{
		tempMin: math.Inf(1), tempMax: math.Inf(-1),
		windMin: math.Inf(1), windMax: math.Inf(-1),
	}
}

// add folds one reading in. Every reading contributes to every extreme:
// trusted readings with their value, untrusted ones with the sentinel.
func (e *extremes) add(o EnrichedObservation) {
	tLow, tHigh := MissingHigh, MissingLow
	if o.AirTemperatureQuality == validQuality {
		tLow, tHigh = o.AirTemperature, o.AirTemperature
	}
	wLow, wHigh := MissingHigh, MissingLow
	if o.WindSpeedQuality == validQuality {
		wLow, wHigh = o.WindSpeed, o.WindSpeed
	}

	e.tempMin = min(e.tempMin, tLow)
	e.tempMax = max(e.tempMax, tHigh)
	e.windMin = min(e.windMin, wLow)
	e.windMax = max(e.windMax, wHigh)
}

// Aggregate groups a window snapshot by (country, year) and computes the
// quality-gated temperature and wind extremes of each group. The snapshot is
// not modified and the result is recomputed from scratch on every call.
// Results are ordered by country, then year. An empty snapshot yields an
// empty, non-nil slice.
func Aggregate(snapshot []EnrichedObservation) []AggregationResult {
	groups := make(map[AggregationKey]*extremes)
	for _, o := range snapshot {
		key := AggregationKey{Country: o.Country, Year: o.Year()}
		g, ok := groups[key]
		if !ok {
			g = newExtremes()
			groups[key] = g
		}
		g.add(o)
	}

	results := make([]AggregationResult, 0, len(groups))
	for key, g := range groups {
		results = append(results, AggregationResult{
			Key:     key,
			TempMin: g.tempMin,
			TempMax: g.tempMax,
			WindMin: g.windMin,
			WindMax: g.windMax,
		})
	}
	slices.SortFunc(results, func(a, b AggregationResult) int {
		return cmp.Or(
			cmp.Compare(a.Key.Country, b.Key.Country),
			cmp.Compare(a.Key.Year, b.Key.Year),
		)
	})
	return results
}

// HasValidTemperature reports whether the result's temperature extremes came
// from at least one trusted reading.
func (r AggregationResult) HasValidTemperature() bool {
	return r.TempMin != MissingHigh || r.TempMax != MissingLow
}

// HasValidWind reports whether the result's wind extremes came from at least
// one trusted reading.
func (r AggregationResult) HasValidWind() bool {
	return r.WindMin != MissingHigh || r.WindMax != MissingLow
}
