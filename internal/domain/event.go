package domain

import (
	"context"
	"time"
)

// NoCountry is the country assigned to observations whose station is not in
// the reference table.
const NoCountry = "none"

// RawLine represents one unprocessed text line from the record source.
// Topic, Partition and Offset are only populated by message-broker sources.
type RawLine struct {
	Text      string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is a parsed ISD weather reading. ArrivedAt is assigned at the
// ingestion boundary and drives windowing; it is not read from the payload.
type Observation struct {
	USAF                  string    `json:"usaf"`
	WBAN                  string    `json:"wban"`
	Date                  string    `json:"date"`
	AirTemperature        float64   `json:"air_temperature"`
	AirTemperatureQuality int       `json:"air_temperature_quality"`
	WindSpeed             float64   `json:"wind_speed"`
	WindSpeedQuality      int       `json:"wind_speed_quality"`
	ArrivedAt             time.Time `json:"arrived_at"`
}

// Year returns the first four characters of Date.
func (o Observation) Year() string {
	if len(o.Date) < 4 {
		return o.Date
	}
	return o.Date[:4]
}

// EnrichedObservation is an Observation joined with its station's country.
type EnrichedObservation struct {
	Observation
	Country string `json:"country"`
}

// AggregationKey groups enriched observations.
type AggregationKey struct {
	Country string `json:"country"`
	Year    string `json:"year"`
}

// String renders the key as "country|year".
func (k AggregationKey) String() string {
	return k.Country + "|" + k.Year
}

// AggregationResult holds the quality-gated extremes for one group in one
// window snapshot. Values of 9999 (min) and -9999 (max) mean no trusted
// reading was present.
type AggregationResult struct {
	Key     AggregationKey `json:"key"`
	TempMin float64        `json:"temp_min"`
	TempMax float64        `json:"temp_max"`
	WindMin float64        `json:"wind_min"`
	WindMax float64        `json:"wind_max"`
}

// Batch is the set of results emitted for one tick.
type Batch struct {
	TickAt      time.Time           `json:"tick_at"`
	WindowStart time.Time           `json:"window_start"`
	Results     []AggregationResult `json:"results"`
}
