package domain

import (
	"encoding/csv"
	"errors"
	"strings"
)

// StationReference is one row of the ISD station history file.
type StationReference struct {
	USAF    string `json:"usaf"`
	WBAN    string `json:"wban"`
	Country string `json:"country"`
}

// Key returns the composite station identity, USAF followed by WBAN.
func (s StationReference) Key() string {
	return stationKey(s.USAF, s.WBAN)
}

func stationKey(usaf, wban string) string {
	return usaf + wban
}

// ParseStation parses a single isd-history.csv row:
//
//	"USAF","WBAN","STATION NAME","CTRY",...
//
// Only the first four columns are required. The country may be empty; the
// station ids may not.
func ParseStation(line string) (StationReference, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		return StationReference{}, &ParseError{Kind: "station", Err: err}
	}
	if len(fields) < 4 {
		return StationReference{}, &ParseError{Kind: "station", Err: errors.New("expected at least 4 columns")}
	}

	ref := StationReference{
		USAF:    strings.TrimSpace(fields[0]),
		WBAN:    strings.TrimSpace(fields[1]),
		Country: strings.TrimSpace(fields[3]),
	}
	if ref.USAF == "" {
		return StationReference{}, &ParseError{Kind: "station", Field: "usaf", Err: errors.New("empty")}
	}
	if ref.WBAN == "" {
		return StationReference{}, &ParseError{Kind: "station", Field: "wban", Err: errors.New("empty")}
	}
	return ref, nil
}

// StationIndex maps a station identity to its country. It is built once and
// never mutated afterwards, so concurrent lookups need no locking.
type StationIndex struct {
	countries map[string]string
}

// NewStationIndex builds an index from all entries. Duplicate station keys
// resolve to the last entry.
func NewStationIndex(entries []StationReference) *StationIndex {
	countries := make(map[string]string, len(entries))
	for _, e := range entries {
		countries[e.Key()] = e.Country
	}
	return &StationIndex{countries: countries}
}

// Lookup returns the country recorded for the station, if any.
func (idx *StationIndex) Lookup(usaf, wban string) (string, bool) {
	if idx == nil {
		return "", false
	}
	country, ok := idx.countries[stationKey(usaf, wban)]
	return country, ok
}

// Len returns the number of distinct stations in the index.
func (idx *StationIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.countries)
}
