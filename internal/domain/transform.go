package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ISD positional layout, expressed as 0-based half-open byte ranges.
const (
	usafStart, usafEnd         = 4, 10
	wbanStart, wbanEnd         = 10, 15
	dateStart, dateEnd         = 15, 23
	windStart, windEnd         = 65, 69
	windQualityAt              = 69
	airTempStart, airTempEnd   = 87, 92
	airTempQualityAt           = 92
	minObservationLen          = 93
	formattedObservationLength = 105
)

// ParseObservation extracts the fields of a raw ISD line. arrivedAt is
// stamped onto the result unchanged.
func ParseObservation(line string, arrivedAt time.Time) (Observation, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < minObservationLen {
		return Observation{}, &ParseError{
			Kind: "observation",
			Err:  fmt.Errorf("line has %d characters, need at least %d", len(line), minObservationLen),
		}
	}

	date := line[dateStart:dateEnd]
	if !isDigits(date) {
		return Observation{}, observationFieldError("date", date, fmt.Errorf("not YYYYMMDD"))
	}

	wind, err := parseScaled("wind_speed", line[windStart:windEnd])
	if err != nil {
		return Observation{}, err
	}
	windQ, err := parseQuality("wind_speed_quality", line[windQualityAt:windQualityAt+1])
	if err != nil {
		return Observation{}, err
	}
	temp, err := parseScaled("air_temperature", line[airTempStart:airTempEnd])
	if err != nil {
		return Observation{}, err
	}
	tempQ, err := parseQuality("air_temperature_quality", line[airTempQualityAt:airTempQualityAt+1])
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		USAF:                  strings.TrimSpace(line[usafStart:usafEnd]),
		WBAN:                  strings.TrimSpace(line[wbanStart:wbanEnd]),
		Date:                  date,
		AirTemperature:        temp,
		AirTemperatureQuality: tempQ,
		WindSpeed:             wind,
		WindSpeedQuality:      windQ,
		ArrivedAt:             arrivedAt,
	}, nil
}

// parseScaled parses a signed integer field holding tenths of a unit.
func parseScaled(field, raw string) (float64, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, observationFieldError(field, raw, err)
	}
	return float64(v) / 10, nil
}

func parseQuality(field, raw string) (int, error) {
	if !isDigits(raw) {
		return 0, observationFieldError(field, raw, fmt.Errorf("not a digit"))
	}
	return int(raw[0] - '0'), nil
}

func observationFieldError(field, value string, err error) *ParseError {
	return &ParseError{Kind: "observation", Field: field, Value: value, Err: err}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatObservation renders an Observation as an ISD line that
// ParseObservation accepts. Positions outside the parsed fields are filled
// with zeros. Ids longer than their column are truncated.
func FormatObservation(o Observation) string {
	buf := bytes.Repeat([]byte{'0'}, formattedObservationLength)
	put := func(at int, s string) { copy(buf[at:], s) }

	put(0, "0000")
	put(usafStart, fmt.Sprintf("%-6.6s", o.USAF))
	put(wbanStart, fmt.Sprintf("%-5.5s", o.WBAN))
	put(dateStart, fmt.Sprintf("%-8.8s", o.Date))
	put(windStart, fmt.Sprintf("%04d", clampTenths(o.WindSpeed, 0, 9999)))
	put(windQualityAt, strconv.Itoa(clampDigit(o.WindSpeedQuality)))
	put(airTempStart, fmt.Sprintf("%+05d", clampTenths(o.AirTemperature, -9999, 9999)))
	put(airTempQualityAt, strconv.Itoa(clampDigit(o.AirTemperatureQuality)))
	return string(buf)
}

func clampTenths(v float64, lo, hi int) int {
	n := int(math.Round(v * 10))
	return min(max(n, lo), hi)
}

func clampDigit(q int) int {
	return min(max(q, 0), 9)
}

// Enrich joins an observation with its station's country. It never fails:
// unknown stations and stations without a country resolve to NoCountry.
func Enrich(obs Observation, idx *StationIndex) EnrichedObservation {
	country, ok := idx.Lookup(obs.USAF, obs.WBAN)
	if !ok || country == "" {
		country = NoCountry
	}
	return EnrichedObservation{Observation: obs, Country: country}
}
