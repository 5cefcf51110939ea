// Package stationfile loads the ISD station history CSV into a StationIndex.
package stationfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
)

// Load reads the station file at path and builds the lookup index.
func Load(path string) (*domain.StationIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station file: %w", err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewStationIndex(entries), nil
}

// Read parses station rows from r. Blank lines, lines starting with '#' and
// the "USAF","WBAN",... header are skipped. Any other malformed row aborts
// the load, since a partial index would silently misattribute countries.
func Read(r io.Reader) ([]domain.StationReference, error) {
	var entries []domain.StationReference

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || isHeader(line) {
			continue
		}
		ref, err := domain.ParseStation(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, ref)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read station file: %w", err)
	}
	return entries, nil
}

func isHeader(line string) bool {
	first, _, _ := strings.Cut(line, ",")
	return strings.EqualFold(strings.Trim(first, `" `), "USAF")
}
