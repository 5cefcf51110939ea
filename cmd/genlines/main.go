// Command genlines generates synthetic ISD fixtures for local runs and tests:
// a station history CSV, a file of fixed-width observation lines, and the
// aggregates a single window over all of them should produce. With -serve it
// also acts as a TCP line feeder for the socket source.
//
// Usage:
//
//	go run ./cmd/genlines \
//	  -stations-out data/isd-history.csv \
//	  -lines-out data/observations.txt \
//	  -expected-out data/expected.json
//
//	go run ./cmd/genlines -lines-out data/observations.txt -serve :9999 -rate 50
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
)

// station is a fixture station. Stations with an empty country exercise the
// "none" fallback; unlisted ones exercise lookup misses.
type station struct {
	usaf, wban, name, country string
	listed                    bool
}

var stations = []station{
	{"010010", "99999", "JAN MAYEN", "NO", true},
	{"010014", "99999", "SORSTOKKEN", "NO", true},
	{"103840", "99999", "BERLIN TEMPELHOF", "GM", true},
	{"725300", "94846", "CHICAGO OHARE", "US", true},
	{"722950", "23174", "LOS ANGELES INTL", "US", true},
	{"999999", "00102", "UNNAMED BUOY", "", true},
	{"123456", "54321", "UNLISTED", "", false},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stationsOut := flag.String("stations-out", "", "output path for the station history CSV")
	linesOut := flag.String("lines-out", "", "output path for observation lines")
	expectedOut := flag.String("expected-out", "", "output path for expected aggregates JSON")
	count := flag.Int("count", 500, "number of observation lines to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	serve := flag.String("serve", "", "listen address; when set, feed lines to TCP clients")
	rate := flag.Int("rate", 10, "lines per second per client in -serve mode")
	flag.Parse()

	if *stationsOut == "" && *linesOut == "" && *expectedOut == "" && *serve == "" {
		flag.Usage()
		return errors.New("nothing to do: set at least one of -stations-out, -lines-out, -expected-out, -serve")
	}

	observations := generate(*count, rand.New(rand.NewPCG(*seed, *seed+1)))
	lines := make([]string, len(observations))
	for i, o := range observations {
		lines[i] = domain.FormatObservation(o)
	}

	if *stationsOut != "" {
		if err := writeStations(*stationsOut); err != nil {
			return fmt.Errorf("writing stations: %w", err)
		}
		log.Printf("wrote station fixture: %s", *stationsOut)
	}
	if *linesOut != "" {
		if err := writeLines(*linesOut, lines); err != nil {
			return fmt.Errorf("writing lines: %w", err)
		}
		log.Printf("wrote %d observation lines: %s", len(lines), *linesOut)
	}
	if *expectedOut != "" {
		results := expected(observations)
		if err := writeJSON(*expectedOut, results); err != nil {
			return fmt.Errorf("writing expected aggregates: %w", err)
		}
		log.Printf("wrote %d expected groups: %s", len(results), *expectedOut)
	}

	if *serve != "" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return feed(ctx, *serve, lines, *rate)
	}
	return nil
}

// generate produces n observations across the fixture stations. About one in
// eight readings carries a non-trusted quality code.
func generate(n int, rng *rand.Rand) []domain.Observation {
	out := make([]domain.Observation, n)
	for i := range out {
		st := stations[rng.IntN(len(stations))]
		year := 2018 + rng.IntN(4)
		day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.IntN(365))
		out[i] = domain.Observation{
			USAF:                  st.usaf,
			WBAN:                  st.wban,
			Date:                  day.Format("20060102"),
			AirTemperature:        float64(rng.IntN(700)-300) / 10,
			AirTemperatureQuality: quality(rng),
			WindSpeed:             float64(rng.IntN(300)) / 10,
			WindSpeedQuality:      quality(rng),
		}
	}
	return out
}

func quality(rng *rand.Rand) int {
	if rng.IntN(8) == 0 {
		return []int{0, 2, 3, 9}[rng.IntN(4)]
	}
	return 1
}

// expected aggregates the observations as one snapshot, joined the same way
// the service joins them.
func expected(observations []domain.Observation) []domain.AggregationResult {
	refs := make([]domain.StationReference, 0, len(stations))
	for _, s := range stations {
		if s.listed {
			refs = append(refs, domain.StationReference{USAF: s.usaf, WBAN: s.wban, Country: s.country})
		}
	}
	idx := domain.NewStationIndex(refs)

	snapshot := make([]domain.EnrichedObservation, len(observations))
	for i, o := range observations {
		snapshot[i] = domain.Enrich(o, idx)
	}
	return domain.Aggregate(snapshot)
}

func writeStations(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"USAF", "WBAN", "STATION NAME", "CTRY", "ST", "CALL", "LAT", "LON", "ELEV(M)", "BEGIN", "END"}); err != nil {
		return err
	}
	for _, s := range stations {
		if !s.listed {
			continue
		}
		if err := w.Write([]string{s.usaf, s.wban, s.name, s.country, "", "", "", "", "", "20000101", "20251231"}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// feed accepts TCP clients on addr and writes lines to each one in a loop at
// rate lines per second until ctx is done.
func feed(ctx context.Context, addr string, lines []string, rate int) error {
	if len(lines) == 0 {
		return errors.New("no lines to serve")
	}
	if rate <= 0 {
		return fmt.Errorf("rate must be positive, got %d", rate)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	context.AfterFunc(ctx, func() { _ = ln.Close() })
	log.Printf("serving %d lines on %s at %d/s", len(lines), ln.Addr(), rate)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go serveConn(ctx, conn, lines, time.Second/time.Duration(rate))
	}
}

func serveConn(ctx context.Context, conn net.Conn, lines []string, interval time.Duration) {
	defer conn.Close()
	log.Printf("client connected: %s", conn.RemoteAddr())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(lines) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := fmt.Fprintln(conn, lines[i]); err != nil {
			log.Printf("client %s gone: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
