// Command genmock generates a synthetic attribute table for the entities of
// a geometry file: one row per entity, one column per year, values drawn as a
// warming random walk with a share of cells left missing or set to -99.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -geometry data/world-110m.json \
//	  -from 1900 -to 2020 \
//	  -out data/mock/temperatures.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/domain"
)

// options controls the generated table.
type options struct {
	from, to    int
	missingRate float64
	seed        uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	geometry := flag.String("geometry", "", "TopoJSON or GeoJSON file to read entity ids from")
	format := flag.String("format", "auto", "geometry format: auto, topojson or geojson")
	object := flag.String("object", "countries", "TopoJSON object holding the entities")
	out := flag.String("out", "", "output CSV path (stdout when empty)")
	from := flag.Int("from", 1900, "first year column")
	to := flag.Int("to", 2020, "last year column")
	missing := flag.Float64("missing", 0.05, "share of cells without data")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *geometry == "" || *to < *from || *missing < 0 || *missing > 1 {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -geometry, -from/-to, -missing")
	}

	data, err := os.ReadFile(*geometry)
	if err != nil {
		return fmt.Errorf("read geometry: %w", err)
	}
	geom, err := source.ParseGeometry(data, source.Format(*format), *object)
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	opts := options{from: *from, to: *to, missingRate: *missing, seed: *seed}
	rows, err := writeTable(w, geom.Entities, opts)
	if err != nil {
		return err
	}
	log.Printf("wrote %d rows x %d years", rows, opts.to-opts.from+1)
	return nil
}

// writeTable writes one row per entity with an id. It returns the row count.
func writeTable(w io.Writer, entities []domain.GeometryEntity, opts options) (int, error) {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	cw := csv.NewWriter(w)

	header := []string{domain.KeyID, domain.KeyName}
	for y := opts.from; y <= opts.to; y++ {
		header = append(header, strconv.Itoa(y))
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	years := opts.to - opts.from + 1
	rows := 0
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		record := make([]string, 0, len(header))
		record = append(record, e.ID, e.Label())

		anomaly := rng.NormFloat64() * 0.3
		for range years {
			// Drift towards +1.5 °C over the full span.
			anomaly += rng.NormFloat64()*0.25 + 1.5/float64(years)
			switch r := rng.Float64(); {
			case r < opts.missingRate/2:
				record = append(record, "")
			case r < opts.missingRate:
				record = append(record, strconv.FormatFloat(domain.Sentinel, 'f', -1, 64))
			default:
				record = append(record, strconv.FormatFloat(anomaly, 'f', 2, 64))
			}
		}
		if err := cw.Write(record); err != nil {
			return rows, err
		}
		rows++
	}

	cw.Flush()
	return rows, cw.Error()
}
