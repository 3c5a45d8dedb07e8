// Command inspect loads an attribute table and a geometry file, joins them,
// and reports join coverage and the value range of every period. It exits
// non-zero when the load fails or a checked period has no valid values.
//
// Usage:
//
//	go run ./cmd/inspect \
//	  -table data/temperatures.csv \
//	  -geometry data/world-110m.json \
//	  -object countries \
//	  -period 1950
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/observability"
	"github.com/couchcryptid/temperature-map/internal/pipeline"
)

// check tracks pass/fail for one reported item.
type check struct {
	name   string
	errors []string
}

func (c *check) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *check) passed() bool { return len(c.errors) == 0 }

func main() {
	table := flag.String("table", "", "attribute table path or URL")
	geometry := flag.String("geometry", "", "TopoJSON or GeoJSON path or URL")
	format := flag.String("format", "auto", "geometry format: auto, topojson or geojson")
	object := flag.String("object", "countries", "TopoJSON object holding the entities")
	delimiter := flag.String("delimiter", ",", "table delimiter")
	period := flag.String("period", "", "report only this period")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	flag.Parse()

	if *table == "" || *geometry == "" || len(*delimiter) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	sources := pipeline.Sources{
		Table:          *table,
		TableDelimiter: rune((*delimiter)[0]),
		Geometry:       *geometry,
		GeometryFormat: source.Format(*format),
		GeometryObject: *object,
	}
	if code := run(os.Stdout, sources, *period, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, sources pipeline.Sources, period string, timeout time.Duration) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	fetcher := source.NewFetcher(source.Options{
		Timeout:        timeout,
		MaxRetries:     1,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     time.Second,
	}, logger)
	loader := pipeline.New(fetcher, sources, timeout, nil, logger, observability.NewMetricsForTesting())

	fmt.Fprintln(out, "=== Temperature Map Inspection ===")
	fmt.Fprintln(out)

	ds, err := loader.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Geometry: %d entities (%s)\n", len(ds.Entities), ds.Format)
	fmt.Fprintf(out, "Join:     %d matched, %d unmatched, %d rows dropped, %d rows skipped\n",
		ds.Matched, ds.Unmatched, ds.DroppedRows, ds.TableSkipped)
	fmt.Fprintf(out, "Periods:  %d\n\n", len(ds.Periods))

	periods := ds.Periods
	if period != "" {
		if !ds.HasPeriod(period) {
			fmt.Fprintf(os.Stderr, "FATAL: %v: %q\n", pipeline.ErrUnknownPeriod, period)
			return 1
		}
		periods = []string{period}
	}

	checks := inspectPeriods(ds, periods)
	allPassed := true
	for _, c := range checks {
		status := "\033[32mOK\033[0m"
		if !c.passed() {
			status = "\033[31mEMPTY\033[0m"
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", c.name, status)
	}

	if ds.Matched == 0 {
		fmt.Fprintln(out, "\nNo geometry entity matched a table row; check the id columns.")
		return 1
	}
	if !allPassed && period != "" {
		fmt.Fprintln(out, "\nPeriod has no valid values.")
		return 1
	}
	fmt.Fprintln(out, "\nInspection complete.")
	return 0
}

// inspectPeriods reports the range of each period and flags empty ones.
func inspectPeriods(ds *pipeline.Dataset, periods []string) []*check {
	checks := make([]*check, 0, len(periods))
	for _, p := range periods {
		r := domain.ValueRange(ds.Entities, p)
		c := &check{name: fmt.Sprintf("%s  [%.2f, %.2f]", p, r.Min, r.Max)}
		if r.Empty() {
			c.name = p + "  [no data]"
			c.errorf("period %s has no valid values", p)
		}
		checks = append(checks, c)
	}
	return checks
}
