// Package series prepares the monthly global temperature anomaly series for
// the radial chart: one point per month, laid out as angle and radius.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/temperature-map/internal/scale"
)

// Required CSV columns.
const (
	colYear        = "Year"
	colMonth       = "Month"
	colTemperature = "Temperature"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing series column")

// Point is one monthly anomaly reading.
type Point struct {
	Date    time.Time `json:"date"`
	Year    string    `json:"year"`
	Anomaly float64   `json:"anomaly"`
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Points  []Point
	Skipped int // rows with an invalid date or temperature
}

// Parse reads a Year,Month,Temperature CSV. Rows that fail to parse are
// skipped and counted; a missing header column is an error.
func Parse(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read series header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{colYear, colMonth, colTemperature} {
		if _, ok := idx[col]; !ok {
			return ParseResult{}, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var res ParseResult
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		p, ok := parseRow(row, idx)
		if !ok {
			res.Skipped++
			continue
		}
		res.Points = append(res.Points, p)
	}
	return res, nil
}

func parseRow(row []string, idx map[string]int) (Point, bool) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	year, err := strconv.Atoi(field(colYear))
	if err != nil {
		return Point{}, false
	}
	month, err := strconv.Atoi(field(colMonth))
	if err != nil || month < 1 || month > 12 {
		return Point{}, false
	}
	temp, err := strconv.ParseFloat(field(colTemperature), 64)
	if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
		return Point{}, false
	}
	return Point{
		Date:    time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		Year:    field(colYear),
		Anomaly: temp,
	}, true
}

// LayoutOptions sizes the radial chart.
type LayoutOptions struct {
	OuterRadius float64
	InnerRatio  float64 // inner radius as a fraction of OuterRadius
	DomainLow   float64 // anomaly mapped to the inner radius
	DomainHigh  float64 // anomaly mapped to the outer radius
}

// DefaultLayoutOptions matches the published chart: a 250px outer radius,
// inner radius at 10%, anomalies between -1.5 and 1.25 °C.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		OuterRadius: 250,
		InnerRatio:  0.1,
		DomainLow:   -1.5,
		DomainHigh:  1.25,
	}
}

// PolarPoint is a point placed on the radial chart. Angle is in radians,
// clockwise from the top, with the first month at 0.
type PolarPoint struct {
	Point
	Angle  float64 `json:"angle"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// Layout is the radial chart geometry for a series.
type Layout struct {
	InnerRadius float64      `json:"innerRadius"`
	OuterRadius float64      `json:"outerRadius"`
	Points      []PolarPoint `json:"points"`
	Gradient    []scale.Stop `json:"gradient"`
	Ticks       []AxisTick   `json:"ticks"`
}

// AxisTick is a reference circle drawn behind the line.
type AxisTick struct {
	Anomaly float64 `json:"anomaly"`
	Radius  float64 `json:"radius"`
	Label   string  `json:"label"`
}

// tickValues are the gridline anomalies of the radial chart.
var tickValues = []float64{-1, 0, 1}

// gradientStops is the number of stops in the radial stroke gradient.
const gradientStops = 10

// Compute lays points out on the radial chart. The angle scale spans the
// date extent and completes one revolution every twelve points, so a full
// series of n months sweeps 2π·n/12.
func Compute(points []Point, opts LayoutOptions) Layout {
	inner := opts.OuterRadius * opts.InnerRatio
	radius := scale.Linear{
		Domain: [2]float64{opts.DomainLow, opts.DomainHigh},
		Range:  [2]float64{inner, opts.OuterRadius},
	}
	colors := scale.MustColorScale(
		[]float64{opts.DomainLow, (opts.DomainLow + opts.DomainHigh) / 2, opts.DomainHigh},
		[]string{"#2c7bb6", "#ffff8c", "#d7191c"},
	)

	out := Layout{
		InnerRadius: inner,
		OuterRadius: opts.OuterRadius,
		Points:      make([]PolarPoint, len(points)),
		Gradient:    scale.RadialStops(colors, gradientStops, opts.InnerRatio),
	}
	for _, v := range tickValues {
		out.Ticks = append(out.Ticks, AxisTick{
			Anomaly: v,
			Radius:  radius.Map(v),
			Label:   strconv.FormatFloat(v, 'f', -1, 64) + "°C",
		})
	}
	if len(points) == 0 {
		return out
	}

	first, last := dateExtent(points)
	angle := scale.Linear{
		Domain: [2]float64{float64(first.Unix()), float64(last.Unix())},
		Range:  [2]float64{0, 2 * math.Pi * float64(len(points)) / 12},
	}
	for i, p := range points {
		a := angle.Map(float64(p.Date.Unix()))
		if first.Equal(last) {
			a = 0
		}
		out.Points[i] = PolarPoint{
			Point:  p,
			Angle:  a,
			Radius: radius.Map(p.Anomaly),
			Color:  colors.Hex(p.Anomaly),
		}
	}
	return out
}

func dateExtent(points []Point) (time.Time, time.Time) {
	first, last := points[0].Date, points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(first) {
			first = p.Date
		}
		if p.Date.After(last) {
			last = p.Date
		}
	}
	return first, last
}

// YearAt returns the year caption shown when a fraction t in [0, 1] of the
// line has been drawn.
func YearAt(points []Point, t float64) string {
	if len(points) == 0 {
		return ""
	}
	i := int(math.Floor(t*float64(len(points)))) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(points) {
		i = len(points) - 1
	}
	return points[i].Year
}
