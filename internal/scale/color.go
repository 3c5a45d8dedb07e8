package scale

import (
	"errors"
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidScale is returned when a colour scale's stops are inconsistent.
var ErrInvalidScale = errors.New("invalid color scale")

// ColorScale interpolates piecewise in HCL space between colour stops placed
// at ascending domain values. Values outside the domain are clamped.
type ColorScale struct {
	domain []float64
	colors []colorful.Color
}

// NewColorScale builds a scale from ascending domain values and the hex
// colours placed at them.
func NewColorScale(domain []float64, hexColors []string) (*ColorScale, error) {
	if len(domain) < 2 || len(domain) != len(hexColors) {
		return nil, fmt.Errorf("%w: need at least two stops and one color per stop", ErrInvalidScale)
	}
	for i := 1; i < len(domain); i++ {
		if domain[i] <= domain[i-1] {
			return nil, fmt.Errorf("%w: domain must be strictly ascending", ErrInvalidScale)
		}
	}
	colors := make([]colorful.Color, len(hexColors))
	for i, h := range hexColors {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("%w: color %q: %v", ErrInvalidScale, h, err)
		}
		colors[i] = c
	}
	return &ColorScale{domain: append([]float64(nil), domain...), colors: colors}, nil
}

// MustColorScale is NewColorScale for fixed presets; it panics on error.
func MustColorScale(domain []float64, hexColors []string) *ColorScale {
	s, err := NewColorScale(domain, hexColors)
	if err != nil {
		panic(err)
	}
	return s
}

// MapLegend is the choropleth legend ramp: -4 °C white to +4 °C steel blue.
func MapLegend() *ColorScale {
	return MustColorScale([]float64{-4, 4}, []string{"#ffffff", "#4682b4"})
}

// Polar is the anomaly ramp of the radial chart: blue through pale yellow to
// red over [-1.5, 1.25] °C.
func Polar() *ColorScale {
	const low, high = -1.5, 1.25
	return MustColorScale(
		[]float64{low, (low + high) / 2, high},
		[]string{"#2c7bb6", "#ffff8c", "#d7191c"},
	)
}

// Domain returns the first and last stop positions.
func (s *ColorScale) Domain() (float64, float64) {
	return s.domain[0], s.domain[len(s.domain)-1]
}

// At returns the interpolated colour for v.
func (s *ColorScale) At(v float64) colorful.Color {
	lo, hi := s.Domain()
	switch {
	case v <= lo:
		return s.colors[0]
	case v >= hi:
		return s.colors[len(s.colors)-1]
	}
	i := 1
	for i < len(s.domain)-1 && v > s.domain[i] {
		i++
	}
	d0, d1 := s.domain[i-1], s.domain[i]
	t := (v - d0) / (d1 - d0)
	switch {
	case t <= 0:
		return s.colors[i-1]
	case t >= 1:
		return s.colors[i]
	}
	return s.colors[i-1].BlendHcl(s.colors[i], t).Clamped()
}

// Hex returns the colour for v as "#rrggbb".
func (s *ColorScale) Hex(v float64) string {
	return s.At(v).Hex()
}
