// Package scale maps data values onto visual channels: fill opacity for the
// choropleth and HCL colour ramps for legends and the polar chart.
package scale

import (
	"math"

	"github.com/couchcryptid/temperature-map/internal/domain"
)

// Opacity bounds for choropleth fills.
const (
	MinOpacity = 0.3
	MaxOpacity = 1.0
)

// Linear maps a continuous domain onto a continuous range without clamping.
// A zero-width domain maps every value to the middle of the range.
type Linear struct {
	Domain [2]float64
	Range  [2]float64
}

// Map returns the range value for v.
func (l Linear) Map(v float64) float64 {
	d0, d1 := l.Domain[0], l.Domain[1]
	r0, r1 := l.Range[0], l.Range[1]
	t := 0.5
	if d1 != d0 {
		t = (v - d0) / (d1 - d0)
	}
	return r0 + t*(r1-r0)
}

// Opacity maps value within r onto [MinOpacity, MaxOpacity]. ok is false when
// the range is empty or value is the sentinel or not finite; the renderer
// should then use its neutral style.
func Opacity(value float64, r domain.Range) (float64, bool) {
	if r.Empty() || domain.IsSentinel(value) || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	l := Linear{Domain: [2]float64{r.Min, r.Max}, Range: [2]float64{MinOpacity, MaxOpacity}}
	return l.Map(value), true
}
