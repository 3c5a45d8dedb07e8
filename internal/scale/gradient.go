package scale

// Stop is one gradient stop: an offset in [0, 1] and its colour.
type Stop struct {
	Offset float64 `json:"offset"`
	Value  float64 `json:"value"`
	Color  string  `json:"color"`
}

// GradientStops samples n evenly spaced values across the scale domain and
// places them at evenly spaced offsets, as used by linear legends.
func GradientStops(s *ColorScale, n int) []Stop {
	return RadialStops(s, n, 0)
}

// RadialStops is GradientStops for a radial gradient whose first stop sits at
// innerRatio of the outer radius.
func RadialStops(s *ColorScale, n int, innerRatio float64) []Stop {
	if n < 2 {
		n = 2
	}
	lo, hi := s.Domain()
	offsets := Linear{Domain: [2]float64{lo, hi}, Range: [2]float64{innerRatio, 1}}
	stops := make([]Stop, n)
	for i := range stops {
		v := lo + float64(i)*(hi-lo)/float64(n-1)
		stops[i] = Stop{
			Offset: offsets.Map(v),
			Value:  v,
			Color:  s.Hex(v),
		}
	}
	return stops
}
