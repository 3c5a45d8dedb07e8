package domain

import "math"

// ValueRange returns the extent of the valid values stored under period.
//
// Missing properties, non-numeric values, NaN and the Sentinel are skipped.
// When no entity has a valid value the result is EmptyRange() and callers
// must check Range.Empty before feeding it into a scale.
func ValueRange(entities []GeometryEntity, period string) Range {
	r := EmptyRange()
	for _, e := range entities {
		v, ok := e.Value(period)
		if !ok || math.IsNaN(v) || IsSentinel(v) {
			continue
		}
		if v <= r.Min {
			r.Min = v
		}
		if v >= r.Max {
			r.Max = v
		}
	}
	return r
}

// ValidValue returns the entity's value for period when it is usable for
// display: present, numeric, finite and not the Sentinel.
func ValidValue(e GeometryEntity, period string) (float64, bool) {
	v, ok := e.Value(period)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || IsSentinel(v) {
		return 0, false
	}
	return v, true
}
