package domain

import (
	"math"
	"time"
)

// Sentinel is the "no data" marker used by the source tables. Unparseable or
// missing values are stored as Sentinel so every enriched entity carries a
// number for each period it was joined on.
const Sentinel = -99.0

// Reserved column keys that identify a row rather than a period.
const (
	KeyID   = "id"
	KeyName = "name"
)

// Column is one raw period value from an attribute table row.
type Column struct {
	Period string
	Raw    string
}

// AttributeRow is one table row: an entity id, a display name, and the raw
// period columns in header order. Reserved columns never appear in Values.
type AttributeRow struct {
	ID     string
	Name   string
	Values []Column
}

// GeometryEntity is a single region from a geometry collection. Shape is
// opaque to this package and passed through untouched to the renderer.
//
// NumericID marks an id that was a number in the source document. Such ids
// also match table ids that parse to the same number, so 4 joins "004".
type GeometryEntity struct {
	ID         string         `json:"id"`
	NumericID  bool           `json:"-"`
	Properties map[string]any `json:"properties"`
	Shape      any            `json:"shape,omitempty"`
}

// Value returns the numeric property stored under period. ok is false when
// the property is missing or not a number.
func (e GeometryEntity) Value(period string) (float64, bool) {
	v, found := e.Properties[period]
	if !found {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Label returns the display name of the entity: the "admin" property, then
// "name", then the id.
func (e GeometryEntity) Label() string {
	for _, key := range []string{"admin", KeyName} {
		if s, ok := e.Properties[key].(string); ok && s != "" {
			return s
		}
	}
	return e.ID
}

// Range is the valid numeric extent of one period across all entities.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EmptyRange is the result of a range query with no valid values.
func EmptyRange() Range {
	return Range{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Empty reports whether r carries no data (the (+Inf, -Inf) case).
func (r Range) Empty() bool {
	return math.IsInf(r.Min, 1) || math.IsInf(r.Max, -1) || r.Min > r.Max
}

// JoinResult is the output of Join.
type JoinResult struct {
	Entities []GeometryEntity
	Periods  []string

	Matched     int // entities that found a row
	Unmatched   int // entities left without enrichment
	DroppedRows int // rows whose id matched no entity
}

// Snapshot is an immutable, joined dataset held for the lifetime of a load.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	JoinResult
}

// NewSnapshot stamps a join result with a version and the current time.
func NewSnapshot(version int64, result JoinResult) *Snapshot {
	return &Snapshot{
		Version:    version,
		LoadedAt:   clock.Now().UTC(),
		JoinResult: result,
	}
}

// HasPeriod reports whether period was discovered during the join.
func (s *Snapshot) HasPeriod(period string) bool {
	return PeriodIndex(s.Periods, period) >= 0
}

// Entity returns the entity with the given id.
func (s *Snapshot) Entity(id string) (GeometryEntity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return GeometryEntity{}, false
}
