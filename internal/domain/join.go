package domain

import (
	"maps"
	"math"
	"strconv"
	"strings"
)

// Join enriches each geometry entity with the period values of the first
// attribute row sharing its id.
//
// Rows are indexed by id once; on duplicate ids the first row in input order
// wins. Periods lists the non-reserved column keys in first-seen order across
// the row sequence. For a matched entity every column of its row is parsed and
// stored as a float64 property. An entity with a NumericID that has no exact
// match falls back to the first row whose id parses to the same number.
// Entities without a row are returned unchanged.
// Rows without an entity are dropped and counted. The input entities are never
// mutated.
func Join(rows []AttributeRow, entities []GeometryEntity) JoinResult {
	index := make(map[string]int, len(rows))
	var (
		numeric map[float64]int
		periods []string
		seen    = make(map[string]struct{})
	)
	for i, row := range rows {
		if _, dup := index[row.ID]; !dup {
			index[row.ID] = i
		}
		if n, ok := numericID(row.ID); ok {
			if numeric == nil {
				numeric = make(map[float64]int)
			}
			if _, dup := numeric[n]; !dup {
				numeric[n] = i
			}
		}
		for _, col := range row.Values {
			if isReserved(col.Period) {
				continue
			}
			if _, known := seen[col.Period]; !known {
				seen[col.Period] = struct{}{}
				periods = append(periods, col.Period)
			}
		}
	}

	var (
		out  = make([]GeometryEntity, 0, len(entities))
		used = make(map[string]struct{}, len(entities))
		res  JoinResult
	)

	for _, entity := range entities {
		i, ok := index[entity.ID]
		if !ok && entity.NumericID {
			if n, valid := numericID(entity.ID); valid {
				i, ok = numeric[n]
			}
		}
		if !ok {
			out = append(out, entity)
			res.Unmatched++
			continue
		}

		enriched := entity
		enriched.Properties = cloneProperties(entity.Properties, len(rows[i].Values))
		for _, col := range rows[i].Values {
			if isReserved(col.Period) {
				continue
			}
			enriched.Properties[col.Period] = ParseValue(col.Raw)
		}
		out = append(out, enriched)
		used[rows[i].ID] = struct{}{}
		res.Matched++
	}

	for _, row := range rows {
		if _, ok := used[row.ID]; !ok {
			res.DroppedRows++
		}
	}

	res.Entities = out
	res.Periods = periods
	return res
}

// ParseValue converts a raw table cell into a number. Empty, unparseable and
// non-finite cells become Sentinel.
func ParseValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sentinel
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Sentinel
	}
	return v
}

func numericID(id string) (float64, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(id, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// IsSentinel reports whether v is the "no data" marker.
func IsSentinel(v float64) bool {
	return v == Sentinel
}

func isReserved(key string) bool {
	return key == KeyID || key == KeyName
}

func cloneProperties(props map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(props)+extra)
	maps.Copy(out, props)
	return out
}
