// Package domain joins regional temperature tables onto map geometries and
// answers per-period range queries over the result.
//
// # Data Source
//
// Two datasets describe the same set of regions (countries):
//
//   - an attribute table, one row per region, with an "id" column, an optional
//     "name" column and one column per period. Periods are years ("1901") for
//     the temperature map or arbitrary labels ("2008", "Year-Month") for other
//     tables.
//   - a geometry collection (TopoJSON or GeoJSON) whose entities carry the same
//     id in properties.id. Shapes are passed through to the renderer as-is.
//
// # Conventions
//
// Missing values:
//
//	-99 is the table sentinel for "no data". Empty or unparseable cells are
//	stored as -99 too, so every joined region has a number for every period
//	of its row. Range queries never report -99 as an extreme.
//
// Join:
//
//	Each region takes the first table row with its id; later rows with the
//	same id are ignored. Rows with no region are dropped. Regions with no row
//	keep their original properties only.
//
// Periods:
//
//	Period keys are listed in first-seen order (table header order), not
//	sorted. The first period is the default selection.
//
// Ranges:
//
//	A period with no valid value has the range (+Inf, -Inf). Use
//	[Range.Empty] to detect it before scaling.
package domain
