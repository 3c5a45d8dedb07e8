package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/temperature-map/internal/domain"
)

// Format identifies a geometry document encoding.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatTopoJSON Format = "topojson"
	FormatGeoJSON  Format = "geojson"
)

var (
	// ErrObjectNotFound is returned when a TopoJSON topology lacks the configured object.
	ErrObjectNotFound = errors.New("topology object not found")
	// ErrUnknownFormat is returned when a document is neither a Topology nor a FeatureCollection.
	ErrUnknownFormat = errors.New("unknown geometry format")
)

// Geometry is a decoded geometry document. It keeps the original bytes so
// enriched entities can be written back in the same encoding.
type Geometry struct {
	Format   Format
	Object   string
	Entities []domain.GeometryEntity

	raw []byte
}

type topoGeometry struct {
	ID         any            `json:"id"`
	Properties map[string]any `json:"properties"`
}

// ParseGeometry decodes a TopoJSON topology (reading objects.<object>) or a
// GeoJSON FeatureCollection. FormatAuto sniffs the top-level "type".
func ParseGeometry(data []byte, format Format, object string) (*Geometry, error) {
	if format == "" || format == FormatAuto {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		switch head.Type {
		case "Topology":
			format = FormatTopoJSON
		case "FeatureCollection":
			format = FormatGeoJSON
		default:
			return nil, fmt.Errorf("%w: type %q", ErrUnknownFormat, head.Type)
		}
	}

	switch format {
	case FormatTopoJSON:
		return parseTopology(data, object)
	case FormatGeoJSON:
		return parseFeatureCollection(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func parseTopology(data []byte, object string) (*Geometry, error) {
	var topo struct {
		Objects map[string]struct {
			Geometries []json.RawMessage `json:"geometries"`
		} `json:"objects"`
	}
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	obj, ok := topo.Objects[object]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrObjectNotFound, object)
	}

	entities := make([]domain.GeometryEntity, 0, len(obj.Geometries))
	for i, raw := range obj.Geometries {
		var g topoGeometry
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("decode topology geometry %d: %w", i, err)
		}
		id, numeric := entityID(g.Properties, g.ID)
		entities = append(entities, domain.GeometryEntity{
			ID:         id,
			NumericID:  numeric,
			Properties: g.Properties,
			Shape:      raw,
		})
	}

	return &Geometry{Format: FormatTopoJSON, Object: object, Entities: entities, raw: data}, nil
}

func parseFeatureCollection(data []byte) (*Geometry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	entities := make([]domain.GeometryEntity, 0, len(fc.Features))
	for _, f := range fc.Features {
		id, numeric := entityID(f.Properties, f.ID)
		entities = append(entities, domain.GeometryEntity{
			ID:         id,
			NumericID:  numeric,
			Properties: f.Properties,
			Shape:      f.Geometry,
		})
	}

	return &Geometry{Format: FormatGeoJSON, Entities: entities, raw: data}, nil
}

// entityID prefers properties.id and falls back to the feature id. numeric
// reports whether the chosen id was a JSON number.
func entityID(props map[string]any, fallback any) (id string, numeric bool) {
	v, ok := props[domain.KeyID]
	if !ok || v == nil {
		v = fallback
	}
	switch n := v.(type) {
	case nil:
		return "", false
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case json.Number:
		return n.String(), true
	default:
		return fmt.Sprint(v), false
	}
}

// Encode writes entities back in the document's format. Entities must be in
// the same order as g.Entities, which Join preserves.
func (g *Geometry) Encode(entities []domain.GeometryEntity) ([]byte, error) {
	if len(entities) != len(g.Entities) {
		return nil, fmt.Errorf("encode geometry: got %d entities, want %d", len(entities), len(g.Entities))
	}
	switch g.Format {
	case FormatTopoJSON:
		return g.encodeTopology(entities)
	case FormatGeoJSON:
		return encodeFeatureCollection(entities)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, g.Format)
	}
}

func encodeFeatureCollection(entities []domain.GeometryEntity) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, e := range entities {
		geom, _ := e.Shape.(*geojson.Geometry)
		f := geojson.NewFeature(geom)
		f.ID = e.ID
		f.Properties = e.Properties
		fc.AddFeature(f)
	}
	return fc.MarshalJSON()
}

// encodeTopology replaces the properties of every geometry in the configured
// object and leaves the rest of the topology (arcs, transform) untouched.
func (g *Geometry) encodeTopology(entities []domain.GeometryEntity) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(g.raw, &doc); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	var objects map[string]json.RawMessage
	if err := json.Unmarshal(doc["objects"], &objects); err != nil {
		return nil, fmt.Errorf("decode topology objects: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(objects[g.Object], &obj); err != nil {
		return nil, fmt.Errorf("decode topology object: %w", err)
	}
	var geoms []map[string]json.RawMessage
	if err := json.Unmarshal(obj["geometries"], &geoms); err != nil {
		return nil, fmt.Errorf("decode topology geometries: %w", err)
	}
	if len(geoms) != len(entities) {
		return nil, fmt.Errorf("encode topology: got %d entities, want %d", len(entities), len(geoms))
	}

	for i := range geoms {
		props, err := json.Marshal(entities[i].Properties)
		if err != nil {
			return nil, fmt.Errorf("encode properties of %q: %w", entities[i].ID, err)
		}
		geoms[i]["properties"] = props
	}

	var err error
	if obj["geometries"], err = json.Marshal(geoms); err != nil {
		return nil, err
	}
	if objects[g.Object], err = json.Marshal(obj); err != nil {
		return nil, err
	}
	if doc["objects"], err = json.Marshal(objects); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
