package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/temperature-map/internal/adapter/http"
	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/observability"
	"github.com/couchcryptid/temperature-map/internal/pipeline"
)

const testTable = `id,name,1900,1901,1902
A,Alpha,1.5,0.5,
B,Beta,-99,2.5,
C,Gamma,3.0,,-99
`

const testGeometry = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"id": "A", "admin": "Alpha"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 1]}, "properties": {"id": "B", "admin": "Beta"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [2, 2]}, "properties": {"id": "C", "admin": "Gamma"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [3, 3]}, "properties": {"id": "D", "admin": "Delta"}}
  ]
}`

type stubFetcher struct {
	mu   sync.Mutex
	fail bool
}

func (f *stubFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("source unavailable")
	}
	switch uri {
	case "table.csv":
		return []byte(testTable), nil
	case "world.json":
		return []byte(testGeometry), nil
	}
	return nil, errors.New("unknown source")
}

func newTestServer(t *testing.T, load bool) (*httpadapter.Server, *stubFetcher) {
	t.Helper()
	fetcher := &stubFetcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := pipeline.New(fetcher, pipeline.Sources{
		Table:          "table.csv",
		TableDelimiter: ',',
		Geometry:       "world.json",
		GeometryFormat: source.FormatAuto,
	}, 0, nil, logger, observability.NewMetricsForTesting())
	if load {
		_, err := loader.Load(context.Background())
		require.NoError(t, err)
	}
	return httpadapter.NewServer(":0", loader, logger), fetcher
}

func do(t *testing.T, srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz").Code)
}

func TestReadyzReturns503BeforeLoad(t *testing.T) {
	srv, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/readyz").Code)
}

func TestReadyzReturns200AfterLoad(t *testing.T) {
	srv, _ := newTestServer(t, true)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz").Code)
}

func TestMetricsEndpointReturns200(t *testing.T) {
	srv, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/metrics").Code)
}

func TestPeriods(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/periods")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"1900", "1901", "1902"}, body["periods"])
	assert.Equal(t, "1900", body["default"])
}

func TestPeriodsBeforeLoadReturns503(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := do(t, srv, http.MethodGet, "/api/v1/periods")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not loaded")
}

func TestRange(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/range?period=1900")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1900", body["period"])
	assert.InDelta(t, 1.5, body["min"], 1e-9)
	assert.InDelta(t, 3.0, body["max"], 1e-9)
	assert.Equal(t, false, body["empty"])
}

func TestRangeEmptyReportsNulls(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/range?period=1902")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["min"])
	assert.Nil(t, body["max"])
	assert.Equal(t, true, body["empty"])
}

func TestRangeByYear(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/range?year=1901")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1901", body["period"])
	assert.InDelta(t, 0.5, body["min"], 1e-9)
	assert.InDelta(t, 2.5, body["max"], 1e-9)
}

func TestRangeStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing period", "/api/v1/range", http.StatusBadRequest},
		{"bad year", "/api/v1/range?year=soon", http.StatusBadRequest},
		{"unknown period", "/api/v1/range?period=1850", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestChoropleth(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/choropleth?period=1900")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Period string `json:"period"`
		Range  struct {
			Min   *float64 `json:"min"`
			Max   *float64 `json:"max"`
			Empty bool     `json:"empty"`
		} `json:"range"`
		Entries []struct {
			ID      string   `json:"id"`
			Value   *float64 `json:"value"`
			Opacity float64  `json:"opacity"`
			HasData bool     `json:"hasData"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "1900", body.Period)
	require.NotNil(t, body.Range.Min)
	assert.InDelta(t, 1.5, *body.Range.Min, 1e-9)
	require.Len(t, body.Entries, 4)
	assert.Equal(t, "A", body.Entries[0].ID)
	assert.InDelta(t, 0.3, body.Entries[0].Opacity, 1e-9)
	assert.False(t, body.Entries[1].HasData)
	assert.Nil(t, body.Entries[1].Value)
	assert.InDelta(t, 1.0, body.Entries[2].Opacity, 1e-9)
	assert.False(t, body.Entries[3].HasData)
}

func TestTooltip(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodGet, "/api/v1/tooltip?id=A&period=1900")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Alpha", body["label"])
	assert.Equal(t, "1.50 °C", body["value"])

	rec = do(t, srv, http.MethodGet, "/api/v1/tooltip?id=D&period=1900")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no data", decode(t, rec)["value"])

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/v1/tooltip?id=Q&period=1900").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/tooltip?period=1900").Code)
}

func TestLegend(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodGet, "/api/v1/legend")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "map", body["preset"])
	assert.Equal(t, []any{-4.0, 4.0}, body["domain"])
	stops, ok := body["stops"].([]any)
	require.True(t, ok)
	assert.Len(t, stops, 10)

	rec = do(t, srv, http.MethodGet, "/api/v1/legend?preset=polar&stops=3")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, []any{-1.5, 1.25}, body["domain"])
	stops, ok = body["stops"].([]any)
	require.True(t, ok)
	require.Len(t, stops, 3)
	first, ok := stops[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "#2c7bb6", first["color"])
}

func TestLegendValidation(t *testing.T) {
	srv, _ := newTestServer(t, false)

	for _, target := range []string{
		"/api/v1/legend?stops=1",
		"/api/v1/legend?stops=many",
		"/api/v1/legend?preset=rainbow",
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, target).Code, target)
	}
}

func TestEntities(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodGet, "/api/v1/entities")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Dataset-Version"))

	body := decode(t, rec)
	assert.Equal(t, "FeatureCollection", body["type"])
}

func TestSeriesNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, true)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/v1/series").Code)
}

func TestReload(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := do(t, srv, http.MethodPost, "/api/v1/reload")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 2, body["version"], 0)
	assert.InDelta(t, 3, body["matched"], 0)
	assert.InDelta(t, 1, body["unmatched"], 0)
}

func TestReloadFailureReturns502AndKeepsServing(t *testing.T) {
	srv, fetcher := newTestServer(t, true)
	fetcher.mu.Lock()
	fetcher.fail = true
	fetcher.mu.Unlock()

	assert.Equal(t, http.StatusBadGateway, do(t, srv, http.MethodPost, "/api/v1/reload").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/range?period=1900").Code)
}

func TestReloadRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t, true)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/api/v1/reload").Code)
}
