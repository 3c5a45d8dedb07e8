package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/pipeline"
	"github.com/couchcryptid/temperature-map/internal/scale"
)

var validate = validator.New()

// periodQuery selects a period directly or by slider year.
type periodQuery struct {
	Period string `validate:"required,max=128"`
}

type tooltipQuery struct {
	ID     string `validate:"required,max=128"`
	Period string `validate:"required,max=128"`
}

type legendQuery struct {
	Stops  int    `validate:"min=2,max=256"`
	Preset string `validate:"oneof=map polar"`
}

type rangeResponse struct {
	Period string   `json:"period"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Empty  bool     `json:"empty"`
}

// newRangeResponse reports the infinities of an empty range as nulls.
func newRangeResponse(period string, r domain.Range) rangeResponse {
	if r.Empty() {
		return rangeResponse{Period: period, Empty: true}
	}
	return rangeResponse{Period: period, Min: &r.Min, Max: &r.Max}
}

type choroplethResponse struct {
	Period  string                     `json:"period"`
	Range   rangeResponse              `json:"range"`
	Entries []pipeline.ChoroplethEntry `json:"entries"`
}

type legendResponse struct {
	Preset string       `json:"preset"`
	Domain [2]float64   `json:"domain"`
	Stops  []scale.Stop `json:"stops"`
}

type reloadResponse struct {
	Version     int64 `json:"version"`
	Entities    int   `json:"entities"`
	Matched     int   `json:"matched"`
	Unmatched   int   `json:"unmatched"`
	DroppedRows int   `json:"droppedRows"`
	Periods     int   `json:"periods"`
}

func (s *Server) handlePeriods(w http.ResponseWriter, _ *http.Request) {
	periods, def, err := s.service.Periods()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": periods, "default": def})
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.service.Current()
	if err != nil {
		s.writeError(w, err)
		return
	}

	contentType := "application/json"
	if ds.Format == source.FormatGeoJSON {
		contentType = "application/geo+json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Dataset-Version", strconv.FormatInt(ds.Version, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(ds.Document) //nolint:errcheck // client went away
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q, ok := s.resolvePeriod(w, r)
	if !ok {
		return
	}
	rng, err := s.service.Range(q.Period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRangeResponse(q.Period, rng))
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	q, ok := s.resolvePeriod(w, r)
	if !ok {
		return
	}
	c, err := s.service.Choropleth(q.Period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, choroplethResponse{
		Period:  c.Period,
		Range:   newRangeResponse(c.Period, c.Range),
		Entries: c.Entries,
	})
}

func (s *Server) handleTooltip(w http.ResponseWriter, r *http.Request) {
	q := tooltipQuery{
		ID:     r.URL.Query().Get("id"),
		Period: r.URL.Query().Get("period"),
	}
	if err := validate.Struct(q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	tip, err := s.service.Tooltip(q.ID, q.Period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	q := legendQuery{Stops: 10, Preset: "map"}
	if v := r.URL.Query().Get("stops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stops must be an integer"})
			return
		}
		q.Stops = n
	}
	if v := r.URL.Query().Get("preset"); v != "" {
		q.Preset = strings.ToLower(v)
	}
	if err := validate.Struct(q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	cs := scale.MapLegend()
	if q.Preset == "polar" {
		cs = scale.Polar()
	}
	lo, hi := cs.Domain()
	writeJSON(w, http.StatusOK, legendResponse{
		Preset: q.Preset,
		Domain: [2]float64{lo, hi},
		Stops:  scale.GradientStops(cs, q.Stops),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.service.Current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ds.Series == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no series source configured"})
		return
	}
	writeJSON(w, http.StatusOK, ds.Series)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Version:     ds.Version,
		Entities:    len(ds.Entities),
		Matched:     ds.Matched,
		Unmatched:   ds.Unmatched,
		DroppedRows: ds.DroppedRows,
		Periods:     len(ds.Periods),
	})
}

// resolvePeriod reads ?period=, or resolves ?year= against the loaded periods
// the way the map slider does.
func (s *Server) resolvePeriod(w http.ResponseWriter, r *http.Request) (periodQuery, bool) {
	q := periodQuery{Period: r.URL.Query().Get("period")}

	if year := r.URL.Query().Get("year"); q.Period == "" && year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be an integer"})
			return q, false
		}
		periods, _, err := s.service.Periods()
		if err != nil {
			s.writeError(w, err)
			return q, false
		}
		if p, ok := domain.PeriodForYear(periods, y); ok {
			q.Period = p
		}
	}

	if err := validate.Struct(q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return q, false
	}
	return q, true
}

// writeError maps dataset errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err))
	case errors.Is(err, pipeline.ErrUnknownPeriod), errors.Is(err, pipeline.ErrUnknownEntity):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
