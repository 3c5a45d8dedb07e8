package pipeline

import (
	"errors"

	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/scale"
)

var (
	// ErrUnknownPeriod is returned for a period that no table column defines.
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrUnknownEntity is returned for an id that no geometry entity carries.
	ErrUnknownEntity = errors.New("unknown entity")
)

// ChoroplethEntry is the fill of one entity. Opacity is 0 when HasData is false.
type ChoroplethEntry struct {
	ID      string   `json:"id"`
	Value   *float64 `json:"value"`
	Opacity float64  `json:"opacity"`
	HasData bool     `json:"hasData"`
}

// Choropleth is the per-entity fill for one period.
type Choropleth struct {
	Period  string            `json:"period"`
	Range   domain.Range      `json:"-"`
	Entries []ChoroplethEntry `json:"entries"`
}

// Periods returns the discovered periods and the default one.
func (l *Loader) Periods() ([]string, string, error) {
	ds, err := l.Current()
	if err != nil {
		return nil, "", err
	}
	def, _ := domain.DefaultPeriod(ds.Periods)
	return ds.Periods, def, nil
}

// Range returns the valid value range of period in the current dataset.
func (l *Loader) Range(period string) (domain.Range, error) {
	ds, err := l.Current()
	if err != nil {
		return domain.Range{}, err
	}
	return l.rangeOf(ds, period)
}

func (l *Loader) rangeOf(ds *Dataset, period string) (domain.Range, error) {
	if !ds.HasPeriod(period) {
		l.metrics.RangeQueries.WithLabelValues("unknown_period").Inc()
		return domain.Range{}, ErrUnknownPeriod
	}

	r := domain.ValueRange(ds.Entities, period)
	if r.Empty() {
		l.metrics.RangeQueries.WithLabelValues("empty").Inc()
	} else {
		l.metrics.RangeQueries.WithLabelValues("ok").Inc()
	}
	return r, nil
}

// Choropleth computes the fill opacity of every entity for period.
func (l *Loader) Choropleth(period string) (Choropleth, error) {
	ds, err := l.Current()
	if err != nil {
		return Choropleth{}, err
	}
	r, err := l.rangeOf(ds, period)
	if err != nil {
		return Choropleth{}, err
	}

	out := Choropleth{
		Period:  period,
		Range:   r,
		Entries: make([]ChoroplethEntry, 0, len(ds.Entities)),
	}
	for _, e := range ds.Entities {
		entry := ChoroplethEntry{ID: e.ID}
		if v, ok := domain.ValidValue(e, period); ok {
			entry.Value = &v
			entry.Opacity, entry.HasData = scale.Opacity(v, r)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// Tooltip returns the hover text of entity id at period.
func (l *Loader) Tooltip(id, period string) (domain.Tooltip, error) {
	ds, err := l.Current()
	if err != nil {
		return domain.Tooltip{}, err
	}
	if !ds.HasPeriod(period) {
		return domain.Tooltip{}, ErrUnknownPeriod
	}
	e, ok := ds.Entity(id)
	if !ok {
		return domain.Tooltip{}, ErrUnknownEntity
	}
	return domain.NewTooltip(e, period), nil
}
