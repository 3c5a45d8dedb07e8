package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/observability"
	"github.com/couchcryptid/temperature-map/internal/series"
)

// ErrNotLoaded is returned by queries before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Fetcher retrieves the raw bytes behind a source URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Publisher receives every newly loaded snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// Sources names the inputs of one load.
type Sources struct {
	Table          string
	TableDelimiter rune
	Geometry       string
	GeometryFormat source.Format
	GeometryObject string
	Series         string // optional
}

// Dataset is everything served from one load. It is never mutated after it
// is published.
type Dataset struct {
	*domain.Snapshot

	// Document is the geometry re-encoded in its source format with enriched properties.
	Document []byte
	Format   source.Format

	// Series is nil when no series source is configured.
	Series *series.Layout

	TableSkipped  int
	SeriesSkipped int
}

// Loader fetches the sources, joins them, and serves the result. Loads are
// serialised; readers see either the previous or the new dataset, never a
// partial one.
type Loader struct {
	fetcher   Fetcher
	sources   Sources
	timeout   time.Duration
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu      sync.Mutex
	version int64
	current atomic.Pointer[Dataset]
}

// New creates a Loader. publisher may be nil to disable publishing; timeout
// bounds the fetch phase of each load (0 means no limit).
func New(f Fetcher, sources Sources, timeout time.Duration, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		fetcher:   f,
		sources:   sources,
		timeout:   timeout,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a dataset is being served.
func (l *Loader) CheckReadiness(_ context.Context) error {
	if l.current.Load() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Current returns the dataset being served.
func (l *Loader) Current() (*Dataset, error) {
	ds := l.current.Load()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return ds, nil
}

// Load runs one fetch-decode-join cycle and swaps in the result. On failure
// the previous dataset keeps being served. The new snapshot is published
// after the swap, outside the load lock and detached from ctx cancellation.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	ds, err := l.swap(ctx)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, ds)
	return ds, nil
}

func (l *Loader) swap(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	ds, err := l.build(ctx)
	if err != nil {
		l.metrics.LoadFailures.Inc()
		l.logger.Error("dataset load failed", "error", err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	l.version++
	ds.Snapshot.Version = l.version
	l.current.Store(ds)

	l.metrics.Loads.Inc()
	l.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	l.metrics.SnapshotLoaded.Set(1)
	l.metrics.EntitiesMatched.Set(float64(ds.Matched))
	l.metrics.EntitiesUnmatched.Set(float64(ds.Unmatched))
	l.metrics.RowsDropped.Set(float64(ds.DroppedRows))
	l.metrics.PeriodsDiscovered.Set(float64(len(ds.Periods)))

	l.logger.Info("dataset loaded",
		"version", ds.Version,
		"entities", len(ds.Entities),
		"matched", ds.Matched,
		"unmatched", ds.Unmatched,
		"rows_dropped", ds.DroppedRows,
		"rows_skipped", ds.TableSkipped,
		"periods", len(ds.Periods),
		"duration", time.Since(start),
	)
	return ds, nil
}

// publish hands ds to the publisher. Failures are logged only; consumers
// order snapshots by the version carried on every message.
func (l *Loader) publish(ctx context.Context, ds *Dataset) {
	if l.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.publisher.Publish(ctx, ds.Snapshot); err != nil {
		l.logger.Warn("publish snapshot failed", "version", ds.Version, "error", err)
	}
}

// build fetches all sources concurrently and joins them into a new dataset.
func (l *Loader) build(ctx context.Context) (*Dataset, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var (
		table  source.TableResult
		geom   *source.Geometry
		parsed *series.ParseResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.timed("table", func() error {
			data, err := l.fetcher.Fetch(gctx, l.sources.Table)
			if err != nil {
				return fmt.Errorf("fetch table: %w", err)
			}
			table, err = source.ParseTable(data, l.sources.TableDelimiter)
			if err != nil {
				return fmt.Errorf("parse table: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return l.timed("geometry", func() error {
			data, err := l.fetcher.Fetch(gctx, l.sources.Geometry)
			if err != nil {
				return fmt.Errorf("fetch geometry: %w", err)
			}
			geom, err = source.ParseGeometry(data, l.sources.GeometryFormat, l.sources.GeometryObject)
			if err != nil {
				return fmt.Errorf("parse geometry: %w", err)
			}
			return nil
		})
	})
	if l.sources.Series != "" {
		g.Go(func() error {
			return l.timed("series", func() error {
				data, err := l.fetcher.Fetch(gctx, l.sources.Series)
				if err != nil {
					return fmt.Errorf("fetch series: %w", err)
				}
				res, err := series.Parse(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("parse series: %w", err)
				}
				parsed = &res
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := domain.Join(table.Rows, geom.Entities)
	doc, err := geom.Encode(result.Entities)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Snapshot:     domain.NewSnapshot(0, result),
		Document:     doc,
		Format:       geom.Format,
		TableSkipped: table.Skipped,
	}
	if parsed != nil {
		layout := series.Compute(parsed.Points, series.DefaultLayoutOptions())
		ds.Series = &layout
		ds.SeriesSkipped = parsed.Skipped
	}
	return ds, nil
}

func (l *Loader) timed(kind string, fn func() error) error {
	start := time.Now()
	err := fn()
	l.metrics.SourceFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return err
}
