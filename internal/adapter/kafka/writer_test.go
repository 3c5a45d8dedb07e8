package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/observability"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]kafkago.Message(nil), msgs...))
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testSnapshot(n int) *domain.Snapshot {
	loadedAt := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	snap := &domain.Snapshot{
		Version:  7,
		LoadedAt: loadedAt,
		JoinResult: domain.JoinResult{
			Periods: []string{"1900", "1901"},
		},
	}
	for i := range n {
		snap.Entities = append(snap.Entities, domain.GeometryEntity{
			ID: fmt.Sprintf("E%d", i),
			Properties: map[string]any{
				"admin": fmt.Sprintf("Entity %d", i),
				"1900":  1.25,
				"1901":  domain.Sentinel,
			},
		})
	}
	return snap
}

func testPublisher(w messageWriter) (*Publisher, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return &Publisher{
		writer:  w,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics,
	}, metrics
}

func TestSerializeToMessage(t *testing.T) {
	snap := testSnapshot(1)

	msg, err := serializeToMessage(snap, snap.Entities[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("E0"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "dataset_version", msg.Headers[0].Key)
	assert.Equal(t, []byte("7"), msg.Headers[0].Value)
	assert.Equal(t, "loaded_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[1].Value)

	var body struct {
		ID     string              `json:"id"`
		Label  string              `json:"label"`
		Values map[string]*float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "E0", body.ID)
	assert.Equal(t, "Entity 0", body.Label)
	require.NotNil(t, body.Values["1900"])
	assert.InDelta(t, 1.25, *body.Values["1900"], 1e-9)
	assert.Contains(t, body.Values, "1901")
	assert.Nil(t, body.Values["1901"])
}

func TestPublish_Batches(t *testing.T) {
	w := &fakeWriter{}
	p, metrics := testPublisher(w)

	require.NoError(t, p.Publish(context.Background(), testSnapshot(batchSize+3)))

	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], batchSize)
	assert.Len(t, w.batches[1], 3)
	assert.Equal(t, []byte(fmt.Sprintf("E%d", batchSize)), w.batches[1][0].Key)
	assert.InDelta(t, batchSize+3, testutil.ToFloat64(metrics.EntitiesPublished), 0)
}

func TestPublish_Empty(t *testing.T) {
	w := &fakeWriter{}
	p, _ := testPublisher(w)

	require.NoError(t, p.Publish(context.Background(), testSnapshot(0)))
	assert.Empty(t, w.batches)
}

func TestPublish_WriteError(t *testing.T) {
	brokerErr := errors.New("leader not available")
	p, metrics := testPublisher(&fakeWriter{err: brokerErr})

	err := p.Publish(context.Background(), testSnapshot(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, brokerErr)
	assert.Zero(t, testutil.ToFloat64(metrics.EntitiesPublished))
}
