package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/temperature-map/internal/config"
	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/observability"
)

// batchSize bounds the number of messages per WriteMessages call.
const batchSize = 500

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per enriched entity to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// entityMessage is the JSON value of a published entity.
type entityMessage struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Version    int64               `json:"version"`
	LoadedAt   time.Time           `json:"loadedAt"`
	Properties map[string]any      `json:"properties"`
	Values     map[string]*float64 `json:"values"`
}

// Publish writes every entity of snap, keyed by entity id so updates to one
// region land on one partition.
func (p *Publisher) Publish(ctx context.Context, snap *domain.Snapshot) error {
	if len(snap.Entities) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, min(len(snap.Entities), batchSize))
	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write entities: %w", err)
		}
		p.metrics.EntitiesPublished.Add(float64(len(msgs)))
		msgs = msgs[:0]
		return nil
	}

	for i := range snap.Entities {
		msg, err := serializeToMessage(snap, snap.Entities[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		if len(msgs) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	p.logger.Info("snapshot published", "version", snap.Version, "entities", len(snap.Entities))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals one entity into a Kafka message. Periods
// without a valid value are published as null.
func serializeToMessage(snap *domain.Snapshot, e domain.GeometryEntity) (kafkago.Message, error) {
	values := make(map[string]*float64, len(snap.Periods))
	for _, period := range snap.Periods {
		if v, ok := domain.ValidValue(e, period); ok {
			values[period] = &v
		} else {
			values[period] = nil
		}
	}

	data, err := json.Marshal(entityMessage{
		ID:         e.ID,
		Label:      e.Label(),
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
		Properties: e.Properties,
		Values:     values,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize entity %q: %w", e.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(e.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset_version", Value: []byte(strconv.FormatInt(snap.Version, 10))},
			{Key: "loaded_at", Value: []byte(snap.LoadedAt.Format(time.RFC3339))},
		},
	}, nil
}
