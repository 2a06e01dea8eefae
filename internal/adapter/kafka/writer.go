package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/facility-lead-etl/internal/config"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

// Writer publishes canonical entities to the sink topic.
// It implements pipeline.EntityLoader.
type Writer struct {
	writer    *kafkago.Writer
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, logger: logger}
}

func (w *Writer) Name() string { return config.SinkKafka }

// LoadEntities publishes entities in chunks of the configured batch size.
// Entities are keyed by id so every version of a facility lands on the same
// partition.
func (w *Writer) LoadEntities(ctx context.Context, build domain.BuildInfo, entities []domain.CanonicalEntity) error {
	for start := 0; start < len(entities); start += w.batchSize {
		end := min(start+w.batchSize, len(entities))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(build, entities[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write entities %d-%d: %w", start, end, err)
		}
	}
	w.logger.Debug("entities published", "build_id", build.ID, "entities", len(entities))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CanonicalEntity into a Kafka message.
func serializeToMessage(build domain.BuildInfo, entity domain.CanonicalEntity) (kafkago.Message, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize entity %s: %w", entity.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(entity.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "primary_source", Value: []byte(entity.PrimarySource().String())},
			{Key: "build_id", Value: []byte(build.ID)},
			{Key: "built_at", Value: []byte(build.BuiltAt.Format(time.RFC3339))},
		},
	}, nil
}
