package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/facility-lead-etl/internal/config"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

// Reader takes a snapshot of each source topic: every partition is read from
// its first retained offset up to the high watermark observed when the read
// starts. It implements pipeline.SourceExtractor.
type Reader struct {
	brokers      []string
	topics       map[domain.Source]string
	drainTimeout time.Duration
	dialer       *kafkago.Dialer
	logger       *slog.Logger
}

// NewReader creates a snapshot reader for the configured source topics.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	return &Reader{
		brokers:      cfg.KafkaBrokers,
		topics:       cfg.SourceTopics(),
		drainTimeout: cfg.KafkaDrainTimeout,
		dialer:       &kafkago.Dialer{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// ExtractSource returns every retained message on the source's topic.
func (r *Reader) ExtractSource(ctx context.Context, src domain.Source) ([]domain.RawEvent, error) {
	topic, ok := r.topics[src]
	if !ok || topic == "" {
		return nil, fmt.Errorf("no topic configured for source %s", src)
	}

	partitions, err := r.partitions(ctx, topic)
	if err != nil {
		return nil, err
	}

	var events []domain.RawEvent
	for _, p := range partitions {
		batch, err := r.readPartition(ctx, p)
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}
	r.logger.Debug("source snapshot read", "source", src, "topic", topic, "partitions", len(partitions), "messages", len(events))
	return events, nil
}

func (r *Reader) partitions(ctx context.Context, topic string) ([]kafkago.Partition, error) {
	var lastErr error
	for _, broker := range r.brokers {
		conn, err := r.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		partitions, err := conn.ReadPartitions(topic)
		conn.Close() //nolint:errcheck // metadata connection
		if err != nil {
			lastErr = err
			continue
		}
		return partitions, nil
	}
	return nil, fmt.Errorf("read partitions for %s: %w", topic, lastErr)
}

// readPartition reads [first, last) from one partition. If the drain timeout
// elapses first, the messages read so far are returned.
func (r *Reader) readPartition(ctx context.Context, p kafkago.Partition) ([]domain.RawEvent, error) {
	first, last, err := r.offsets(ctx, p)
	if err != nil {
		return nil, err
	}
	if first >= last {
		return nil, nil
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   r.brokers,
		Topic:     p.Topic,
		Partition: p.ID,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   250 * time.Millisecond,
		Dialer:    r.dialer,
	})
	defer reader.Close() //nolint:errcheck // per-build reader
	if err := reader.SetOffset(first); err != nil {
		return nil, fmt.Errorf("seek %s/%d: %w", p.Topic, p.ID, err)
	}

	drainCtx, cancel := context.WithTimeout(ctx, r.drainTimeout)
	defer cancel()

	events := make([]domain.RawEvent, 0, last-first)
	for {
		msg, err := reader.ReadMessage(drainCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				r.logger.Warn("partition drain timed out, using partial snapshot",
					"topic", p.Topic, "partition", p.ID, "read", len(events), "high_watermark", last)
				return events, nil
			}
			return nil, fmt.Errorf("read %s/%d: %w", p.Topic, p.ID, err)
		}
		events = append(events, mapMessageToRawEvent(msg))
		if drained(msg.Offset, last) {
			return events, nil
		}
	}
}

func (r *Reader) offsets(ctx context.Context, p kafkago.Partition) (first, last int64, err error) {
	var lastErr error
	for _, broker := range r.brokers {
		conn, err := r.dialer.DialLeader(ctx, "tcp", broker, p.Topic, p.ID)
		if err != nil {
			lastErr = err
			continue
		}
		first, last, err = conn.ReadOffsets()
		conn.Close() //nolint:errcheck // offsets connection
		if err != nil {
			lastErr = err
			continue
		}
		return first, last, nil
	}
	return 0, 0, fmt.Errorf("read offsets for %s/%d: %w", p.Topic, p.ID, lastErr)
}

// drained reports whether offset is the last message below the watermark.
func drained(offset, watermark int64) bool {
	return offset+1 >= watermark
}

// mapMessageToRawEvent converts a Kafka message into a domain RawEvent.
// Snapshot reads are not part of a consumer group, so Commit is left nil.
func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
