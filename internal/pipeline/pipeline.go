package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/observability"
	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// SourceExtractor reads the current snapshot of one source.
type SourceExtractor interface {
	ExtractSource(ctx context.Context, src domain.Source) ([]domain.RawEvent, error)
}

// EntityLoader writes a build's canonical entities to one destination.
type EntityLoader interface {
	Name() string
	LoadEntities(ctx context.Context, build domain.BuildInfo, entities []domain.CanonicalEntity) error
}

// Summary describes one build.
type Summary struct {
	BuildID         string                       `json:"build_id"`
	StartedAt       time.Time                    `json:"started_at"`
	DurationSeconds float64                      `json:"duration_seconds"`
	Consumed        map[domain.Source]int        `json:"consumed"`
	ParseErrors     map[domain.Source]int        `json:"parse_errors"`
	Filtered        map[domain.Source]int        `json:"filtered"`
	Matches         map[resolver.MatchReason]int `json:"matches"`
	Entities        int                          `json:"entities"`
	Error           string                       `json:"error,omitempty"`
}

func newSummary(id string, start time.Time) Summary {
	return Summary{
		BuildID:     id,
		StartedAt:   start,
		Consumed:    make(map[domain.Source]int),
		ParseErrors: make(map[domain.Source]int),
		Filtered:    make(map[domain.Source]int),
		Matches:     make(map[resolver.MatchReason]int),
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock replaces the wall clock used for timestamps and the build ticker.
func WithClock(c clockwork.Clock) Option {
	return func(b *Builder) {
		b.clock = c
	}
}

// Builder orchestrates the extract-resolve-load cycle.
type Builder struct {
	extractor SourceExtractor
	preparer  RecordPreparer
	loaders   []EntityLoader
	cfg       resolver.Config
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	mu     sync.Mutex
	latest *Summary
}

// New creates a Builder with the given stages and observability.
func New(e SourceExtractor, p RecordPreparer, loaders []EntityLoader, cfg resolver.Config, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Builder {
	b := &Builder{
		extractor: e,
		preparer:  p,
		loaders:   loaders,
		cfg:       cfg,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CheckReadiness returns nil once a build has completed successfully,
// or an error describing why the service is not yet ready.
func (b *Builder) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no build has completed yet")
	}
	return nil
}

// LatestSummary returns the most recent build summary, successful or not.
func (b *Builder) LatestSummary() (Summary, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return Summary{}, false
	}
	return *b.latest, true
}

// Run builds immediately, then again on every interval tick, until the
// context is cancelled. A failed build is retried with exponential backoff
// before waiting for the next tick.
func (b *Builder) Run(ctx context.Context) error {
	b.logger.Info("pipeline started", "interval", b.interval, "sinks", len(b.loaders))
	b.metrics.PipelineRunning.Set(1)
	defer b.metrics.PipelineRunning.Set(0)

	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if !b.buildWithRetry(ctx) {
			b.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		select {
		case <-ctx.Done():
			b.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// buildWithRetry runs builds until one succeeds. Returns false if the
// pipeline should stop.
func (b *Builder) buildWithRetry(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		_, err := b.Build(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		b.logger.Error("build failed", "error", err, "retry_in", backoff)
		if !sleepWithContext(ctx, b.clock, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// Build runs one full extract-resolve-load cycle.
func (b *Builder) Build(ctx context.Context) (Summary, error) {
	start := b.clock.Now()
	summary := newSummary(uuid.NewString(), start.UTC())

	entities, err := b.build(ctx, &summary)
	summary.DurationSeconds = b.clock.Since(start).Seconds()
	if err != nil {
		summary.Error = err.Error()
		b.metrics.Builds.WithLabelValues("error").Inc()
		b.record(summary)
		return summary, err
	}

	b.metrics.Builds.WithLabelValues("success").Inc()
	b.metrics.BuildDuration.Observe(summary.DurationSeconds)
	b.metrics.EntitiesBuilt.Set(float64(entities))
	b.record(summary)
	b.ready.Store(true)

	b.logger.Info("build completed",
		"build_id", summary.BuildID,
		"entities", summary.Entities,
		"duration_seconds", summary.DurationSeconds,
	)
	return summary, nil
}

func (b *Builder) build(ctx context.Context, summary *Summary) (int, error) {
	records, events, err := b.extract(ctx, summary)
	if err != nil {
		return 0, err
	}

	entities, stats, err := resolver.Build(b.cfg, records, resolver.WithClock(b.clock))
	if err != nil {
		return 0, err
	}
	for reason, n := range stats.Matches {
		summary.Matches[reason] = n
		b.metrics.Matches.WithLabelValues(string(reason)).Add(float64(n))
	}
	summary.Entities = stats.Entities

	info := domain.BuildInfo{ID: summary.BuildID, BuiltAt: summary.StartedAt}
	for _, l := range b.loaders {
		if err := l.LoadEntities(ctx, info, entities); err != nil {
			return 0, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		b.metrics.EntitiesLoaded.WithLabelValues(l.Name()).Add(float64(len(entities)))
	}

	for _, raw := range events {
		b.commitOffset(ctx, raw)
	}
	return len(entities), nil
}

// extract reads and prepares every source in priority order. Poison pills
// are skipped and committed; the remaining events are returned for commit
// once the build has been loaded.
func (b *Builder) extract(ctx context.Context, summary *Summary) ([]domain.RawRecord, []domain.RawEvent, error) {
	var (
		records []domain.RawRecord
		pending []domain.RawEvent
	)
	for _, src := range b.cfg.Priority {
		events, err := b.extractor.ExtractSource(ctx, src)
		if err != nil {
			return nil, nil, fmt.Errorf("extract %s: %w", src, err)
		}
		summary.Consumed[src] += len(events)
		b.metrics.RecordsConsumed.WithLabelValues(src.String()).Add(float64(len(events)))

		for _, raw := range events {
			rec, keep, err := b.preparer.Prepare(ctx, src, raw)
			if err != nil {
				b.logger.Warn("parse failed, skipping message",
					"error", err,
					"source", src,
					"topic", raw.Topic,
					"partition", raw.Partition,
					"offset", raw.Offset,
				)
				summary.ParseErrors[src]++
				b.metrics.ParseErrors.WithLabelValues(src.String()).Inc()
				b.commitOffset(ctx, raw)
				continue
			}
			pending = append(pending, raw)
			if !keep {
				summary.Filtered[src]++
				b.metrics.RecordsFiltered.WithLabelValues(src.String()).Inc()
				continue
			}
			records = append(records, rec)
		}
	}
	return records, pending, nil
}

func (b *Builder) record(s Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = &s
}

// commitOffset commits the message offset if a commit function is available.
func (b *Builder) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		b.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
