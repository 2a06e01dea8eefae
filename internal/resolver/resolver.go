// Package resolver merges facility records from several sources into
// canonical entities.
//
// Records are matched in stages: an identical street key and zip, then the
// same source natural key, then fuzzy name similarity among entities in the
// record's geohash cell and its eight neighbours. Unmatched records start a
// new entity. The index is in-memory and private to one Resolver, so a
// rebuild starts from a fresh Resolver.
package resolver

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-lead-etl/internal/address"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/fuzzy"
	"github.com/couchcryptid/facility-lead-etl/internal/geo"
)

// MatchReason names the stage that decided a record's entity.
type MatchReason string

const (
	ReasonDegenerate   MatchReason = "degenerate"
	ReasonExactAddress MatchReason = "exact_address"
	ReasonSourceKey    MatchReason = "source_key"
	ReasonGeoName      MatchReason = "geo_name"
	ReasonNew          MatchReason = "new"
)

// Reasons lists every MatchReason, for metrics and reports.
func Reasons() []MatchReason {
	return []MatchReason{ReasonExactAddress, ReasonSourceKey, ReasonGeoName, ReasonNew, ReasonDegenerate}
}

// Match is the outcome of resolving one record.
type Match struct {
	// EntityID is the matched entity, or after Add the entity that was
	// created. Empty when Resolve found nothing.
	EntityID string
	// Matched is true when the record resolved to an existing entity.
	Matched        bool
	Reason         MatchReason
	Score          float64
	DistanceMeters float64
}

// NameScorer scores two raw names in [0, 100].
type NameScorer func(a, b string) float64

// Option configures a Resolver.
type Option func(*Resolver)

// WithNameScorer replaces the default fuzzy.Similarity scorer.
func WithNameScorer(s NameScorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithClock sets the time source for entity CreatedAt stamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *Resolver) {
		if c != nil {
			r.clock = c
		}
	}
}

// Stats counts what a Resolver has seen.
type Stats struct {
	Records  map[domain.Source]int `json:"records"`
	Matches  map[MatchReason]int   `json:"matches"`
	Entities int                   `json:"entities"`
}

type sourceKey struct {
	source domain.Source
	rawID  string
}

type entry struct {
	entity  domain.CanonicalEntity
	seq     int
	names   []string
	buckets map[geo.Bucket]struct{}
}

// prepared holds the keys derived once per record.
type prepared struct {
	norm      address.NormalizedAddress
	bucket    geo.Bucket
	hasBucket bool
}

// Resolver holds the canonical entity set for one build. It is not safe for
// concurrent use.
type Resolver struct {
	cfg    Config
	scorer NameScorer
	clock  clockwork.Clock

	entries     []*entry
	byID        map[string]*entry
	byExactKey  map[string]*entry
	bySourceKey map[sourceKey]*entry
	byBucket    map[geo.Bucket][]*entry

	stats Stats
}

// New validates cfg and returns an empty Resolver.
func New(cfg Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolver config: %w", err)
	}
	r := &Resolver{
		cfg:         cfg,
		scorer:      fuzzy.Similarity,
		clock:       clockwork.NewRealClock(),
		byID:        make(map[string]*entry),
		byExactKey:  make(map[string]*entry),
		bySourceKey: make(map[sourceKey]*entry),
		byBucket:    make(map[geo.Bucket][]*entry),
		stats: Stats{
			Records: make(map[domain.Source]int),
			Matches: make(map[MatchReason]int),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Build resolves records in source-priority order and returns the
// resulting entities in creation order. Records from the same source keep
// their input order.
func Build(cfg Config, records []domain.RawRecord, opts ...Option) ([]domain.CanonicalEntity, Stats, error) {
	r, err := New(cfg, opts...)
	if err != nil {
		return nil, Stats{}, err
	}
	sorted := make([]domain.RawRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cfg.rank(sorted[i].Source) < cfg.rank(sorted[j].Source)
	})
	for _, rec := range sorted {
		r.Add(rec)
	}
	return r.Entities(), r.Stats(), nil
}

// Resolve finds the entity rec belongs to without changing any state.
func (r *Resolver) Resolve(rec domain.RawRecord) Match {
	return r.resolve(rec, r.prepare(rec))
}

// Add resolves rec, then merges it into the matched entity or creates a new
// one. The returned Match always carries the entity's id.
func (r *Resolver) Add(rec domain.RawRecord) Match {
	p := r.prepare(rec)
	m := r.resolve(rec, p)

	var e *entry
	if m.Matched {
		e = r.byID[m.EntityID]
		r.merge(e, rec, p)
	} else {
		e = r.create(rec, p)
		m.EntityID = e.entity.ID
	}
	if m.Reason != ReasonDegenerate {
		r.index(e, rec, p)
	}

	r.stats.Records[rec.Source]++
	r.stats.Matches[m.Reason]++
	return m
}

// Entities returns copies of every entity in creation order.
func (r *Resolver) Entities() []domain.CanonicalEntity {
	out := make([]domain.CanonicalEntity, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.entity.Clone()
	}
	return out
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() Stats {
	s := Stats{
		Records:  make(map[domain.Source]int, len(r.stats.Records)),
		Matches:  make(map[MatchReason]int, len(r.stats.Matches)),
		Entities: len(r.entries),
	}
	for k, v := range r.stats.Records {
		s.Records[k] = v
	}
	for k, v := range r.stats.Matches {
		s.Matches[k] = v
	}
	return s
}

func (r *Resolver) prepare(rec domain.RawRecord) prepared {
	p := prepared{
		norm: address.Normalize(address.Fields{
			Street: rec.Address.Street,
			City:   rec.Address.City,
			State:  rec.Address.State,
			Zip:    rec.Address.Zip,
		}),
	}
	p.bucket, p.hasBucket = geo.BucketOf(rec.Coordinates, r.cfg.GeohashPrecision)
	return p
}

func (r *Resolver) resolve(rec domain.RawRecord, p prepared) Match {
	if isDegenerate(rec, p) {
		return Match{Reason: ReasonDegenerate}
	}

	if key := p.norm.ExactKey(); key != "" {
		if e, ok := r.byExactKey[key]; ok {
			return Match{EntityID: e.entity.ID, Matched: true, Reason: ReasonExactAddress, Score: 100}
		}
	}

	if rec.RawID != "" && !rec.SyntheticID {
		if e, ok := r.bySourceKey[sourceKey{rec.Source, rec.RawID}]; ok {
			return Match{EntityID: e.entity.ID, Matched: true, Reason: ReasonSourceKey, Score: 100}
		}
	}

	if p.hasBucket && strings.TrimSpace(rec.Name) != "" {
		if c, ok := r.bestGeoCandidate(rec, p.bucket); ok {
			return Match{
				EntityID:       c.entry.entity.ID,
				Matched:        true,
				Reason:         ReasonGeoName,
				Score:          c.score,
				DistanceMeters: c.distance,
			}
		}
	}

	return Match{Reason: ReasonNew}
}

type candidate struct {
	entry    *entry
	score    float64
	distance float64
}

// beats orders candidates by score, then distance, then creation order.
func (c candidate) beats(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	return c.entry.seq < o.entry.seq
}

func (r *Resolver) bestGeoCandidate(rec domain.RawRecord, b geo.Bucket) (candidate, bool) {
	var (
		best  candidate
		found bool
		seen  = make(map[*entry]struct{})
	)
	for _, cell := range geo.Neighbourhood(b) {
		for _, e := range r.byBucket[cell] {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}

			score := e.bestScore(r.scorer, rec.Name)
			if score < r.cfg.threshold(rec.Source, e.entity.PrimarySource()) {
				continue
			}
			c := candidate{entry: e, score: score, distance: math.Inf(1)}
			if e.entity.Coordinates != nil {
				c.distance = geo.Distance(*rec.Coordinates, *e.entity.Coordinates)
			}
			if !found || c.beats(best) {
				best, found = c, true
			}
		}
	}
	return best, found
}

func (e *entry) bestScore(scorer NameScorer, name string) float64 {
	best := 0.0
	for _, n := range e.names {
		if s := scorer(name, n); s > best {
			best = s
		}
	}
	return best
}

func (e *entry) addName(name string) {
	for _, n := range e.names {
		if n == name {
			return
		}
	}
	e.names = append(e.names, name)
}

func (r *Resolver) create(rec domain.RawRecord, p prepared) *entry {
	e := &entry{
		entity: domain.CanonicalEntity{
			ID:           r.uniqueID(rec),
			FieldSources: make(map[string]domain.Source),
			CreatedAt:    r.clock.Now().UTC(),
		},
		seq:     len(r.entries),
		buckets: make(map[geo.Bucket]struct{}),
	}
	r.merge(e, rec, p)
	r.entries = append(r.entries, e)
	r.byID[e.entity.ID] = e
	return e
}

// uniqueID picks the record's natural key, suffixing it when an earlier
// entity already holds it.
func (r *Resolver) uniqueID(rec domain.RawRecord) string {
	base := strings.TrimSpace(rec.RawID)
	if base == "" {
		base = domain.CompositeID(rec.Name, rec.Address.Street)
	}
	if _, taken := r.byID[base]; !taken {
		return base
	}
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s#%d", base, n)
		if _, taken := r.byID[id]; !taken {
			return id
		}
	}
}

// index registers every key rec contributes. Existing registrations win, so
// a key always points at the first entity that claimed it.
func (r *Resolver) index(e *entry, rec domain.RawRecord, p prepared) {
	if key := p.norm.ExactKey(); key != "" {
		if _, ok := r.byExactKey[key]; !ok {
			r.byExactKey[key] = e
		}
	}
	if rec.RawID != "" && !rec.SyntheticID {
		sk := sourceKey{rec.Source, rec.RawID}
		if _, ok := r.bySourceKey[sk]; !ok {
			r.bySourceKey[sk] = e
		}
	}
	if p.hasBucket {
		if _, ok := e.buckets[p.bucket]; !ok {
			e.buckets[p.bucket] = struct{}{}
			r.byBucket[p.bucket] = append(r.byBucket[p.bucket], e)
		}
	}
}

func isDegenerate(rec domain.RawRecord, p prepared) bool {
	return strings.TrimSpace(rec.Name) == "" && p.norm.Empty() && !p.hasBucket
}
