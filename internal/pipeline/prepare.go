package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

// RecordPreparer turns a raw source message into a resolver-ready record.
// keep is false when the record is filtered out.
type RecordPreparer interface {
	Prepare(ctx context.Context, src domain.Source, raw domain.RawEvent) (rec domain.RawRecord, keep bool, err error)
}

// Preparer parses, classifies, filters by county and optionally geocodes.
type Preparer struct {
	geocoder domain.Geocoder
	counties map[string]struct{}
	logger   *slog.Logger
}

// NewPreparer creates a Preparer. An empty counties list keeps every record;
// a nil geocoder disables geocoding enrichment.
func NewPreparer(geocoder domain.Geocoder, counties []string, logger *slog.Logger) *Preparer {
	set := make(map[string]struct{}, len(counties))
	for _, c := range counties {
		if k := countyKey(c); k != "" {
			set[k] = struct{}{}
		}
	}
	return &Preparer{
		geocoder: geocoder,
		counties: set,
		logger:   logger,
	}
}

func (p *Preparer) Prepare(ctx context.Context, src domain.Source, raw domain.RawEvent) (domain.RawRecord, bool, error) {
	rec, err := domain.ParseSourceRecord(src, raw.Value)
	if err != nil {
		return domain.RawRecord{}, false, err
	}

	rec = domain.Classify(rec)
	if !p.inServiceArea(rec.Address.County) {
		return rec, false, nil
	}
	rec = domain.EnrichWithGeocoding(ctx, rec, p.geocoder, p.logger)

	return rec, true, nil
}

// inServiceArea reports whether county passes the filter. Records that carry
// no county are kept.
func (p *Preparer) inServiceArea(county string) bool {
	if len(p.counties) == 0 {
		return true
	}
	k := countyKey(county)
	if k == "" {
		return true
	}
	_, ok := p.counties[k]
	return ok
}

// countyKey folds "Bucks County", "BUCKS" and " bucks " to "bucks".
func countyKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, " county")
	return strings.TrimSpace(s)
}
