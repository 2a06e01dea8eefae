package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/couchcryptid/facility-lead-etl/internal/config"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS canonical_facilities (
	id                text PRIMARY KEY,
	name              text NOT NULL,
	street            text,
	city              text,
	state             text,
	zip5              text,
	county            text,
	street_key        text,
	geo_bucket        text,
	lat               double precision,
	lon               double precision,
	capacity_gallons  double precision,
	product_code      text,
	status_code       text,
	naics_code        text,
	naics_title       text,
	maps_category     text,
	sector            text,
	diesel_like       boolean NOT NULL DEFAULT false,
	active_like       boolean NOT NULL DEFAULT false,
	primary_source    text NOT NULL,
	sources           text[] NOT NULL,
	raw_ids           text[] NOT NULL,
	field_sources     jsonb,
	build_id          text NOT NULL,
	built_at          timestamptz NOT NULL,
	created_at        timestamptz NOT NULL
)`

const upsert = `
INSERT INTO canonical_facilities (
	id, name, street, city, state, zip5, county, street_key, geo_bucket, lat, lon,
	capacity_gallons, product_code, status_code, naics_code, naics_title, maps_category,
	sector, diesel_like, active_like, primary_source, sources, raw_ids, field_sources,
	build_id, built_at, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	$12, $13, $14, $15, $16, $17,
	$18, $19, $20, $21, $22, $23, $24,
	$25, $26, $27
)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	street = EXCLUDED.street,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	zip5 = EXCLUDED.zip5,
	county = EXCLUDED.county,
	street_key = EXCLUDED.street_key,
	geo_bucket = EXCLUDED.geo_bucket,
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	capacity_gallons = EXCLUDED.capacity_gallons,
	product_code = EXCLUDED.product_code,
	status_code = EXCLUDED.status_code,
	naics_code = EXCLUDED.naics_code,
	naics_title = EXCLUDED.naics_title,
	maps_category = EXCLUDED.maps_category,
	sector = EXCLUDED.sector,
	diesel_like = EXCLUDED.diesel_like,
	active_like = EXCLUDED.active_like,
	primary_source = EXCLUDED.primary_source,
	sources = EXCLUDED.sources,
	raw_ids = EXCLUDED.raw_ids,
	field_sources = EXCLUDED.field_sources,
	build_id = EXCLUDED.build_id,
	built_at = EXCLUDED.built_at`

// Store upserts canonical entities into Postgres.
// It implements pipeline.EntityLoader.
type Store struct {
	db        *sql.DB
	batchSize int
	logger    *slog.Logger
}

// Open connects to Postgres, verifies the connection, and creates the
// canonical_facilities table if it does not exist.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, batchSize: cfg.BatchSize, logger: logger}, nil
}

func (s *Store) Name() string { return config.SinkPostgres }

// LoadEntities upserts entities, committing one transaction per batch.
func (s *Store) LoadEntities(ctx context.Context, build domain.BuildInfo, entities []domain.CanonicalEntity) error {
	for start := 0; start < len(entities); start += s.batchSize {
		end := min(start+s.batchSize, len(entities))
		if err := s.upsertBatch(ctx, build, entities[start:end]); err != nil {
			return fmt.Errorf("upsert entities %d-%d: %w", start, end, err)
		}
	}
	s.logger.Debug("entities upserted", "build_id", build.ID, "entities", len(entities))
	return nil
}

func (s *Store) upsertBatch(ctx context.Context, build domain.BuildInfo, batch []domain.CanonicalEntity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range batch {
		args, err := entityArgs(build, batch[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("entity %s: %w", batch[i].ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// entityArgs maps an entity onto the upsert's positional parameters.
func entityArgs(build domain.BuildInfo, e domain.CanonicalEntity) ([]any, error) {
	sources := make(pq.StringArray, len(e.Provenance))
	rawIDs := make(pq.StringArray, len(e.Provenance))
	for i, p := range e.Provenance {
		sources[i] = p.Source.String()
		rawIDs[i] = p.RawID
	}

	var fieldSources []byte
	if len(e.FieldSources) > 0 {
		var err error
		if fieldSources, err = json.Marshal(e.FieldSources); err != nil {
			return nil, fmt.Errorf("encode field sources for %s: %w", e.ID, err)
		}
	}

	var lat, lon sql.NullFloat64
	if e.Coordinates != nil {
		lat = sql.NullFloat64{Float64: e.Coordinates.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: e.Coordinates.Lon, Valid: true}
	}
	var capacity sql.NullFloat64
	if e.CapacityGallons != nil {
		capacity = sql.NullFloat64{Float64: *e.CapacityGallons, Valid: true}
	}

	return []any{
		e.ID,
		e.Name,
		nullString(e.Address.Street),
		nullString(e.Address.City),
		nullString(e.Address.State),
		nullString(e.Zip5),
		nullString(e.Address.County),
		nullString(e.StreetKey),
		nullString(e.GeoBucket),
		lat,
		lon,
		capacity,
		nullString(e.ProductCode),
		nullString(e.StatusCode),
		nullString(e.NAICSCode),
		nullString(e.NAICSTitle),
		nullString(e.MapsCategory),
		nullString(string(e.Flags.Sector)),
		e.Flags.DieselLike,
		e.Flags.ActiveLike,
		e.PrimarySource().String(),
		sources,
		rawIDs,
		fieldSources,
		build.ID,
		build.BuiltAt,
		e.CreatedAt,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
