package postgres

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

func TestEntityArgs(t *testing.T) {
	capacity := 15000.0
	builtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entity := domain.CanonicalEntity{
		ID:              "T-1",
		Name:            "Acme Fuel LLC",
		Address:         domain.Address{Street: "100 Main St", City: "Doylestown", State: "PA", County: "Bucks"},
		Coordinates:     &domain.Coordinates{Lat: 40.31, Lon: -75.13},
		StreetKey:       "100 main st",
		Zip5:            "18901",
		CapacityGallons: &capacity,
		Flags:           domain.Flags{DieselLike: true, Sector: domain.SectorFleet},
		Provenance: []domain.Provenance{
			{Source: domain.SourceTankRegistry, RawID: "T-1"},
			{Source: domain.SourceNAICS, RawID: "N-1"},
		},
		FieldSources: map[string]domain.Source{domain.FieldName: domain.SourceTankRegistry},
		CreatedAt:    builtAt,
	}

	args, err := entityArgs(domain.BuildInfo{ID: "b-1", BuiltAt: builtAt}, entity)
	require.NoError(t, err)

	require.Len(t, args, strings.Count(upsert, "$"))
	assert.Equal(t, "T-1", args[0])
	assert.Equal(t, sql.NullString{String: "18901", Valid: true}, args[5])
	assert.Equal(t, sql.NullFloat64{Float64: 40.31, Valid: true}, args[9])
	assert.Equal(t, sql.NullFloat64{Float64: 15000, Valid: true}, args[11])
	assert.Equal(t, sql.NullString{}, args[12], "empty product code stored as NULL")
	assert.Equal(t, true, args[18])
	assert.Equal(t, "tank_registry", args[20])
	assert.Equal(t, pq.StringArray{"tank_registry", "naics"}, args[21])
	assert.Equal(t, pq.StringArray{"T-1", "N-1"}, args[22])
	assert.Equal(t, "b-1", args[24])

	var fieldSources map[string]string
	require.NoError(t, json.Unmarshal(args[23].([]byte), &fieldSources))
	assert.Equal(t, "tank_registry", fieldSources["name"])
}

func TestEntityArgs_MissingOptionalFields(t *testing.T) {
	entity := domain.CanonicalEntity{
		ID:         "M-1",
		Name:       "Corner Garage",
		Provenance: []domain.Provenance{{Source: domain.SourceMapsExtract, RawID: "M-1"}},
	}

	args, err := entityArgs(domain.BuildInfo{ID: "b-2"}, entity)
	require.NoError(t, err)

	assert.Equal(t, sql.NullFloat64{}, args[9])
	assert.Equal(t, sql.NullFloat64{}, args[10])
	assert.Equal(t, sql.NullFloat64{}, args[11])
	assert.Nil(t, args[23])
}
