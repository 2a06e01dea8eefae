package domain

import (
	"context"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from a source topic or file.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Address holds the postal fields exactly as a source supplied them.
type Address struct {
	Street  string `json:"street,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	County  string `json:"county,omitempty"`
}

// Empty reports whether the address has no street line.
func (a Address) Empty() bool {
	return strings.TrimSpace(a.Street) == ""
}

// Query renders the address as a single-line geocoding query.
func (a Address) Query() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, strings.TrimSpace(a.State + " " + a.Zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Attributes carries the source-specific fields the resolver merges but never
// matches on.
type Attributes struct {
	ProductCode     string   `json:"product_code,omitempty"`
	CapacityGallons *float64 `json:"capacity_gallons,omitempty"`
	StatusCode      string   `json:"status_code,omitempty"`
	NAICSCode       string   `json:"naics_code,omitempty"`
	NAICSTitle      string   `json:"naics_title,omitempty"`
	MapsCategory    string   `json:"maps_category,omitempty"`
	SourceFile      string   `json:"source_file,omitempty"`
}

// Flags are the classification results derived from a record's attributes.
type Flags struct {
	DieselLike       bool   `json:"diesel_like"`
	ActiveLike       bool   `json:"active_like"`
	CapacityBucket   string `json:"capacity_bucket,omitempty"`
	Sector           Sector `json:"sector,omitempty"`
	SectorConfidence int    `json:"sector_confidence"`
	SectorNotes      string `json:"sector_notes,omitempty"`
}

// RawRecord is one row from one source after conversion at the ingestion
// boundary. It is treated as immutable and passed by value.
type RawRecord struct {
	Source      Source       `json:"source"`
	RawID       string       `json:"raw_id"`
	SyntheticID bool         `json:"synthetic_id,omitempty"` // RawID came from CompositeID
	Name        string       `json:"name,omitempty"`
	Address     Address      `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Attributes  Attributes   `json:"attributes"`
	Flags       Flags        `json:"flags"`
	GeoSource   string       `json:"geo_source,omitempty"` // "original", "forward", "failed"
	IngestedAt  time.Time    `json:"ingested_at"`
}

// Provenance identifies one contributing source record.
type Provenance struct {
	Source Source `json:"source"`
	RawID  string `json:"raw_id"`
}

// Field groups tracked in CanonicalEntity.FieldSources.
const (
	FieldName         = "name"
	FieldAddress      = "address"
	FieldCounty       = "county"
	FieldCoordinates  = "coordinates"
	FieldCapacity     = "capacity"
	FieldTankStatus   = "tank_status"
	FieldNAICS        = "naics"
	FieldMapsCategory = "maps_category"
)

// CanonicalEntity is the merged view of one physical facility.
type CanonicalEntity struct {
	ID              string            `json:"id"`
	Name            string            `json:"name,omitempty"`
	Address         Address           `json:"address"`
	Coordinates     *Coordinates      `json:"coordinates,omitempty"`
	StreetKey       string            `json:"street_key,omitempty"`
	Zip5            string            `json:"zip5,omitempty"`
	GeoBucket       string            `json:"geo_bucket,omitempty"`
	CapacityGallons *float64          `json:"capacity_gallons,omitempty"`
	ProductCode     string            `json:"product_code,omitempty"`
	StatusCode      string            `json:"status_code,omitempty"`
	NAICSCode       string            `json:"naics_code,omitempty"`
	NAICSTitle      string            `json:"naics_title,omitempty"`
	MapsCategory    string            `json:"maps_category,omitempty"`
	Flags           Flags             `json:"flags"`
	Provenance      []Provenance      `json:"provenance"`
	FieldSources    map[string]Source `json:"field_sources,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// PrimarySource is the source of the record that created the entity.
func (e CanonicalEntity) PrimarySource() Source {
	if len(e.Provenance) == 0 {
		return SourceMapsExtract
	}
	return e.Provenance[0].Source
}

// HasSource reports whether any contributing record came from s.
func (e CanonicalEntity) HasSource(s Source) bool {
	for _, p := range e.Provenance {
		if p.Source == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate resolver state.
func (e CanonicalEntity) Clone() CanonicalEntity {
	out := e
	if e.Coordinates != nil {
		c := *e.Coordinates
		out.Coordinates = &c
	}
	if e.CapacityGallons != nil {
		v := *e.CapacityGallons
		out.CapacityGallons = &v
	}
	out.Provenance = append([]Provenance(nil), e.Provenance...)
	if e.FieldSources != nil {
		out.FieldSources = make(map[string]Source, len(e.FieldSources))
		for k, v := range e.FieldSources {
			out.FieldSources[k] = v
		}
	}
	return out
}

// BuildInfo identifies the build that produced a batch of entities.
type BuildInfo struct {
	ID      string
	BuiltAt time.Time
}
