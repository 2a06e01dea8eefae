package resolver

import (
	"strings"

	"github.com/couchcryptid/facility-lead-etl/internal/address"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

// merge folds rec into e. A field group is replaced only by a source that
// outranks the one that set it; empty groups are backfilled by any source.
// Flags only ever accumulate and provenance always grows by one.
func (r *Resolver) merge(e *entry, rec domain.RawRecord, p prepared) {
	ent := &e.entity
	src := rec.Source

	if name := strings.TrimSpace(rec.Name); name != "" {
		if r.claim(ent, domain.FieldName, ent.Name == "", src) {
			ent.Name = name
		}
		e.addName(name)
	}

	if !p.norm.Empty() {
		if r.claim(ent, domain.FieldAddress, ent.StreetKey == "", src) {
			prev := ent.Address
			ent.Address = rec.Address
			ent.Address.County = prev.County
			backfillLocality(&ent.Address, prev)
			ent.StreetKey = p.norm.StreetKey
			ent.Zip5 = p.norm.Zip5
		}
	}
	backfillLocality(&ent.Address, rec.Address)
	if ent.Zip5 == "" && ent.Address.Zip != "" {
		ent.Zip5 = address.Zip5(ent.Address.Zip)
	}

	if county := strings.TrimSpace(rec.Address.County); county != "" {
		if r.claim(ent, domain.FieldCounty, ent.Address.County == "", src) {
			ent.Address.County = county
		}
	}

	if p.hasBucket {
		if r.claim(ent, domain.FieldCoordinates, ent.Coordinates == nil, src) {
			c := *rec.Coordinates
			ent.Coordinates = &c
			ent.GeoBucket = string(p.bucket)
		}
	}

	r.mergeCapacity(ent, rec)

	attrs := rec.Attributes
	if attrs.ProductCode != "" || attrs.StatusCode != "" {
		if r.claim(ent, domain.FieldTankStatus, ent.ProductCode == "" && ent.StatusCode == "", src) {
			ent.ProductCode = attrs.ProductCode
			ent.StatusCode = attrs.StatusCode
		}
	}

	if attrs.NAICSCode != "" || attrs.NAICSTitle != "" {
		if r.claim(ent, domain.FieldNAICS, ent.NAICSCode == "" && ent.NAICSTitle == "", src) {
			ent.NAICSCode = attrs.NAICSCode
			ent.NAICSTitle = attrs.NAICSTitle
		}
	}

	if attrs.MapsCategory != "" {
		if r.claim(ent, domain.FieldMapsCategory, ent.MapsCategory == "", src) {
			ent.MapsCategory = attrs.MapsCategory
		}
	}

	mergeFlags(&ent.Flags, rec.Flags)
	if ent.CapacityGallons != nil {
		ent.Flags.CapacityBucket = domain.CapacityBucket(ent.CapacityGallons)
	}

	ent.Provenance = append(ent.Provenance, domain.Provenance{Source: src, RawID: rec.RawID})
}

// claim decides whether src may write a field group and records it as the
// group's owner when it may.
func (r *Resolver) claim(ent *domain.CanonicalEntity, field string, empty bool, src domain.Source) bool {
	owner, owned := ent.FieldSources[field]
	if empty || !owned || r.cfg.outranks(src, owner) {
		ent.FieldSources[field] = src
		return true
	}
	return false
}

// mergeCapacity follows the usual ownership rule, except that records from
// the owning source raise the figure to the largest tank seen.
func (r *Resolver) mergeCapacity(ent *domain.CanonicalEntity, rec domain.RawRecord) {
	in := rec.Attributes.CapacityGallons
	if in == nil {
		return
	}
	owner, owned := ent.FieldSources[domain.FieldCapacity]
	switch {
	case ent.CapacityGallons == nil, !owned, r.cfg.outranks(rec.Source, owner):
	case owner == rec.Source && *in > *ent.CapacityGallons:
	default:
		return
	}
	v := *in
	ent.CapacityGallons = &v
	ent.FieldSources[domain.FieldCapacity] = rec.Source
}

// backfillLocality fills blank city, state and zip in dst from src. The
// street itself only moves with the address group.
func backfillLocality(dst *domain.Address, src domain.Address) {
	if dst.City == "" {
		dst.City = strings.TrimSpace(src.City)
	}
	if dst.State == "" {
		dst.State = strings.TrimSpace(src.State)
	}
	if dst.Zip == "" {
		dst.Zip = strings.TrimSpace(src.Zip)
	}
}

func mergeFlags(dst *domain.Flags, in domain.Flags) {
	dst.DieselLike = dst.DieselLike || in.DieselLike
	dst.ActiveLike = dst.ActiveLike || in.ActiveLike
	if dst.CapacityBucket == "" {
		dst.CapacityBucket = in.CapacityBucket
	}
	if in.Sector != "" && sectorBeats(in, *dst) {
		dst.Sector = in.Sector
		dst.SectorConfidence = in.SectorConfidence
		dst.SectorNotes = in.SectorNotes
	}
}

// sectorBeats prefers higher confidence, then the sector preference order.
func sectorBeats(in, cur domain.Flags) bool {
	if cur.Sector == "" {
		return true
	}
	if in.SectorConfidence != cur.SectorConfidence {
		return in.SectorConfidence > cur.SectorConfidence
	}
	return in.Sector.PreferenceRank() < cur.Sector.PreferenceRank()
}
