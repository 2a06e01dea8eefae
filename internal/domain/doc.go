// Package domain models facility records from the three lead sources and the
// canonical entities they resolve into.
//
// # Sources
//
// Records arrive as flat JSON rows, one topic (or file) per source:
//
//	tank_registry  PA DEP storage-tank registry, one row per tank
//	naics          local NAICS business listing export
//	maps_extract   scraped map listings
//
// The Source enum doubles as the merge priority. A field set by the tank
// registry is never replaced by a NAICS or maps value; lower-priority
// sources only backfill what is missing.
//
// Each source has its own record type ([TankRecord], [NaicsRecord],
// [MapsRecord]) carrying the native column names. [ParseSourceRecord] is the
// only place those names are read; everything downstream sees [RawRecord].
//
// # Tank registry conventions
//
// Substance codes DIESL, BIDSL, HO and KERO are diesel-range. Status code C
// means the tank is currently in use. Capacity is free text in gallons, for
// example "15,000" or "550 GAL", and is cleaned by [CleanCapacity].
// PF_NAME can be blank, in which case MAILING_NAME stands in.
//
// # Maps extract conventions
//
// OrganizationAddress is a single line, usually prefixed "Address:", in the
// form "<street>, <city>, <ST> <zip>". See [ParseOrganizationAddress].
//
// # Identifiers
//
// An entity takes the natural key of the first record that created it
// (PF_SITE_ID for tanks, the ID column for the other sources). When a row
// has none, [CompositeID] builds "<NAME>_<STREET>" with UNKNOWN standing in
// for blanks, so rebuilding from the same input yields the same ids.
package domain
