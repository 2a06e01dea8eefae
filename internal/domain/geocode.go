package domain

import (
	"context"
	"log/slog"
)

// Geocode outcomes recorded in RawRecord.GeoSource.
const (
	GeoSourceOriginal = "original"
	GeoSourceForward  = "forward"
	GeoSourceFailed   = "failed"
)

// minGeocodeConfidence drops provider answers that only matched the city or
// postcode centroid.
const minGeocodeConfidence = 0.5

// EnrichWithGeocoding fills missing coordinates from the record's address.
// A nil geocoder, a provider error or a low-confidence answer leaves the
// record matchable by address key only.
func EnrichWithGeocoding(ctx context.Context, rec RawRecord, geocoder Geocoder, logger *slog.Logger) RawRecord {
	if rec.Coordinates != nil {
		rec.GeoSource = GeoSourceOriginal
		return rec
	}
	if geocoder == nil || rec.Address.Empty() {
		return rec
	}

	query := rec.Address.Query()
	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"source", rec.Source,
			"raw_id", rec.RawID,
			"query", query,
			"error", err,
		)
		rec.GeoSource = GeoSourceFailed
		return rec
	}
	if !result.Found() || result.Confidence < minGeocodeConfidence {
		logger.Debug("geocoder returned no usable match",
			"raw_id", rec.RawID,
			"query", query,
			"confidence", result.Confidence,
		)
		rec.GeoSource = GeoSourceFailed
		return rec
	}

	rec.Coordinates = &Coordinates{Lat: result.Lat, Lon: result.Lon}
	rec.GeoSource = GeoSourceForward
	return rec
}
