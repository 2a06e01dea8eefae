// Package geo buckets coordinates into geohash cells and measures distances
// between them.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

// DefaultPrecision gives cells of roughly 150m x 150m.
const DefaultPrecision uint = 7

// earthRadiusMeters is the mean Earth radius used by Distance.
const earthRadiusMeters = 6371000.0

// Bucket is a base-32 geohash cell.
type Bucket string

// Valid reports whether lat/lon can be encoded.
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// BucketAt encodes lat/lon at the given precision. It returns false for
// out-of-range or NaN coordinates.
func BucketAt(lat, lon float64, precision uint) (Bucket, bool) {
	if !Valid(lat, lon) || precision == 0 {
		return "", false
	}
	return Bucket(geohash.EncodeWithPrecision(lat, lon, precision)), true
}

// BucketOf encodes optional coordinates; nil means no bucket.
func BucketOf(c *domain.Coordinates, precision uint) (Bucket, bool) {
	if c == nil {
		return "", false
	}
	return BucketAt(c.Lat, c.Lon, precision)
}

// Neighbourhood returns b followed by its eight surrounding cells, with
// duplicates removed (cells near the poles can repeat).
func Neighbourhood(b Bucket) []Bucket {
	if b == "" {
		return nil
	}
	out := make([]Bucket, 0, 9)
	seen := make(map[Bucket]struct{}, 9)
	add := func(h Bucket) {
		if _, dup := seen[h]; dup {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}

	add(b)
	for _, n := range geohash.Neighbors(string(b)) {
		add(Bucket(n))
	}
	return out
}

// Distance returns the haversine distance between two points in metres.
func Distance(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
