package resolver

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/geo"
)

// Config holds the matching thresholds and merge order for one build.
type Config struct {
	// GeohashPrecision is the bucket length used for candidate generation.
	GeohashPrecision uint `yaml:"geohash_precision"`

	// SameSourceThreshold applies when the record and the entity's first
	// record come from the same source, e.g. tank against tank.
	SameSourceThreshold float64 `yaml:"same_source_threshold"`

	// CrossSourceThreshold applies to every other pairing, e.g. a NAICS
	// listing against a tank-registry entity.
	CrossSourceThreshold float64 `yaml:"cross_source_threshold"`

	// Priority lists sources from first processed (highest merge priority)
	// to last. Every known source must appear exactly once.
	Priority []domain.Source `yaml:"priority"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		GeohashPrecision:     geo.DefaultPrecision,
		SameSourceThreshold:  90,
		CrossSourceThreshold: 88,
		Priority:             domain.Sources(),
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.GeohashPrecision < 1 || c.GeohashPrecision > 12 {
		return fmt.Errorf("geohash precision must be between 1 and 12, got %d", c.GeohashPrecision)
	}
	if c.SameSourceThreshold <= 0 || c.SameSourceThreshold > 100 {
		return fmt.Errorf("same-source threshold must be in (0, 100], got %v", c.SameSourceThreshold)
	}
	if c.CrossSourceThreshold <= 0 || c.CrossSourceThreshold > 100 {
		return fmt.Errorf("cross-source threshold must be in (0, 100], got %v", c.CrossSourceThreshold)
	}
	if len(c.Priority) != len(domain.Sources()) {
		return errors.New("priority must list every source exactly once")
	}
	seen := make(map[domain.Source]bool, len(c.Priority))
	for _, s := range c.Priority {
		if !s.Valid() {
			return fmt.Errorf("priority: unknown source %d", int(s))
		}
		if seen[s] {
			return fmt.Errorf("priority: %s listed twice", s)
		}
		seen[s] = true
	}
	return nil
}

func (c Config) rank(s domain.Source) int {
	for i, p := range c.Priority {
		if p == s {
			return i
		}
	}
	return len(c.Priority)
}

// outranks reports whether a beats b under the configured priority.
func (c Config) outranks(a, b domain.Source) bool {
	return c.rank(a) < c.rank(b)
}

func (c Config) threshold(incoming, primary domain.Source) float64 {
	if incoming == primary {
		return c.SameSourceThreshold
	}
	return c.CrossSourceThreshold
}
