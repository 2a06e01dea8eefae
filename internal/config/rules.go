package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

// DefaultCounties is the southeastern Pennsylvania service area.
var DefaultCounties = []string{"Bucks", "Montgomery", "Philadelphia", "Chester", "Delaware"}

// Rules is a YAML overlay for matching settings. Unset fields keep the
// values they are applied to.
//
//	geohash_precision: 7
//	same_source_threshold: 90
//	cross_source_threshold: 88
//	priority: [tank_registry, naics, maps_extract]
//	counties: [Bucks, Montgomery]
type Rules struct {
	GeohashPrecision     *uint    `yaml:"geohash_precision"`
	SameSourceThreshold  *float64 `yaml:"same_source_threshold"`
	CrossSourceThreshold *float64 `yaml:"cross_source_threshold"`
	Priority             []string `yaml:"priority"`
	Counties             []string `yaml:"counties"`
}

// LoadRules reads and decodes a rules file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	return r, nil
}

// Apply overlays the rules onto cfg and validates the result.
func (r Rules) Apply(cfg resolver.Config) (resolver.Config, error) {
	if r.GeohashPrecision != nil {
		cfg.GeohashPrecision = *r.GeohashPrecision
	}
	if r.SameSourceThreshold != nil {
		cfg.SameSourceThreshold = *r.SameSourceThreshold
	}
	if r.CrossSourceThreshold != nil {
		cfg.CrossSourceThreshold = *r.CrossSourceThreshold
	}
	if len(r.Priority) > 0 {
		priority := make([]domain.Source, 0, len(r.Priority))
		for _, tag := range r.Priority {
			s, err := domain.ParseSource(tag)
			if err != nil {
				return cfg, fmt.Errorf("priority: %w", err)
			}
			priority = append(priority, s)
		}
		cfg.Priority = priority
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
