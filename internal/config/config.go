package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

// Sink names accepted in SINKS.
const (
	SinkKafka    = "kafka"
	SinkPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers      []string
	KafkaTankTopic    string
	KafkaNAICSTopic   string
	KafkaMapsTopic    string
	KafkaSinkTopic    string
	KafkaDrainTimeout time.Duration
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	ShutdownTimeout   time.Duration

	BatchSize     int
	BuildInterval time.Duration

	// Counties restricts ingestion to these counties; empty keeps everything.
	Counties []string

	Sinks       []string
	PostgresDSN string

	Resolver  resolver.Config
	RulesFile string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// SourceTopics maps each source to the topic it is read from.
func (c *Config) SourceTopics() map[domain.Source]string {
	return map[domain.Source]string{
		domain.SourceTankRegistry: c.KafkaTankTopic,
		domain.SourceNAICS:        c.KafkaNAICSTopic,
		domain.SourceMapsExtract:  c.KafkaMapsTopic,
	}
}

// SinkEnabled reports whether name appears in SINKS.
func (c *Config) SinkEnabled(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	drainTimeout, err := parsePositiveDuration("KAFKA_DRAIN_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	buildInterval, err := parsePositiveDuration("BUILD_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	resolverCfg, err := parseResolverConfig()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTankTopic:    sharedcfg.EnvOrDefault("KAFKA_TANK_TOPIC", "raw-tank-registry"),
		KafkaNAICSTopic:   sharedcfg.EnvOrDefault("KAFKA_NAICS_TOPIC", "raw-naics-listings"),
		KafkaMapsTopic:    sharedcfg.EnvOrDefault("KAFKA_MAPS_TOPIC", "raw-maps-extract"),
		KafkaSinkTopic:    sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "canonical-facilities"),
		KafkaDrainTimeout: drainTimeout,
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		BatchSize:         batchSize,
		BuildInterval:     buildInterval,
		Counties:          parseList(os.Getenv("BUILD_COUNTIES")),
		Sinks:             parseList(sharedcfg.EnvOrDefault("SINKS", SinkKafka)),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		Resolver:          resolverCfg,
		RulesFile:         os.Getenv("RESOLVER_RULES_FILE"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if cfg.Resolver, err = rules.Apply(cfg.Resolver); err != nil {
			return nil, fmt.Errorf("RESOLVER_RULES_FILE: %w", err)
		}
		if len(rules.Counties) > 0 && len(cfg.Counties) == 0 {
			cfg.Counties = rules.Counties
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	for src, topic := range c.SourceTopics() {
		if topic == "" {
			return fmt.Errorf("source topic for %s is required", src)
		}
	}
	if len(c.Sinks) == 0 {
		return errors.New("SINKS must name at least one sink")
	}
	for _, s := range c.Sinks {
		if s != SinkKafka && s != SinkPostgres {
			return fmt.Errorf("SINKS: unknown sink %q", s)
		}
	}
	if c.SinkEnabled(SinkKafka) && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.SinkEnabled(SinkPostgres) && c.PostgresDSN == "" {
		return errors.New("SINKS includes postgres but POSTGRES_DSN is not set")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if err := c.Resolver.Validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	return nil
}

func parseResolverConfig() (resolver.Config, error) {
	cfg := resolver.DefaultConfig()

	same, err := parseFloat("MATCH_SAME_SOURCE_THRESHOLD", cfg.SameSourceThreshold)
	if err != nil {
		return cfg, err
	}
	cross, err := parseFloat("MATCH_CROSS_SOURCE_THRESHOLD", cfg.CrossSourceThreshold)
	if err != nil {
		return cfg, err
	}
	cfg.SameSourceThreshold = same
	cfg.CrossSourceThreshold = cross

	if s := os.Getenv("GEOHASH_PRECISION"); s != "" {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return cfg, errors.New("invalid GEOHASH_PRECISION")
		}
		cfg.GeohashPrecision = uint(n)
	}
	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
