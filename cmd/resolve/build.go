package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/facility-lead-etl/internal/adapter/file"
	"github.com/couchcryptid/facility-lead-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/facility-lead-etl/internal/config"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/observability"
	"github.com/couchcryptid/facility-lead-etl/internal/pipeline"
	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

type buildOptions struct {
	tanks       string
	naics       string
	maps        string
	out         string
	rules       string
	counties    []string
	allCounties bool
	geocode     bool
	logLevel    string
}

func newBuildCmd() *cobra.Command {
	opts := buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run one build from NDJSON source files",
		Long: `Reads one NDJSON file per source, resolves the records into canonical
entities, writes them to --out as NDJSON, and prints the build summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tanks, "tanks", "", "tank registry NDJSON file")
	cmd.Flags().StringVar(&opts.naics, "naics", "", "NAICS listings NDJSON file")
	cmd.Flags().StringVar(&opts.maps, "maps", "", "map extract NDJSON file")
	cmd.Flags().StringVar(&opts.out, "out", "entities.ndjson", "output NDJSON file")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "YAML rules file overriding thresholds, precision, and priority")
	cmd.Flags().StringSliceVar(&opts.counties, "counties", config.DefaultCounties, "counties to keep")
	cmd.Flags().BoolVar(&opts.allCounties, "all-counties", false, "disable the county filter")
	cmd.Flags().BoolVar(&opts.geocode, "geocode", false, "forward geocode records without coordinates (needs MAPBOX_TOKEN)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	return cmd
}

func runBuild(cmd *cobra.Command, opts buildOptions) error {
	if opts.tanks == "" && opts.naics == "" && opts.maps == "" {
		return errors.New("at least one of --tanks, --naics, or --maps is required")
	}

	logger := observability.NewLogger(&config.Config{LogLevel: opts.logLevel, LogFormat: "text"})
	metrics := observability.NewMetrics()

	cfg := resolver.DefaultConfig()
	counties := opts.counties
	if opts.rules != "" {
		rules, err := config.LoadRules(opts.rules)
		if err != nil {
			return err
		}
		if cfg, err = rules.Apply(cfg); err != nil {
			return err
		}
		if len(rules.Counties) > 0 && !cmd.Flags().Changed("counties") {
			counties = rules.Counties
		}
	}
	if opts.allCounties {
		counties = nil
	}

	var geocoder domain.Geocoder
	if opts.geocode {
		token := os.Getenv("MAPBOX_TOKEN")
		if token == "" {
			return errors.New("--geocode needs MAPBOX_TOKEN")
		}
		cached, err := mapbox.NewCachedGeocoder(mapbox.NewClient(token, 5*time.Second, metrics, logger), 1000, metrics)
		if err != nil {
			return err
		}
		geocoder = cached
	}

	extractor := file.NewExtractor(map[domain.Source]string{
		domain.SourceTankRegistry: opts.tanks,
		domain.SourceNAICS:        opts.naics,
		domain.SourceMapsExtract:  opts.maps,
	})
	preparer := pipeline.NewPreparer(geocoder, counties, logger)
	loaders := []pipeline.EntityLoader{file.NewWriter(opts.out)}

	b := pipeline.New(extractor, preparer, loaders, cfg, time.Hour, logger, metrics)
	summary, err := b.Build(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}
