package config

import (
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Overrides mirrors the spec §6 "shared-override JSON flags" surface the
// crawl CLI and the daemon both accept: concurrency, maxDownloads,
// maxDepth, outputVerbosity, dbPath, dataDir, plannerVerbosity.
type Overrides struct {
	Concurrency      int
	MaxDownloads     int
	MaxDepth         int
	OutputVerbosity  int
	DBPath           string
	DataDir          string
	PlannerVerbosity int
}

// Load merges a config file (path used as given), NEWSCRAWL_*-prefixed
// environment variables, and explicit CLI overrides, in that precedence
// order (CLI wins), per SPEC_FULL's AMBIENT STACK configuration section.
// configFile may be empty, in which case only env vars and overrides
// apply on top of the built-in defaults.
func Load(seedURLs []url.URL, configFile string, overrides Overrides) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := WithDefault(seedURLs)

	if v.IsSet("concurrency") {
		cfg.WithConcurrency(v.GetInt("concurrency"))
	}
	if v.IsSet("maxdepth") {
		cfg.WithMaxDepth(v.GetInt("maxdepth"))
	}
	if v.IsSet("maxdownloads") {
		cfg.WithMaxPages(v.GetInt("maxdownloads"))
	}
	if v.IsSet("dbpath") {
		cfg.WithDBPath(v.GetString("dbpath"))
	}
	if v.IsSet("datadir") {
		cfg.WithDataDir(v.GetString("datadir"))
	}
	if v.IsSet("outputverbosity") {
		cfg.WithOutputVerbosity(v.GetInt("outputverbosity"))
	}
	if v.IsSet("plannerverbosity") {
		cfg.WithPlannerVerbosity(v.GetInt("plannerverbosity"))
	}

	applyOverrides(cfg, overrides)

	return cfg.Build()
}

// applyOverrides layers CLI flags on top, winning over file/env values.
// Zero values are treated as "not set", matching the teacher's DTO
// override convention in newConfigFromDTO.
func applyOverrides(cfg *Config, o Overrides) {
	if o.Concurrency != 0 {
		cfg.WithConcurrency(o.Concurrency)
	}
	if o.MaxDownloads != 0 {
		cfg.WithMaxPages(o.MaxDownloads)
	}
	if o.MaxDepth != 0 {
		cfg.WithMaxDepth(o.MaxDepth)
	}
	if o.OutputVerbosity != 0 {
		cfg.WithOutputVerbosity(o.OutputVerbosity)
	}
	if o.DBPath != "" {
		cfg.WithDBPath(o.DBPath)
	}
	if o.DataDir != "" {
		cfg.WithDataDir(o.DataDir)
	}
	if o.PlannerVerbosity != 0 {
		cfg.WithPlannerVerbosity(o.PlannerVerbosity)
	}
}
