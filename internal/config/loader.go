package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "VELO_"

// Load builds a Config by layering, from lowest to highest precedence:
//  1. defaults (New)
//  2. YAML file named by VELO_CONFIG, if set
//  3. env vars with prefix VELO_
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// VELO_WRITE_CONCURRENCY -> write_concurrency. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service unusable.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "memory" && c.DBDriver != "sqlite" && c.DBDriver != "postgres":
		return fmt.Errorf("%w: unknown db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBDriver != "memory" && c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn must be set for %s", ErrInvalidConfig, c.DBDriver)
	case c.KBase <= 0:
		return fmt.Errorf("%w: k_base must be positive", ErrInvalidConfig)
	case c.HeadToHeadMaxField < 2:
		return fmt.Errorf("%w: head_to_head_max_field must be at least 2", ErrInvalidConfig)
	case c.DefaultSourceReliability < 0 || c.DefaultSourceReliability > 1:
		return fmt.Errorf("%w: default_source_reliability must be within [0,1]", ErrInvalidConfig)
	case c.AnalysisRateLimit < 0:
		return fmt.Errorf("%w: analysis_rate_limit must not be negative", ErrInvalidConfig)
	}
	for cat, m := range c.RaceImportance {
		if m <= 0 {
			return fmt.Errorf("%w: race_importance[%s] must be positive", ErrInvalidConfig, cat)
		}
	}
	for src, m := range c.SourceReliability {
		if m < 0 || m > 1 {
			return fmt.Errorf("%w: source_reliability[%s] must be within [0,1]", ErrInvalidConfig, src)
		}
	}
	return nil
}

// Origins splits CORSOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
