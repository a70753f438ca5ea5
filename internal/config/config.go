// Package config defines service configuration and its defaults.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the store: memory, sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver-specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// WriteConcurrency bounds concurrent per-athlete writes after an update.
	WriteConcurrency int `koanf:"write_concurrency"`

	// ImportQueueSize bounds the async import queue.
	ImportQueueSize int `koanf:"import_queue_size"`

	// ImportWorkers sets the number of import workers.
	ImportWorkers int `koanf:"import_workers"`

	// DedupeSize sets how many import ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRankingsLimit caps GET /rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// KBase is the base Elo step.
	KBase float64 `koanf:"k_base"`

	// HeadToHeadMaxField is the field size from which batch mode is used.
	HeadToHeadMaxField int `koanf:"head_to_head_max_field"`

	// RaceImportance overrides category importance multipliers.
	RaceImportance map[string]float64 `koanf:"race_importance"`

	// SourceReliability overrides text source reliability multipliers.
	SourceReliability map[string]float64 `koanf:"source_reliability"`

	// DefaultSourceReliability applies to unknown source types.
	DefaultSourceReliability float64 `koanf:"default_source_reliability"`

	// RankingsResyncSchedule is a cron spec for rebuilding the rankings index. Empty disables it.
	RankingsResyncSchedule string `koanf:"rankings_resync_schedule"`

	// AnalysisRateLimit is the sustained requests per second allowed on /analysis.
	AnalysisRateLimit float64 `koanf:"analysis_rate_limit"`

	// AnalysisBurst is the token bucket size for /analysis.
	AnalysisBurst int `koanf:"analysis_burst"`

	// CORSOrigins lists allowed origins, comma separated.
	CORSOrigins string `koanf:"cors_origins"`

	// BreakerMaxFailures opens the store breaker after that many consecutive failures.
	BreakerMaxFailures int `koanf:"breaker_max_failures"`

	// BreakerOpenSeconds is how long the breaker stays open.
	BreakerOpenSeconds int `koanf:"breaker_open_seconds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DBDriver:                 "sqlite",
		DBDSN:                    "file:velorank.db?_pragma=busy_timeout(5000)",
		WriteConcurrency:         8,
		ImportQueueSize:          64,
		ImportWorkers:            2,
		DedupeSize:               10_000,
		MaxRankingsLimit:         100,
		KBase:                    32,
		HeadToHeadMaxField:       50,
		DefaultSourceReliability: 0.5,
		RankingsResyncSchedule:   "@every 10m",
		AnalysisRateLimit:        5,
		AnalysisBurst:            10,
		CORSOrigins:              "*",
		BreakerMaxFailures:       5,
		BreakerOpenSeconds:       30,
	}
}
