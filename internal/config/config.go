// Package config defines the engine's recognised configuration
// options and the viper/yaml cascade that loads them: config file ->
// environment -> CLI flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine's top-level configuration, recognised by
// engine.Run and by the CLI's flag/env/file cascade.
type Config struct {
	// API / politeness.
	OpenAlexKey     string `mapstructure:"openalex_key" yaml:"openalex_key,omitempty"`
	S2APIKey        string `mapstructure:"s2_api_key" yaml:"s2_api_key,omitempty"`
	CrossRefMailto  string `mapstructure:"crossref_mailto" yaml:"crossref_mailto,omitempty"`

	// Offline index paths.
	DBLPOfflinePath string `mapstructure:"dblp_offline_path" yaml:"dblp_offline_path,omitempty"`
	ACLOfflinePath  string `mapstructure:"acl_offline_path" yaml:"acl_offline_path,omitempty"`

	// Cache.
	CachePath       string        `mapstructure:"cache_path" yaml:"cache_path,omitempty"`
	PositiveTTLSecs int           `mapstructure:"positive_ttl_secs" yaml:"positive_ttl_secs"`
	NegativeTTLSecs int           `mapstructure:"negative_ttl_secs" yaml:"negative_ttl_secs"`

	// Concurrency.
	NumWorkers         int `mapstructure:"num_workers" yaml:"num_workers"`
	DBTimeoutSecs      int `mapstructure:"db_timeout_secs" yaml:"db_timeout_secs"`
	DBTimeoutShortSecs int `mapstructure:"db_timeout_short_secs" yaml:"db_timeout_short_secs"`
	MaxRateLimitRetries int `mapstructure:"max_rate_limit_retries" yaml:"max_rate_limit_retries"`

	// SearxNG fallback.
	SearxNGURL string `mapstructure:"searxng_url" yaml:"searxng_url,omitempty"`

	// Backend disable list (case-sensitive names).
	DisabledDBs []string `mapstructure:"disabled_dbs" yaml:"disabled_dbs,omitempty"`

	// Author policy.
	CheckOpenAlexAuthors bool `mapstructure:"check_openalex_authors" yaml:"check_openalex_authors"`

	// NearExactTitleThreshold resolves an Unknown author verdict to
	// Match when the title similarity score meets this value.
	NearExactTitleThreshold float64 `mapstructure:"near_exact_title_threshold" yaml:"near_exact_title_threshold"`

	// HTTP politeness / networking.
	UserAgent  string `mapstructure:"user_agent" yaml:"user_agent,omitempty"`
	HTTPProxy  string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy    string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// DefaultConfig returns the engine's defaults: a week-long positive
// cache TTL, a day-long negative one, 4 workers, 10s/5s query
// timeouts, 3 rate-limit retries, and author checking left off by
// default for backends where it's optional.
func DefaultConfig() Config {
	return Config{
		PositiveTTLSecs:         604800,
		NegativeTTLSecs:         86400,
		NumWorkers:              4,
		DBTimeoutSecs:           10,
		DBTimeoutShortSecs:      5,
		MaxRateLimitRetries:     3,
		CheckOpenAlexAuthors:    false,
		NearExactTitleThreshold: 98.0,
		UserAgent:               "ReferenceValidationEngine/1.0",
	}
}

// PositiveTTL and NegativeTTL convert the configured second counts to
// time.Duration for internal/cache.
func (c Config) PositiveTTL() time.Duration {
	return time.Duration(c.PositiveTTLSecs) * time.Second
}

func (c Config) NegativeTTL() time.Duration {
	return time.Duration(c.NegativeTTLSecs) * time.Second
}

func (c Config) DBTimeout() time.Duration {
	return time.Duration(c.DBTimeoutSecs) * time.Second
}

func (c Config) DBTimeoutShort() time.Duration {
	return time.Duration(c.DBTimeoutShortSecs) * time.Second
}

// IsDisabled reports whether backend is listed in DisabledDBs. The
// match is case-sensitive.
func (c Config) IsDisabled(backend string) bool {
	for _, d := range c.DisabledDBs {
		if d == backend {
			return true
		}
	}
	return false
}

// Load reads the viper cascade (file -> REFCHECK_* env -> already-bound
// flags) into a Config seeded with DefaultConfig.
func Load(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	v.SetEnvPrefix("REFCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("positive_ttl_secs", cfg.PositiveTTLSecs)
	v.SetDefault("negative_ttl_secs", cfg.NegativeTTLSecs)
	v.SetDefault("num_workers", cfg.NumWorkers)
	v.SetDefault("db_timeout_secs", cfg.DBTimeoutSecs)
	v.SetDefault("db_timeout_short_secs", cfg.DBTimeoutShortSecs)
	v.SetDefault("max_rate_limit_retries", cfg.MaxRateLimitRetries)
	v.SetDefault("check_openalex_authors", cfg.CheckOpenAlexAuthors)
	v.SetDefault("near_exact_title_threshold", cfg.NearExactTitleThreshold)
	v.SetDefault("user_agent", cfg.UserAgent)
}

// Validate rejects configuration errors that should be fatal at
// startup rather than surfacing as confusing runtime behavior: unknown
// backend names in the disable list, or a non-positive worker count.
func Validate(cfg Config, knownBackends []string) error {
	known := make(map[string]bool, len(knownBackends))
	for _, b := range knownBackends {
		known[b] = true
	}
	for _, d := range cfg.DisabledDBs {
		if !known[d] {
			return fmt.Errorf("disabled_dbs: unknown backend %q", d)
		}
	}
	if cfg.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be positive, got %d", cfg.NumWorkers)
	}
	return nil
}
