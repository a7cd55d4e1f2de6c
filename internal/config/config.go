// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/identity"
)

// Backend names accepted by the storage, artifacts, and publisher sections.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendPubSub   = "pubsub"
	BackendNone     = "none"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig      `mapstructure:"logging"`
	HTTP       HTTPConfig         `mapstructure:"http"`
	Identity   IdentityConfig     `mapstructure:"identity"`
	Detection  DetectionConfig    `mapstructure:"detection"`
	Fetch      FetchConfig        `mapstructure:"fetch"`
	Strategies []crawler.Strategy `mapstructure:"strategies"`
	Storage    StorageConfig      `mapstructure:"storage"`
	Artifacts  ArtifactsConfig    `mapstructure:"artifacts"`
	Publisher  PublisherConfig    `mapstructure:"publisher"`
	Metrics    MetricsConfig      `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig bounds each GET.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxBodySize int           `mapstructure:"max_body_size"`
}

// IdentityConfig points at the session credentials. Credentials wins over CredentialsFile.
type IdentityConfig struct {
	Credentials     string `mapstructure:"credentials"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// DetectionConfig lists final-address markers that signal a verification page.
type DetectionConfig struct {
	Markers []string `mapstructure:"markers"`
}

// FetchConfig holds the defaults applied to strategies that leave a field unset.
type FetchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Pacing      crawler.Range `mapstructure:"pacing"`
	RetryDelay  crawler.Range `mapstructure:"retry_delay"`
}

// StorageConfig selects the record gateway.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// PostgresConfig controls the pgx pool.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	CreateSchema    bool          `mapstructure:"create_schema"`
}

// SQLiteConfig locates the single-file store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ArtifactsConfig selects where raw bodies of successful fetches go.
type ArtifactsConfig struct {
	Backend   string `mapstructure:"backend"`
	Prefix    string `mapstructure:"prefix"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PublisherConfig selects the run-event sink.
type PublisherConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the /metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("http.timeout", "20s")
	v.SetDefault("http.max_body_size", 10*1024*1024)
	v.SetDefault("identity.credentials", "")
	v.SetDefault("identity.credentials_file", "")
	v.SetDefault("detection.markers", []string{"verify", "login"})
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.pacing.min", "8s")
	v.SetDefault("fetch.pacing.max", "15s")
	v.SetDefault("fetch.retry_delay.min", "15s")
	v.SetDefault("fetch.retry_delay.max", "30s")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.table", "listing_records")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.min_conns", 0)
	v.SetDefault("storage.postgres.max_conn_lifetime", "30m")
	v.SetDefault("storage.postgres.create_schema", true)
	v.SetDefault("storage.sqlite.path", "data/listings.db")
	v.SetDefault("artifacts.backend", BackendNone)
	v.SetDefault("artifacts.prefix", "pages")
	v.SetDefault("artifacts.base_dir", "data/artifacts")
	v.SetDefault("artifacts.gcs_bucket", "")
	v.SetDefault("publisher.backend", BackendNone)
	v.SetDefault("publisher.project_id", "")
	v.SetDefault("publisher.topic", "listing-runs")
	v.SetDefault("metrics.addr", "")
}

// DefaultStrategies is the built-in plan: desktop listing pages, then the
// site's JSON endpoints, then the mobile site.
func DefaultStrategies() []crawler.Strategy {
	return []crawler.Strategy{
		{
			Name:    "desktop",
			Source:  crawler.DataSourcePrimary,
			Profile: crawler.ProfileDesktop,
			Addresses: []string{
				"https://www.dianping.com/dalian/ch10/g110",
				"https://www.dianping.com/dalian/ch10",
				"https://www.dianping.com/search/keyword/8/10_自助餐",
				"https://www.dianping.com/dalian/search/category/10/10/g110",
			},
		},
		{
			Name:    "ajax",
			Source:  crawler.DataSourceAlternate,
			Profile: crawler.ProfileDesktop,
			Addresses: []string{
				"https://www.dianping.com/ajax/json/shop/category/shoplist",
				"https://www.dianping.com/ajax/json/search/searchshop",
			},
			MaxAttempts: 2,
			RetryDelay:  crawler.Range{Min: 10 * time.Second, Max: 20 * time.Second},
		},
		{
			Name:    "mobile",
			Source:  crawler.DataSourceMobile,
			Profile: crawler.ProfileMobile,
			Addresses: []string{
				"https://m.dianping.com/search/keyword/8/0_自助餐",
				"https://m.dianping.com/8/food",
				"https://m.dianping.com/dalian/food/buffet",
			},
		},
	}
}

// ResolvedStrategies fills unset per-strategy fetch knobs from the fetch section
// and normalizes addresses.
func (c Config) ResolvedStrategies() []crawler.Strategy {
	out := make([]crawler.Strategy, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.MaxAttempts <= 0 {
			s.MaxAttempts = c.Fetch.MaxAttempts
		}
		if s.Pacing == (crawler.Range{}) {
			s.Pacing = c.Fetch.Pacing
		}
		if s.RetryDelay == (crawler.Range{}) {
			s.RetryDelay = c.Fetch.RetryDelay
		}
		addresses := make([]string, 0, len(s.Addresses))
		for _, a := range s.Addresses {
			if normalized, err := crawler.NormalizeAddress(a); err == nil {
				a = normalized
			}
			addresses = append(addresses, a)
		}
		s.Addresses = addresses
		out[i] = s
	}
	return out
}

// Resolve returns the raw credential string, reading the INI side store when
// no inline value is set.
func (c IdentityConfig) Resolve() (string, error) {
	if strings.TrimSpace(c.Credentials) != "" || c.CredentialsFile == "" {
		return c.Credentials, nil
	}
	raw, err := identity.LoadCredentialFile(c.CredentialsFile)
	if err != nil {
		return "", fmt.Errorf("identity.credentials_file: %w", err)
	}
	return raw, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if err := validateRange("fetch.pacing", c.Fetch.Pacing); err != nil {
		return err
	}
	if err := validateRange("fetch.retry_delay", c.Fetch.RetryDelay); err != nil {
		return err
	}
	if err := c.validateStrategies(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of postgres, sqlite, memory", c.Storage.Backend)
	}

	switch c.Artifacts.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if c.Artifacts.BaseDir == "" {
			return fmt.Errorf("artifacts.base_dir is required for the local backend")
		}
	case BackendGCS:
		if c.Artifacts.GCSBucket == "" {
			return fmt.Errorf("artifacts.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("artifacts.backend %q is not one of none, memory, local, gcs", c.Artifacts.Backend)
	}

	switch c.Publisher.Backend {
	case BackendNone, BackendMemory:
	case BackendPubSub:
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic are required for pubsub")
		}
	default:
		return fmt.Errorf("publisher.backend %q is not one of none, memory, pubsub", c.Publisher.Backend)
	}
	return nil
}

func (c Config) validateStrategies() error {
	seen := make(map[string]struct{}, len(c.Strategies))
	for i, s := range c.Strategies {
		key := fmt.Sprintf("strategies[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%s.name is required", key)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%s.name %q is duplicated", key, s.Name)
		}
		seen[s.Name] = struct{}{}
		if !s.Source.Valid() {
			return fmt.Errorf("%s.source %q is invalid", key, s.Source)
		}
		if !s.Profile.Valid() {
			return fmt.Errorf("%s.profile %q is invalid", key, s.Profile)
		}
		if len(s.Addresses) == 0 {
			return fmt.Errorf("%s.addresses must not be empty", key)
		}
		for j, a := range s.Addresses {
			if _, err := crawler.NormalizeAddress(a); err != nil {
				return fmt.Errorf("%s.addresses[%d]: %w", key, j, err)
			}
		}
		if err := validateRange(key+".pacing", s.Pacing); err != nil {
			return err
		}
		if err := validateRange(key+".retry_delay", s.RetryDelay); err != nil {
			return err
		}
	}
	return nil
}

func validateRange(key string, r crawler.Range) error {
	if r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("%s must satisfy 0 <= min <= max (got %s..%s)", key, r.Min, r.Max)
	}
	return nil
}
