// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Analyzer, Indexer, Search, Postgres, Kafka,
// Redis, Analytics, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. RateLimit is requests per
// minute per client IP; 0 disables limiting.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// Corpus source kinds.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
)

// CorpusConfig selects where raw documents are loaded from.
type CorpusConfig struct {
	Source      string `yaml:"source"`
	Dir         string `yaml:"dir"`
	Extension   string `yaml:"extension"`
	Query       string `yaml:"query"`
	Concurrency int    `yaml:"concurrency"`
}

// Stemmer names accepted by AnalyzerConfig.Stemmer. Any other value must be
// a snowball language.
const (
	StemmerSuffix = "suffix"
)

// SnowballLanguages lists the snowball stemmers that can be selected.
var SnowballLanguages = []string{"english", "french", "russian", "spanish", "swedish"}

// AnalyzerConfig fixes the normalization pipeline. Index time and query time
// must use the same values.
// Stop-words match regardless of case, even with Lowercase off.
type AnalyzerConfig struct {
	Lowercase        bool     `yaml:"lowercase"`
	UnicodeNormalize bool     `yaml:"unicodeNormalize"`
	StripDigits      bool     `yaml:"stripDigits"`
	Stopwords        string   `yaml:"stopwords"`
	ExtraStopwords   []string `yaml:"extraStopwords"`
	Stem             bool     `yaml:"stem"`
	Stemmer          string   `yaml:"stemmer"`
	MinLength        int      `yaml:"minLength"`
}

// IndexerConfig controls where built indexes are persisted.
type IndexerConfig struct {
	DataDir     string `yaml:"dataDir"`
	Persist     bool   `yaml:"persist"`
	LoadOnStart bool   `yaml:"loadOnStart"`
}

// SearchConfig controls query execution limits and ranking defaults.
type SearchConfig struct {
	MaxResults        int           `yaml:"maxResults"`
	DefaultLimit      int           `yaml:"defaultLimit"`
	Scheme            string        `yaml:"scheme"`
	IncludeZeroScores bool          `yaml:"includeZeroScores"`
	QueryTimeout      time.Duration `yaml:"queryTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexReload  string `yaml:"indexReload"`
	SearchEvents string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig controls query analytics collection. Events go through
// Kafka when it is enabled and straight into the in-process aggregator
// otherwise. SnapshotRetention caps stored snapshots; 0 keeps all of
// them.
type AnalyticsConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BatchSize         int           `yaml:"batchSize"`
	FlushInterval     time.Duration `yaml:"flushInterval"`
	PersistSnapshots  bool          `yaml:"persistSnapshots"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention int           `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			Source:      SourceDir,
			Dir:         "data/raw",
			Extension:   ".txt",
			Query:       "SELECT id, name, body FROM documents ORDER BY id",
			Concurrency: 8,
		},
		Analyzer: AnalyzerConfig{
			Lowercase:        true,
			UnicodeNormalize: true,
			Stopwords:        "builtin",
			Stem:             true,
			Stemmer:          StemmerSuffix,
			MinLength:        2,
		},
		Indexer: IndexerConfig{
			DataDir:     "data/index",
			Persist:     true,
			LoadOnStart: false,
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultLimit: 10,
			Scheme:       "sublinear",
			QueryTimeout: 2 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "minisearch",
			User:            "minisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "minisearch-group",
			Topics: KafkaTopics{
				IndexReload:  "index-reload",
				SearchEvents: "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled:           true,
			BatchSize:         100,
			FlushInterval:     5 * time.Second,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 1440,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Corpus.Source {
	case SourceDir, SourcePostgres:
	default:
		return fmt.Errorf("corpus.source must be %q or %q, got %q", SourceDir, SourcePostgres, c.Corpus.Source)
	}
	switch c.Analyzer.Stopwords {
	case "builtin", "none":
	default:
		return fmt.Errorf("analyzer.stopwords must be \"builtin\" or \"none\", got %q", c.Analyzer.Stopwords)
	}
	if c.Analyzer.Stemmer != StemmerSuffix && !slices.Contains(SnowballLanguages, c.Analyzer.Stemmer) {
		return fmt.Errorf("analyzer.stemmer must be %q or one of %v, got %q", StemmerSuffix, SnowballLanguages, c.Analyzer.Stemmer)
	}
	if c.Analyzer.MinLength < 1 {
		return fmt.Errorf("analyzer.minLength must be at least 1, got %d", c.Analyzer.MinLength)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative")
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	return nil
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("SP_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("SP_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("SP_SEARCH_SCHEME"); v != "" {
		cfg.Search.Scheme = v
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_ANALYTICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
