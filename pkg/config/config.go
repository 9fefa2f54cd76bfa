// Package config loads the server configuration from a YAML file with
// ARCHGRAPH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/snapshot"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHGRAPH_"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Engine  engine.Config  `yaml:"engine"`
	Store   StoreConfig    `yaml:"store"`
	Events  EventsConfig   `yaml:"events"`
	Logging logging.Config `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	GraphQL         bool          `yaml:"graphql"`
}

// StoreConfig selects where entities and relationships are read from.
// The memory store is seeded from Snapshot when a file or S3 object is set.
type StoreConfig struct {
	Type     string           `yaml:"type"`
	Postgres storage.PGConfig `yaml:"postgres"`
	Snapshot SnapshotConfig   `yaml:"snapshot"`
}

// SnapshotConfig locates an export for the memory store.
type SnapshotConfig struct {
	File string            `yaml:"file"`
	S3   snapshot.S3Config `yaml:"s3"`
}

// EventsConfig configures change notification intake.
type EventsConfig struct {
	NNGAddr    string `yaml:"nng_addr"` // empty disables the bridge
	BufferSize int    `yaml:"buffer_size"`
}

// Default returns a configuration that serves an empty memory store.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			GraphQL:         true,
		},
		Engine: engine.DefaultConfig(),
		Store:  StoreConfig{Type: StoreMemory},
		Events: EventsConfig{BufferSize: 100},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv exports the variables in the given .env files (default ".env")
// that are not already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("ADDR", &c.Server.Addr)
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	e.duration("READ_TIMEOUT", &c.Server.ReadTimeout)
	e.duration("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.list("CORS_ORIGINS", &c.Server.CORSOrigins)
	e.boolean("GRAPHQL", &c.Server.GraphQL)

	e.integer("DEFAULT_DEPTH", &c.Engine.DefaultDepth)
	e.integer("MAX_DEPTH", &c.Engine.MaxDepth)
	e.duration("QUERY_TIMEOUT", &c.Engine.QueryTimeout)
	e.duration("CACHE_TTL", &c.Engine.CacheTTL)
	e.integer("IMPACT_CACHE_SIZE", &c.Engine.ImpactCacheSize)
	e.integer("MATRIX_LIMIT", &c.Engine.MatrixLimit)
	e.integer("PATH_LIMIT", &c.Engine.Paths.Limit)
	e.float("PATH_THRESHOLD", &c.Engine.Paths.Threshold)

	e.str("STORE", &c.Store.Type)
	e.str("DATABASE_URL", &c.Store.Postgres.DatabaseURL)
	e.str("SNAPSHOT_FILE", &c.Store.Snapshot.File)
	e.str("S3_BUCKET", &c.Store.Snapshot.S3.Bucket)
	e.str("S3_KEY", &c.Store.Snapshot.S3.Key)
	e.str("S3_REGION", &c.Store.Snapshot.S3.Region)
	e.str("S3_ENDPOINT", &c.Store.Snapshot.S3.Endpoint)
	e.str("S3_ACCESS_KEY", &c.Store.Snapshot.S3.AccessKey)
	e.str("S3_SECRET_KEY", &c.Store.Snapshot.S3.SecretKey)

	e.str("NNG_ADDR", &c.Events.NNGAddr)

	e.str("LOG_LEVEL", &c.Logging.Level)
	e.str("LOG_FORMAT", &c.Logging.Format)
	e.str("LOG_OUTPUT", &c.Logging.Output)

	return errors.Join(e.errs...)
}

// Validate checks every section.
func (c *Config) Validate() error {
	server := validation.NewConfigValidator("server").
		Required("addr", c.Server.Addr).
		MinDuration("read_timeout", c.Server.ReadTimeout, time.Millisecond).
		MinDuration("write_timeout", c.Server.WriteTimeout, c.Engine.QueryTimeout).
		MinDuration("shutdown_timeout", c.Server.ShutdownTimeout, time.Millisecond)

	store := validation.NewConfigValidator("store").
		OneOf("type", c.Store.Type, []string{StoreMemory, StorePostgres}).
		When(c.Store.Type == StorePostgres, func(v *validation.ConfigValidator) {
			v.Required("postgres.database_url", c.Store.Postgres.DatabaseURL).
				URL("postgres.database_url", c.Store.Postgres.DatabaseURL, "postgres", "postgresql")
		}).
		Exclusive(map[string]string{
			"snapshot.file":      c.Store.Snapshot.File,
			"snapshot.s3.bucket": c.Store.Snapshot.S3.Bucket,
		}).
		URL("snapshot.s3.endpoint", c.Store.Snapshot.S3.Endpoint, "http", "https")

	events := validation.NewConfigValidator("events").
		NonNegative("buffer_size", c.Events.BufferSize).
		URL("nng_addr", c.Events.NNGAddr, "tcp", "ipc", "inproc", "ws")

	logs := validation.NewConfigValidator("logging").
		OneOf("format", validation.DefaultOr(c.Logging.Format, "json"), []string{"json", "text"})

	return errors.Join(
		server.Validate(),
		c.Engine.Validate(),
		store.Validate(),
		events.Validate(),
		logs.Validate(),
	)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	if v, ok := e.get(name); ok {
		*dst = validation.SplitList(v)
	}
}

func (e *envReader) integer(name string, dst *int) {
	if v, ok := e.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(name string, dst *float64) {
	if v, ok := e.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(name string, dst *bool) {
	if v, ok := e.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = d
	}
}
