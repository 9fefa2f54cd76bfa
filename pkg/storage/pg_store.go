package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGConfig configures the PostgreSQL-backed store.
type PGConfig struct {
	DatabaseURL       string `yaml:"database_url"`
	EntityTable       string `yaml:"entity_table"`       // defaults to "cards"
	RelationshipTable string `yaml:"relationship_table"` // defaults to "card_relationships"
	MaxConns          int32  `yaml:"max_conns"`
	MinConns          int32  `yaml:"min_conns"`
}

// PGStore reads entities and relationships from the tables maintained by the
// portal's CRUD layer. It never writes.
type PGStore struct {
	pool              *pgxpool.Pool
	entityTable       string
	relationshipTable string

	skippedRows atomic.Int64
}

// NewPGStore creates a new PostgreSQL-backed store and verifies connectivity.
func NewPGStore(ctx context.Context, cfg PGConfig) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	config.MinConns = 2
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, UnavailableError("connect", "postgres", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, UnavailableError("ping", "postgres", err)
	}

	s := &PGStore{
		pool:              pool,
		entityTable:       "cards",
		relationshipTable: "card_relationships",
	}
	if cfg.EntityTable != "" {
		s.entityTable = cfg.EntityTable
	}
	if cfg.RelationshipTable != "" {
		s.relationshipTable = cfg.RelationshipTable
	}
	if err := validateIdentifier(s.entityTable); err != nil {
		pool.Close()
		return nil, err
	}
	if err := validateIdentifier(s.relationshipTable); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return UnavailableError("ping", "postgres", err)
	}
	return nil
}

// SkippedRows returns how many rows were ignored because their type column
// held a value outside the known enumerations.
func (s *PGStore) SkippedRows() int64 {
	return s.skippedRows.Load()
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// validateIdentifier guards table names interpolated into SQL.
func validateIdentifier(name string) error {
	if name == "" || len(name) > 63 {
		return fmt.Errorf("invalid table name %q", name)
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z'):
		case i > 0 && (r >= '0' && r <= '9'):
		default:
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
