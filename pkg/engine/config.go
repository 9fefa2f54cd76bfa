package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

// Config controls query bounds and caching.
type Config struct {
	DefaultDepth    int           `yaml:"default_depth"`
	MaxDepth        int           `yaml:"max_depth"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ImpactCacheSize int           `yaml:"impact_cache_size"`
	MatrixLimit     int           `yaml:"matrix_limit"`
	MatrixMaxLimit  int           `yaml:"matrix_max_limit"`
	Paths           PathConfig    `yaml:"paths"`
}

// PathConfig bounds the critical path scan.
type PathConfig struct {
	MinLength     int     `yaml:"min_length"`
	MaxLength     int     `yaml:"max_length"`
	Threshold     float64 `yaml:"threshold"`
	Limit         int     `yaml:"limit"`
	MaxLimit      int     `yaml:"max_limit"`
	MaxExpansions int64   `yaml:"max_expansions"`
	Concurrency   int     `yaml:"concurrency"` // 0 = GOMAXPROCS
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultDepth:    3,
		MaxDepth:        10,
		QueryTimeout:    5 * time.Second,
		CacheTTL:        5 * time.Minute,
		ImpactCacheSize: 4096,
		MatrixLimit:     algorithms.DefaultMatrixLimit,
		MatrixMaxLimit:  100,
		Paths: PathConfig{
			MinLength:     algorithms.DefaultPathMinLength,
			MaxLength:     algorithms.DefaultPathMaxLength,
			Threshold:     algorithms.DefaultPathThreshold,
			Limit:         algorithms.DefaultPathLimit,
			MaxLimit:      100,
			MaxExpansions: algorithms.DefaultPathMaxExpansions,
		},
	}
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	return validation.NewConfigValidator("engine").
		Positive("max_depth", c.MaxDepth).
		RangeInt("default_depth", c.DefaultDepth, 0, c.MaxDepth).
		MinDuration("query_timeout", c.QueryTimeout, time.Millisecond).
		MinDuration("cache_ttl", c.CacheTTL, time.Millisecond).
		Positive("impact_cache_size", c.ImpactCacheSize).
		RangeInt("matrix_limit", c.MatrixLimit, 1, c.MatrixMaxLimit).
		RangeInt("paths.min_length", c.Paths.MinLength, 2, math.MaxInt).
		RangeInt("paths.max_length", c.Paths.MaxLength, c.Paths.MinLength, math.MaxInt).
		RangeFloat("paths.threshold", c.Paths.Threshold, 0, 100).
		RangeInt("paths.limit", c.Paths.Limit, 1, c.Paths.MaxLimit).
		Custom("paths.max_expansions", func() error {
			if c.Paths.MaxExpansions < 1 {
				return fmt.Errorf("value %d must be positive", c.Paths.MaxExpansions)
			}
			return nil
		}).
		NonNegative("paths.concurrency", c.Paths.Concurrency).
		Validate()
}
