package config

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/benjlis/covid19-search/internal/query"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// MigrateOnStart creates the covid19 schema locally. Production points
	// at the upstream-owned schema and leaves this off.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`

	// ResultLimit caps the number of rows a single search returns.
	ResultLimit int `env:"RESULT_LIMIT" envDefault:"2000"`

	// CorpusStart and CorpusEnd bound the sent dates present in the
	// corpus; they accept any common date format.
	CorpusStart string `env:"CORPUS_START" envDefault:"2019-11-01"`
	CorpusEnd   string `env:"CORPUS_END" envDefault:"2021-05-08"`

	FacetCacheTTL time.Duration `env:"FACET_CACHE_TTL" envDefault:"24h"`

	PreviewFetchTimeout time.Duration `env:"PREVIEW_FETCH_TIMEOUT" envDefault:"30s"`
	PreviewFetchRPS     float64       `env:"PREVIEW_FETCH_RPS" envDefault:"2"`

	// Per-IP limits for the web surface.
	RateLimitRequests int `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitBurst    int `env:"RATE_LIMIT_BURST" envDefault:"30"`

	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD"`

	// Bounds is the parsed corpus window, populated by Load.
	Bounds query.DateBounds `env:"-"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	start, err := dateparse.ParseStrict(cfg.CorpusStart)
	if err != nil {
		return nil, fmt.Errorf("parsing CORPUS_START: %w", err)
	}

	end, err := dateparse.ParseStrict(cfg.CorpusEnd)
	if err != nil {
		return nil, fmt.Errorf("parsing CORPUS_END: %w", err)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("corpus window inverted: %s after %s", cfg.CorpusStart, cfg.CorpusEnd)
	}

	cfg.Bounds = query.DateBounds{Min: start, Max: end}

	return cfg, nil
}

// CorpusBounds returns the parsed corpus date window.
func (c *Config) CorpusBounds() query.DateBounds {
	return c.Bounds
}
