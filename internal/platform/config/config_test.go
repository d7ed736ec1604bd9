package config

import (
	"os"
	"testing"
	"time"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testPostgresDSN    = "postgres://localhost/test"
	testErrLoad        = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	os.Unsetenv("APP_ENV")
	os.Unsetenv("HTTP_PORT")
	os.Unsetenv("RESULT_LIMIT")
	os.Unsetenv("FACET_CACHE_TTL")
	os.Unsetenv("CORPUS_START")
	os.Unsetenv("CORPUS_END")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort default = %d, want %d", cfg.HTTPPort, 8080)
	}

	if cfg.ResultLimit != 2000 {
		t.Errorf("ResultLimit default = %d, want %d", cfg.ResultLimit, 2000)
	}

	if cfg.FacetCacheTTL != 24*time.Hour {
		t.Errorf("FacetCacheTTL default = %s, want 24h", cfg.FacetCacheTTL)
	}

	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to false")
	}
}

func TestLoad_CorpusBounds(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CORPUS_START", "2019-11-01")
	t.Setenv("CORPUS_END", "2021-05-08")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	bounds := cfg.CorpusBounds()

	wantStart := time.Date(2019, 11, 1, 0, 0, 0, 0, time.UTC)
	if !bounds.Min.Equal(wantStart) {
		t.Errorf("bounds.Min = %s, want %s", bounds.Min, wantStart)
	}

	wantEnd := time.Date(2021, 5, 8, 0, 0, 0, 0, time.UTC)
	if !bounds.Max.Equal(wantEnd) {
		t.Errorf("bounds.Max = %s, want %s", bounds.Max, wantEnd)
	}
}

func TestLoad_InvalidCorpusDate(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CORPUS_START", "not-a-date")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid CORPUS_START")
	}
}

func TestLoad_InvertedCorpusWindow(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CORPUS_START", "2021-05-08")
	t.Setenv("CORPUS_END", "2019-11-01")

	_, err := Load()
	if err == nil {
		t.Error("expected error for inverted corpus window")
	}
}
