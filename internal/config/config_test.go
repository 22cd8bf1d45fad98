package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/dnd-navigator/internal/config"
)

func TestWithDefault(t *testing.T) {
	cfg := config.WithDefault()

	if cfg == nil {
		t.Fatal("WithDefault() returned nil")
	}

	builtCfg, err := cfg.Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}

	if builtCfg.BaseURL() != "https://www.dnd5eapi.co/api" {
		t.Errorf("unexpected default base URL: %s", builtCfg.BaseURL())
	}
	if builtCfg.Timeout() != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", builtCfg.Timeout())
	}
	if builtCfg.TTLHours() != 24 {
		t.Errorf("expected 24-hour TTL, got %d", builtCfg.TTLHours())
	}
	if builtCfg.TTL() != 24*time.Hour {
		t.Errorf("expected TTL duration of 24h, got %v", builtCfg.TTL())
	}
	if builtCfg.Persistent() {
		t.Error("persistence should default to off")
	}
	if builtCfg.PrefetchConcurrency() != 4 {
		t.Errorf("expected prefetch concurrency 4, got %d", builtCfg.PrefetchConcurrency())
	}

	wantPrefetch := []string{"spells", "equipment", "monsters", "classes", "races"}
	gotPrefetch := builtCfg.PrefetchCategories()
	if len(gotPrefetch) != len(wantPrefetch) {
		t.Fatalf("expected %d prefetch categories, got %d", len(wantPrefetch), len(gotPrefetch))
	}
	for i, want := range wantPrefetch {
		if gotPrefetch[i] != want {
			t.Errorf("prefetch category %d: expected %s, got %s", i, want, gotPrefetch[i])
		}
	}
}

func TestBuild_ValidatesInvariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config) *config.Config
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *config.Config) *config.Config { return c },
			wantErr: false,
		},
		{
			name:    "empty base URL rejected",
			mutate:  func(c *config.Config) *config.Config { return c.WithBaseURL("") },
			wantErr: true,
		},
		{
			name:    "zero TTL rejected",
			mutate:  func(c *config.Config) *config.Config { return c.WithTTLHours(0) },
			wantErr: true,
		},
		{
			name: "persistent without cacheDir rejected",
			mutate: func(c *config.Config) *config.Config {
				return c.WithPersistent(true).WithCacheDir("")
			},
			wantErr: true,
		},
		{
			name: "persistent with cacheDir accepted",
			mutate: func(c *config.Config) *config.Config {
				return c.WithPersistent(true).WithCacheDir("/tmp/dnd-cache")
			},
			wantErr: false,
		},
		{
			name:    "zero prefetch concurrency rejected",
			mutate:  func(c *config.Config) *config.Config { return c.WithPrefetchConcurrency(0) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.mutate(config.WithDefault()).Build()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr && !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBuilderChaining(t *testing.T) {
	cfg, err := config.WithDefault().
		WithBaseURL("http://localhost:8080/api").
		WithTTLHours(1).
		WithPersistent(true).
		WithCacheDir("/tmp/test-cache").
		WithPrefetchCategories([]string{"spells"}).
		WithPrefetchConcurrency(2).
		WithMaxAttempt(5).
		WithRandomSeed(42).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL() != "http://localhost:8080/api" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL())
	}
	if cfg.TTLHours() != 1 {
		t.Errorf("expected TTL of 1 hour, got %d", cfg.TTLHours())
	}
	if !cfg.Persistent() {
		t.Error("expected persistence on")
	}
	if cfg.CacheDir() != "/tmp/test-cache" {
		t.Errorf("unexpected cache dir: %s", cfg.CacheDir())
	}
	if cfg.MaxAttempt() != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.MaxAttempt())
	}
	if cfg.RandomSeed() != 42 {
		t.Errorf("expected seed 42, got %d", cfg.RandomSeed())
	}
}

func TestWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"baseUrl": "http://localhost:9999/api",
		"ttlHours": 48,
		"persistent": true,
		"cacheDir": "/tmp/file-cache",
		"prefetchCategories": ["spells", "monsters"],
		"maxAttempt": 7
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL() != "http://localhost:9999/api" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL())
	}
	if cfg.TTLHours() != 48 {
		t.Errorf("expected 48-hour TTL, got %d", cfg.TTLHours())
	}
	if !cfg.Persistent() {
		t.Error("expected persistence on")
	}
	if len(cfg.PrefetchCategories()) != 2 {
		t.Errorf("expected 2 prefetch categories, got %d", len(cfg.PrefetchCategories()))
	}
	if cfg.MaxAttempt() != 7 {
		t.Errorf("expected 7 max attempts, got %d", cfg.MaxAttempt())
	}
	// Unset fields keep defaults
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Timeout())
	}
}

func TestWithConfigFile_MissingFile(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got %v", err)
	}
}

func TestWithConfigFile_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := config.WithConfigFile(path)
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got %v", err)
	}
}
