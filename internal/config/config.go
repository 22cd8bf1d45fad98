package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	//===============
	//  Upstream
	//===============
	// Base URL of the reference-data API, without a trailing slash.
	baseURL string
	// Maximum time of a single upstream request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Cache
	//===============
	// Entry lifetime in hours. Fixed at write time for every entry.
	ttlHours int
	// Whether cache entries are written through to disk
	persistent bool
	// Root directory for durable cache entries
	cacheDir string

	//===============
	// Prefetch
	//===============
	// Categories warmed in the background at startup
	prefetchCategories []string
	// Maximum number of in-flight item fetches per warmed category
	prefetchConcurrency int

	//===============
	// Retry
	//===============
	// maximum attempt during retry
	maxAttempt int
	// Randomized variation added on top of backoff delays
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
}

type configDTO struct {
	BaseURL                string        `json:"baseUrl,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	TTLHours               int           `json:"ttlHours,omitempty"`
	Persistent             bool          `json:"persistent,omitempty"`
	CacheDir               string        `json:"cacheDir,omitempty"`
	PrefetchCategories     []string      `json:"prefetchCategories,omitempty"`
	PrefetchConcurrency    int           `json:"prefetchConcurrency,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	// Start with default config
	cfg, err := WithDefault().Build()
	if err != nil {
		return Config{}, err
	}

	// Only override when a non-zero value is provided
	if dto.BaseURL != "" {
		cfg.baseURL = dto.BaseURL
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.TTLHours != 0 {
		cfg.ttlHours = dto.TTLHours
	}
	// Persistent is a boolean, we use the DTO value as-is since bool zero value is false
	cfg.persistent = dto.Persistent
	if dto.CacheDir != "" {
		cfg.cacheDir = dto.CacheDir
	}
	if len(dto.PrefetchCategories) > 0 {
		cfg.prefetchCategories = dto.PrefetchCategories
	}
	if dto.PrefetchConcurrency != 0 {
		cfg.prefetchConcurrency = dto.PrefetchConcurrency
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with default values for all fields.
// The defaults target the public D&D 5e API with a 24-hour in-memory cache.
func WithDefault() *Config {
	defaultConfig := Config{
		baseURL:   "https://www.dnd5eapi.co/api",
		timeout:   10 * time.Second,
		userAgent: "dnd-navigator/1.0",

		ttlHours:   24,
		persistent: false,
		cacheDir:   "cache",

		prefetchCategories:  []string{"spells", "equipment", "monsters", "classes", "races"},
		prefetchConcurrency: 4,

		maxAttempt:             3,
		jitter:                 500 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
	}
	return &defaultConfig
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.baseURL = baseURL
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithTTLHours(hours int) *Config {
	c.ttlHours = hours
	return c
}

func (c *Config) WithPersistent(persistent bool) *Config {
	c.persistent = persistent
	return c
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithPrefetchCategories(categories []string) *Config {
	c.prefetchCategories = categories
	return c
}

func (c *Config) WithPrefetchConcurrency(concurrency int) *Config {
	c.prefetchConcurrency = concurrency
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) Build() (Config, error) {
	if c.baseURL == "" {
		return Config{}, fmt.Errorf("%w: baseUrl cannot be empty", ErrInvalidConfig)
	}
	if c.ttlHours <= 0 {
		return Config{}, fmt.Errorf("%w: ttlHours must be positive", ErrInvalidConfig)
	}
	if c.persistent && c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty when persistent", ErrInvalidConfig)
	}
	if c.prefetchConcurrency < 1 {
		return Config{}, fmt.Errorf("%w: prefetchConcurrency must be at least 1", ErrInvalidConfig)
	}

	return *c, nil
}

func (c Config) BaseURL() string {
	return c.baseURL
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) TTLHours() int {
	return c.ttlHours
}

// TTL returns the entry lifetime as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.ttlHours) * time.Hour
}

func (c Config) Persistent() bool {
	return c.persistent
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) PrefetchCategories() []string {
	categories := make([]string, len(c.prefetchCategories))
	copy(categories, c.prefetchCategories)
	return categories
}

func (c Config) PrefetchConcurrency() int {
	return c.prefetchConcurrency
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}
