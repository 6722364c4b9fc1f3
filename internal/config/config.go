package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the shelf API configuration.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	Database       DatabaseConfig       `yaml:"database"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Search         SearchConfig         `yaml:"search"`
	Scoring        ScoringConfig        `yaml:"scoring"`
	Cache          CacheConfig          `yaml:"cache"`
	Popularity     PopularityConfig     `yaml:"popularity"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Breaker        BreakerConfig        `yaml:"breaker"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"`
}

// SearchConfig holds orchestrator settings.
type SearchConfig struct {
	CandidatePool    int `yaml:"candidate_pool"`
	InspirationLimit int `yaml:"inspiration_limit"`
	DefaultPageSize  int `yaml:"default_page_size"`
	MaxPageSize      int `yaml:"max_page_size"`
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// ScoringConfig holds relevance weights and boost parameters.
type ScoringConfig struct {
	VectorWeight       float64 `yaml:"vector_weight"`
	TextWeight         float64 `yaml:"text_weight"`
	PromoFactor        float64 `yaml:"promo_factor"`           // multiplier for promoted products, >= 1
	FreshnessBonus     float64 `yaml:"freshness_bonus"`        // additive bonus for just-updated products
	FreshnessWindowHrs int     `yaml:"freshness_window_hours"` // 0 disables freshness boost
}

// CacheConfig holds result cache TTLs.
type CacheConfig struct {
	SearchTTLSec int `yaml:"search_ttl_sec"`
	RecsTTLSec   int `yaml:"recs_ttl_sec"`
}

// PopularityConfig holds popular-search settings.
type PopularityConfig struct {
	MaxLimit     int `yaml:"max_limit"`
	DefaultLimit int `yaml:"default_limit"`
}

// RecommendationConfig holds recommendation engine settings.
type RecommendationConfig struct {
	HistoryLimit          int `yaml:"history_limit"`
	Limit                 int `yaml:"limit"`
	CandidatesPerCategory int `yaml:"candidates_per_category"`
	RequestTimeoutMs      int `yaml:"request_timeout_ms"`
}

// BreakerConfig holds catalog circuit breaker settings.
type BreakerConfig struct {
	MinRequests    uint32  `yaml:"min_requests"`
	FailureRatio   float64 `yaml:"failure_ratio"`
	OpenTimeoutSec int     `yaml:"open_timeout_sec"`
	IntervalSec    int     `yaml:"interval_sec"`
}

// RequestTimeout returns the search request timeout.
func (c SearchConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the recommendation request timeout.
func (c RecommendationConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 3600
	}
	if c.Search.CandidatePool <= 0 {
		c.Search.CandidatePool = 200
	}
	if c.Search.InspirationLimit < 0 {
		c.Search.InspirationLimit = 0
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.RequestTimeoutMs <= 0 {
		c.Search.RequestTimeoutMs = 5000
	}
	if c.Scoring.VectorWeight == 0 && c.Scoring.TextWeight == 0 {
		c.Scoring.VectorWeight = 0.7
		c.Scoring.TextWeight = 0.3
	}
	if c.Scoring.PromoFactor == 0 {
		c.Scoring.PromoFactor = 1.15
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 300
	}
	if c.Cache.RecsTTLSec <= 0 {
		c.Cache.RecsTTLSec = 600
	}
	if c.Popularity.MaxLimit <= 0 {
		c.Popularity.MaxLimit = 100
	}
	if c.Popularity.DefaultLimit <= 0 {
		c.Popularity.DefaultLimit = 10
	}
	if c.Recommendation.HistoryLimit <= 0 {
		c.Recommendation.HistoryLimit = 10
	}
	if c.Recommendation.Limit <= 0 {
		c.Recommendation.Limit = 10
	}
	if c.Recommendation.CandidatesPerCategory <= 0 {
		c.Recommendation.CandidatesPerCategory = 50
	}
	if c.Recommendation.RequestTimeoutMs <= 0 {
		c.Recommendation.RequestTimeoutMs = 5000
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 {
		c.Breaker.FailureRatio = 0.6
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.Scoring.VectorWeight < 0 || c.Scoring.TextWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Scoring.PromoFactor < 1 {
		return fmt.Errorf("scoring.promo_factor must be >= 1, got %g", c.Scoring.PromoFactor)
	}
	if c.Scoring.FreshnessBonus < 0 {
		return fmt.Errorf("scoring.freshness_bonus must be non-negative, got %g", c.Scoring.FreshnessBonus)
	}
	if c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %g", c.Breaker.FailureRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
