package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	IndexChromem  = "chromem"
	IndexRedis    = "redis"
	IndexPgvector = "pgvector"
)

// Generation providers.
const (
	GenerationOpenAI  = "openai"
	GenerationBedrock = "bedrock"
)

// Retrieval strategies.
const (
	StrategyFilter  = "filter"
	StrategyAugment = "augment"
)

// Config holds the contextq configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Redis      RedisConfig      `yaml:"redis"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// TemplatesConfig locates the prompt template tree.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// RetrievalConfig selects how access scoping is applied.
type RetrievalConfig struct {
	Strategy string `yaml:"strategy"` // filter (default) | augment
	Pushdown bool   `yaml:"pushdown"`
}

// RedisConfig holds the connection shared by the redis index and the embedding cache.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Driver   string              `yaml:"driver"`
	Chromem  ChromemIndexConfig  `yaml:"chromem"`
	Redis    RedisIndexConfig    `yaml:"redis"`
	Postgres PostgresIndexConfig `yaml:"postgres"`
}

// ChromemIndexConfig points at a persisted chromem-go database.
type ChromemIndexConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// RedisIndexConfig describes the FT index layout.
type RedisIndexConfig struct {
	Name         string `yaml:"name"`
	VectorField  string `yaml:"vector_field"`
	ContentField string `yaml:"content_field"`
}

// PostgresIndexConfig holds the pgvector connection.
type PostgresIndexConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider         string      `yaml:"provider"`
	APIKey           string      `yaml:"api_key"`
	BaseURL          string      `yaml:"base_url"`
	Model            string      `yaml:"model"`
	Dimensions       int         `yaml:"dimensions"`
	QueryInstruction string      `yaml:"query_instruction"`
	Cache            CacheConfig `yaml:"cache"`
}

// CacheConfig enables the Redis embedding cache.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TTLSec    int    `yaml:"ttl_sec"` // 0 = no expiry
	KeyPrefix string `yaml:"key_prefix"`
}

// GenerationConfig selects the language model backend.
type GenerationConfig struct {
	Provider    string   `yaml:"provider"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Region      string   `yaml:"region"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"` // nil = backend default
	TimeoutSec  int      `yaml:"timeout_sec"` // 0 = no per-call deadline
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120 // local models answer slowly
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = "Prompt_Templates"
	}
	if c.Retrieval.Strategy == "" {
		c.Retrieval.Strategy = StrategyFilter
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Index.Driver == "" {
		c.Index.Driver = IndexChromem
	}
	if c.Index.Chromem.Path == "" {
		c.Index.Chromem.Path = "chroma"
	}
	if c.Index.Chromem.Collection == "" {
		c.Index.Chromem.Collection = "knowledge-base"
	}
	if c.Index.Redis.Name == "" {
		c.Index.Redis.Name = "knowledge-base:idx"
	}
	if c.Index.Postgres.Table == "" {
		c.Index.Postgres.Table = "chunks"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Cache.KeyPrefix == "" {
		c.Embedding.Cache.KeyPrefix = "contextq:emb_cache:"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = GenerationOpenAI
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Retrieval.Strategy {
	case StrategyFilter, StrategyAugment:
	default:
		return fmt.Errorf("retrieval.strategy must be %q or %q, got %q",
			StrategyFilter, StrategyAugment, c.Retrieval.Strategy)
	}

	switch c.Index.Driver {
	case IndexChromem:
	case IndexRedis:
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("redis.addrs is required for index.driver %q", IndexRedis)
		}
	case IndexPgvector:
		if c.Index.Postgres.DSN == "" {
			return fmt.Errorf("index.postgres.dsn is required for index.driver %q", IndexPgvector)
		}
	default:
		return fmt.Errorf("index.driver must be one of chromem, redis, pgvector, got %q", c.Index.Driver)
	}

	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Cache.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when embedding.cache.enabled")
	}

	switch c.Generation.Provider {
	case GenerationOpenAI, GenerationBedrock:
	default:
		return fmt.Errorf("generation.provider must be %q or %q, got %q",
			GenerationOpenAI, GenerationBedrock, c.Generation.Provider)
	}
	if c.Generation.TimeoutSec < 0 {
		return fmt.Errorf("generation.timeout_sec must not be negative")
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
