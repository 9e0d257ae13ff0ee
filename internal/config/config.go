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

// Backend drivers.
const (
	DriverBleve  = "bleve"
	DriverRedis  = "redis"
	DriverRemote = "remote"
)

// Redis search modes.
const (
	ModeKeyword  = "keyword"
	ModeSemantic = "semantic"
)

// Config holds the blendex configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Blending    BlendingConfig    `yaml:"blending"`
	Facets      []FacetRule       `yaml:"facets"`
	Translation TranslationConfig `yaml:"translation"`
	Backends    BackendsConfig    `yaml:"backends"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
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
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxBatchSize    int `yaml:"max_batch_size"`
}

// BlendingConfig tunes the interleave. Zero values keep engine defaults.
type BlendingConfig struct {
	BlendLimit    int  `yaml:"blend_limit"`
	BlockSize     int  `yaml:"block_size"`
	BoostPosition *int `yaml:"boost_position"` // unset = block_size
	BoostCount    int  `yaml:"boost_count"`
}

// FacetRule maps a secondary facet field onto a primary one.
type FacetRule struct {
	Primary      string            `yaml:"primary"`
	Secondary    string            `yaml:"secondary"`
	Values       map[string]string `yaml:"values"`
	Hierarchical bool              `yaml:"hierarchical"`
}

// TranslationConfig holds primary -> secondary search field renames.
type TranslationConfig struct {
	Fields map[string]string `yaml:"fields"`
}

// BackendsConfig holds both sides of the blend.
type BackendsConfig struct {
	Primary   BackendConfig `yaml:"primary"`
	Secondary BackendConfig `yaml:"secondary"`
}

// BackendConfig describes one search backend. Fields apply per driver.
type BackendConfig struct {
	Driver string `yaml:"driver"` // bleve, redis, remote

	// bleve
	Path string `yaml:"path"` // empty = in-memory

	// redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Index            string   `yaml:"index"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Mode             string   `yaml:"mode"` // keyword (default), semantic
	KNN              int      `yaml:"knn"`  // semantic mode neighbour count

	// bleve, redis
	TextFields    []string `yaml:"text_fields"` // full-text fields besides title
	NumericFields []string `yaml:"numeric_fields"`
	FacetFields   []string `yaml:"facet_fields"`
	FacetSize     int      `yaml:"facet_size"`

	// remote
	URL        string  `yaml:"url"`
	APIKey     string  `yaml:"api_key"`
	RateLimit  float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst      int     `yaml:"burst"`
	TimeoutSec int     `yaml:"timeout_sec"`

	// CacheSize enables an LRU retrieve cache when positive.
	CacheSize int `yaml:"cache_size"`
}

// EmbeddingConfig holds the OpenAI-compatible provider used by semantic redis backends.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`

	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours"`
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
	return Parse(data)
}

// Parse decodes YAML, expands env variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.DefaultPageSize <= 0 {
		c.HTTP.DefaultPageSize = 20
	}
	if c.HTTP.MaxPageSize <= 0 {
		c.HTTP.MaxPageSize = 100
	}
	if c.HTTP.MaxBatchSize <= 0 {
		c.HTTP.MaxBatchSize = 100
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 720
	}
	c.Backends.Primary.applyDefaults("primary")
	c.Backends.Secondary.applyDefaults("secondary")
}

func (b *BackendConfig) applyDefaults(role string) {
	switch b.Driver {
	case DriverRedis:
		if b.ReadinessTimeout <= 0 {
			b.ReadinessTimeout = 10
		}
		if b.Index == "" {
			b.Index = "blendex_" + role
		}
		if b.KeyPrefix == "" {
			b.KeyPrefix = "blendex:" + role + ":"
		}
		if b.Mode == "" {
			b.Mode = ModeKeyword
		}
		if b.KNN <= 0 {
			b.KNN = 100
		}
	case DriverRemote:
		if b.TimeoutSec <= 0 {
			b.TimeoutSec = 10
		}
		if b.RateLimit > 0 && b.Burst <= 0 {
			b.Burst = 1
		}
	}
	if b.FacetSize <= 0 {
		b.FacetSize = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.DefaultPageSize > c.HTTP.MaxPageSize {
		return fmt.Errorf("http.default_page_size (%d) exceeds http.max_page_size (%d)",
			c.HTTP.DefaultPageSize, c.HTTP.MaxPageSize)
	}
	b := c.Blending
	if b.BlendLimit < 0 || b.BlockSize < 0 || b.BoostCount < 0 {
		return fmt.Errorf("blending values must be non-negative")
	}
	if b.BoostPosition != nil && *b.BoostPosition < 0 {
		return fmt.Errorf("blending.boost_position must be non-negative, got %d", *b.BoostPosition)
	}
	if err := c.Backends.Primary.validate("backends.primary"); err != nil {
		return err
	}
	if err := c.Backends.Secondary.validate("backends.secondary"); err != nil {
		return err
	}
	if c.needsEmbedding() {
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for semantic backends")
		}
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions is required for semantic backends")
		}
	}
	return nil
}

func (b *BackendConfig) validate(path string) error {
	switch b.Driver {
	case DriverBleve:
	case DriverRedis:
		if len(b.Addrs) == 0 {
			return fmt.Errorf("%s.addrs is required", path)
		}
		switch b.Mode {
		case ModeKeyword, ModeSemantic:
		default:
			return fmt.Errorf("%s.mode must be \"keyword\" or \"semantic\", got %q", path, b.Mode)
		}
	case DriverRemote:
		if b.URL == "" {
			return fmt.Errorf("%s.url is required", path)
		}
		if b.RateLimit < 0 {
			return fmt.Errorf("%s.rate_limit must be non-negative", path)
		}
	default:
		return fmt.Errorf("%s.driver must be one of bleve, redis, remote, got %q", path, b.Driver)
	}
	return nil
}

func (c *Config) needsEmbedding() bool {
	for _, b := range []BackendConfig{c.Backends.Primary, c.Backends.Secondary} {
		if b.Driver == DriverRedis && b.Mode == ModeSemantic {
			return true
		}
	}
	return false
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
