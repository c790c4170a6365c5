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

	"github.com/kailas-cloud/semsearch/internal/domain/search/mode"
)

// Config holds the semsearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Collection CollectionConfig `yaml:"collection"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	OpTimeoutSec     int      `yaml:"op_timeout_sec"`
}

// CollectionConfig describes the collection the service reads and writes.
type CollectionConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	DenseField      string `yaml:"dense_field"`
	LexicalField    string `yaml:"lexical_field"`
	Dimension       int    `yaml:"dimension"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	// IndexAlgorithm is "hnsw" (default) or "flat" for exact search on small corpora.
	IndexAlgorithm string `yaml:"index_algorithm"`
	// DenseOnly creates the collection without a lexical field.
	DenseOnly bool `yaml:"dense_only"`
}

// EmbeddingConfig selects and tunes the dense encoder.
type EmbeddingConfig struct {
	Backend   string       `yaml:"backend"` // local, remote
	BatchSize int          `yaml:"batch_size"`
	Cache     CacheConfig  `yaml:"cache"`
	Remote    RemoteConfig `yaml:"remote"`
	Local     LocalConfig  `yaml:"local"`
}

// CacheConfig toggles the embedding cache stored next to the collection.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// RemoteConfig points at an OpenAI-compatible embeddings endpoint.
type RemoteConfig struct {
	Client     string `yaml:"client"` // openai, langchaingo
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"` // requested output width, 0 = model default
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LocalConfig tunes the in-process hashing model.
type LocalConfig struct {
	NativeDim   int    `yaml:"native_dim"`
	NgramMin    int    `yaml:"ngram_min"`
	NgramMax    int    `yaml:"ngram_max"`
	WeightsFile string `yaml:"weights_file"`
}

// LexicalConfig tunes sparse encoding and scoring.
type LexicalConfig struct {
	Language       string  `yaml:"language"`
	K1             float64 `yaml:"k1"`
	B              float64 `yaml:"b"`
	AvgLen         float64 `yaml:"avg_len"`
	CandidatePage  int     `yaml:"candidate_page"`
	IDF            *bool   `yaml:"idf"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	DefaultMode    string `yaml:"default_mode"`
	DefaultTopK    int    `yaml:"default_top_k"`
	PointsLimit    int    `yaml:"points_limit"`
	PointsPageSize int    `yaml:"points_page_size"`
	RRFK           int    `yaml:"rrf_k"`
}

// IngestConfig tunes the batch loader.
type IngestConfig struct {
	BatchSize int    `yaml:"batch_size"`
	TextField string `yaml:"text_field"`
	IDField   string `yaml:"id_field"`
	Workers   int    `yaml:"workers"`
}

// Embedding backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Remote embedding clients.
const (
	ClientOpenAI     = "openai"
	ClientLangchain  = "langchaingo"
	defaultRemoteURL = "http://localhost:8080/v1"
)

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

// Parse expands env variables, decodes YAML, applies defaults and validates.
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.OpTimeoutSec <= 0 {
		c.Database.OpTimeoutSec = 5
	}

	if c.Collection.Name == "" {
		c.Collection.Name = "products"
	}
	if c.Collection.KeyPrefix == "" {
		c.Collection.KeyPrefix = "semsearch:"
	}
	if c.Collection.DenseField == "" {
		c.Collection.DenseField = "dense"
	}
	if c.Collection.LexicalField == "" && !c.Collection.DenseOnly {
		c.Collection.LexicalField = "lexical"
	}
	if c.Collection.Dimension == 0 {
		c.Collection.Dimension = 512
	}
	if c.Collection.IndexAlgorithm == "" {
		c.Collection.IndexAlgorithm = "hnsw"
	}
	if c.Collection.HNSWM <= 0 {
		c.Collection.HNSWM = 16
	}
	if c.Collection.HNSWEFConstruct <= 0 {
		c.Collection.HNSWEFConstruct = 200
	}

	if c.Embedding.Backend == "" {
		c.Embedding.Backend = BackendLocal
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.Remote.Client == "" {
		c.Embedding.Remote.Client = ClientOpenAI
	}
	if c.Embedding.Remote.TimeoutSec <= 0 {
		c.Embedding.Remote.TimeoutSec = 30
	}
	if c.Embedding.Local.NativeDim == 0 {
		c.Embedding.Local.NativeDim = 1024
	}
	if c.Embedding.Local.NgramMin == 0 {
		c.Embedding.Local.NgramMin = 3
	}
	if c.Embedding.Local.NgramMax == 0 {
		c.Embedding.Local.NgramMax = 5
	}

	if c.Lexical.Language == "" {
		c.Lexical.Language = "english"
	}
	if c.Lexical.K1 <= 0 {
		c.Lexical.K1 = 1.2
	}
	if c.Lexical.B == 0 {
		c.Lexical.B = 0.75
	}
	if c.Lexical.AvgLen <= 0 {
		c.Lexical.AvgLen = 256
	}
	if c.Lexical.CandidatePage <= 0 {
		c.Lexical.CandidatePage = 1000
	}
	if c.Lexical.IDF == nil {
		on := true
		c.Lexical.IDF = &on
	}

	if c.Search.DefaultMode == "" {
		c.Search.DefaultMode = string(mode.Sparse)
	}
	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.PointsLimit == 0 {
		c.Search.PointsLimit = 500
	}
	if c.Search.PointsPageSize == 0 {
		c.Search.PointsPageSize = 100
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}

	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 32
	}
	if c.Ingest.TextField == "" {
		c.Ingest.TextField = "text"
	}
}

// Validate checks the configuration for correctness.
//
//nolint:gocyclo // flat list of checks
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Collection.Dimension <= 0 {
		return fmt.Errorf("collection.dimension must be positive, got %d", c.Collection.Dimension)
	}
	switch c.Collection.IndexAlgorithm {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("collection.index_algorithm must be \"hnsw\" or \"flat\", got %q", c.Collection.IndexAlgorithm)
	}

	switch c.Embedding.Backend {
	case BackendLocal:
		if c.Embedding.Local.NativeDim < c.Collection.Dimension {
			return fmt.Errorf("embedding.local.native_dim (%d) must be at least collection.dimension (%d)",
				c.Embedding.Local.NativeDim, c.Collection.Dimension)
		}
		if c.Embedding.Local.NgramMin < 1 || c.Embedding.Local.NgramMax < c.Embedding.Local.NgramMin {
			return fmt.Errorf("embedding.local ngram range [%d, %d] is invalid",
				c.Embedding.Local.NgramMin, c.Embedding.Local.NgramMax)
		}
	case BackendRemote:
		switch c.Embedding.Remote.Client {
		case ClientOpenAI, ClientLangchain:
		default:
			return fmt.Errorf("embedding.remote.client must be %q or %q, got %q",
				ClientOpenAI, ClientLangchain, c.Embedding.Remote.Client)
		}
		if c.Embedding.Remote.BaseURL == "" {
			return fmt.Errorf("embedding.remote.base_url is required for the remote backend")
		}
		if c.Embedding.Remote.Model == "" {
			return fmt.Errorf("embedding.remote.model is required for the remote backend")
		}
	default:
		return fmt.Errorf("embedding.backend must be %q or %q, got %q",
			BackendLocal, BackendRemote, c.Embedding.Backend)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}

	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return fmt.Errorf("lexical.b must be within [0, 1], got %g", c.Lexical.B)
	}

	m, err := mode.Parse(c.Search.DefaultMode, "")
	if err != nil {
		return fmt.Errorf("search.default_mode: %w", err)
	}
	if c.Collection.DenseOnly && m.NeedsSparse() {
		return fmt.Errorf("search.default_mode %q needs a lexical field but collection.dense_only is set", m)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Search.PointsLimit <= 0 || c.Search.PointsPageSize <= 0 {
		return fmt.Errorf("search.points_limit and search.points_page_size must be positive")
	}

	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	return nil
}

// DefaultMode returns the parsed default search mode. Call after Validate.
func (c *Config) DefaultMode() mode.Mode {
	m, _ := mode.Parse(c.Search.DefaultMode, mode.Sparse)
	return m
}

// OpTimeout is the per-call store deadline.
func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.Database.OpTimeoutSec) * time.Second
}

// CacheTTL is the embedding cache entry lifetime; zero keeps entries forever.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Embedding.Cache.TTLSec) * time.Second
}

// RemoteTimeout bounds one remote embedding request.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Embedding.Remote.TimeoutSec) * time.Second
}

// ModelName identifies the dense model in metrics, cache keys and health output.
func (c *Config) ModelName() string {
	if c.Embedding.Backend == BackendRemote {
		return c.Embedding.Remote.Model
	}
	return fmt.Sprintf("hashing-%d", c.Embedding.Local.NativeDim)
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
