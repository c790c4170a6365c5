package semsearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg        config.Config
	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithConfig starts from a fully loaded service config (see config.Load).
// Options given after it override individual fields.
func WithConfig(cfg config.Config) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg = cfg
	})
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = "valkey"
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithRedis configures the client to connect to a Redis Stack instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = "redis"
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithCollection sets the collection name and dense dimension D.
func WithCollection(name string, dimension int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Collection.Name = name
		c.cfg.Collection.Dimension = dimension
	})
}

// WithDenseOnly creates the collection without a lexical field.
// Sparse and hybrid searches then fail with a schema mismatch.
func WithDenseOnly() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Collection.DenseOnly = true
	})
}

// WithLocalEmbedding selects the in-process hashing encoder.
// nativeDim 0 keeps the default width.
func WithLocalEmbedding(nativeDim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Backend = config.BackendLocal
		c.cfg.Embedding.Local.NativeDim = nativeDim
	})
}

// WithRemoteEmbedding selects an OpenAI-compatible /embeddings endpoint.
func WithRemoteEmbedding(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Backend = config.BackendRemote
		c.cfg.Embedding.Remote.BaseURL = baseURL
		c.cfg.Embedding.Remote.APIKey = apiKey
		c.cfg.Embedding.Remote.Model = model
	})
}

// WithEmbeddingCache caches dense embeddings in the store for ttlSec seconds.
func WithEmbeddingCache(ttlSec int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Cache.Enabled = true
		c.cfg.Embedding.Cache.TTLSec = ttlSec
	})
}

// WithDefaultMode sets the mode used when Search is called without Mode.
func WithDefaultMode(m string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.DefaultMode = m
	})
}

// WithTextField names the payload field that carries the text to embed.
func WithTextField(field string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Ingest.TextField = field
	})
}

// WithIDField takes record ids from this payload field during Ingest.
// Records without it get a generated id.
func WithIDField(field string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Ingest.IDField = field
	})
}

// WithLogger enables structured logging. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
