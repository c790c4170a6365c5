// Package bootstrap assembles the store, encoders and gateway from config.
// Both binaries and the in-process SDK share it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/embedding"
	"github.com/kailas-cloud/semsearch/internal/embedding/local"
	"github.com/kailas-cloud/semsearch/internal/lexical"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/repository/vectorstore"
	"github.com/kailas-cloud/semsearch/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// App holds the wired components. Call Close when done.
type App struct {
	Config  config.Config
	Store   *dbRedis.Store
	Gateway *vectorstore.Gateway
	Dense   *embedding.Provider
	Lexical *lexical.Encoder
	// Want is the configured schema; Schema is the effective one after Ensure.
	Want   collection.Schema
	Schema collection.Schema
	logger *zap.Logger
}

// New connects to the store and builds the encoders. Nothing is loaded or
// created yet: see WaitForStore, Warmup and Ensure.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterStoreMetrics()

	lexicalField := cfg.Collection.LexicalField
	if cfg.Collection.DenseOnly {
		lexicalField = ""
	}
	want, err := collection.New(cfg.Collection.Name, cfg.Collection.DenseField,
		cfg.Collection.Dimension, lexicalField)
	if err != nil {
		return nil, fmt.Errorf("collection config: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		Flavor:   dbRedis.Flavor(cfg.Database.Driver),
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	backend, err := buildBackend(&cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	gw := vectorstore.New(store, vectorstore.Config{
		KeyPrefix: cfg.Collection.KeyPrefix,
		OpTimeout: cfg.OpTimeout(),
		HNSW: vectorstore.HNSWConfig{
			M:           cfg.Collection.HNSWM,
			EFConstruct: cfg.Collection.HNSWEFConstruct,
			Flat:        cfg.Collection.IndexAlgorithm == "flat",
		},
		CandidatePage: cfg.Lexical.CandidatePage,
		IDF:           *cfg.Lexical.IDF,
	})

	lex := lexical.New(lexical.Config{
		Language: cfg.Lexical.Language,
		K1:       cfg.Lexical.K1,
		B:        cfg.Lexical.B,
		AvgLen:   cfg.Lexical.AvgLen,
	}, logger)

	logger.Info("Encoders created",
		zap.String("backend", cfg.Embedding.Backend),
		zap.String("model", cfg.ModelName()),
		zap.Int("dimension", cfg.Collection.Dimension),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
		zap.String("language", cfg.Lexical.Language),
	)

	return &App{
		Config:  cfg,
		Store:   store,
		Gateway: gw,
		Dense:   embedding.NewProvider(backend, cfg.Collection.Dimension, logger),
		Lexical: lex,
		Want:    want,
		Schema:  want,
		logger:  logger,
	}, nil
}

// buildBackend assembles the decorator chain: backend -> Instrumented -> Cached.
func buildBackend(cfg *config.Config, store *dbRedis.Store, logger *zap.Logger) (embedding.Backend, error) {
	var (
		base embedding.Backend
		name string
	)
	switch cfg.Embedding.Backend {
	case config.BackendLocal:
		name = "local"
		base = local.New(local.Config{
			NativeDim:   cfg.Embedding.Local.NativeDim,
			NgramMin:    cfg.Embedding.Local.NgramMin,
			NgramMax:    cfg.Embedding.Local.NgramMax,
			WeightsFile: cfg.Embedding.Local.WeightsFile,
		}, logger)
	case config.BackendRemote:
		name = cfg.Embedding.Remote.Client
		switch cfg.Embedding.Remote.Client {
		case config.ClientLangchain:
			lc, err := langchain.NewEmbedder(&langchain.Config{
				BaseURL: cfg.Embedding.Remote.BaseURL,
				APIKey:  cfg.Embedding.Remote.APIKey,
				Model:   cfg.Embedding.Remote.Model,
				Timeout: cfg.RemoteTimeout(),
				Logger:  logger,
			})
			if err != nil {
				return nil, fmt.Errorf("create langchaingo embedder: %w", err)
			}
			base = lc
		default:
			base = openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:     cfg.Embedding.Remote.APIKey,
				BaseURL:    cfg.Embedding.Remote.BaseURL,
				Model:      cfg.Embedding.Remote.Model,
				Dimensions: cfg.Embedding.Remote.Dimensions,
				Timeout:    cfg.RemoteTimeout(),
				Logger:     logger,
			})
		}
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}

	var backend embedding.Backend = embedding.NewInstrumented(base, name, cfg.ModelName(), logger)
	if cfg.Embedding.Cache.Enabled {
		backend = embcache.New(backend, store, embcache.Config{
			KeyPrefix: cfg.Collection.KeyPrefix,
			Backend:   name,
			Model:     cfg.ModelName(),
			TTL:       cfg.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}
	return backend, nil
}

// Close releases the store connection.
func (a *App) Close() { a.Store.Close() }

// WaitForStore blocks until the store answers PING.
func (a *App) WaitForStore(ctx context.Context) error {
	timeout := time.Duration(a.Config.Database.ReadinessTimeout) * time.Second
	if err := a.Store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// Warmup loads the local dense model and builds the lexical analyzer. A
// lexical failure is fatal only when the default search mode needs it.
func (a *App) Warmup(ctx context.Context) error {
	if a.Config.Embedding.Backend == config.BackendLocal {
		start := time.Now()
		if err := a.Dense.HealthCheck(ctx); err != nil {
			return fmt.Errorf("load dense model: %w", err)
		}
		a.logger.Info("Dense model loaded", zap.Duration("duration", time.Since(start)))
	}

	if err := a.Lexical.HealthCheck(ctx); err != nil {
		if a.Config.DefaultMode().NeedsSparse() {
			return fmt.Errorf("load lexical encoder: %w", err)
		}
		a.logger.Warn("Lexical encoder unavailable, sparse search will fail", zap.Error(err))
	}
	return nil
}

// Ensure creates or validates the collection and records the effective schema.
func (a *App) Ensure(ctx context.Context) (collection.Schema, error) {
	schema, err := a.Gateway.EnsureCollection(ctx, a.Want)
	if err != nil {
		return collection.Schema{}, fmt.Errorf("ensure collection: %w", err)
	}
	if !schema.HasLexical() {
		a.logger.Warn("Collection has no lexical field: sparse search and sparse writes are disabled",
			zap.String("collection", schema.Name()))
	}
	a.Schema = schema
	return schema, nil
}

// SearchService builds the retrieval orchestrator over the effective schema.
func (a *App) SearchService() *searchuc.Service {
	return searchuc.New(a.Gateway, a.Dense, a.Lexical, a.Schema, searchuc.Config{
		DefaultMode: a.Config.DefaultMode(),
		DefaultTopK: a.Config.Search.DefaultTopK,
		RRFK:        a.Config.Search.RRFK,
	})
}

// DocumentService builds add_document and points listing.
func (a *App) DocumentService() *documentuc.Service {
	return documentuc.New(a.Gateway, a.Dense, a.Lexical, a.Schema, documentuc.Config{
		TextField:      a.Config.Ingest.TextField,
		PointsLimit:    a.Config.Search.PointsLimit,
		PointsPageSize: a.Config.Search.PointsPageSize,
	})
}

// HealthService builds the health reporter.
func (a *App) HealthService() *healthuc.Service {
	return healthuc.New(a.Store, a.Gateway, a.Schema,
		map[string]healthuc.Checker{"dense": a.Dense, "lexical": a.Lexical},
		healthuc.Info{
			Mode:    string(a.Config.DefaultMode()),
			Backend: a.Config.Embedding.Backend,
			Model:   a.Config.ModelName(),
		})
}

// IngestPipeline builds the batch loader. Call Release on the result.
func (a *App) IngestPipeline(textField string, batchSize int) (*ingest.Pipeline, error) {
	if textField == "" {
		textField = a.Config.Ingest.TextField
	}
	if batchSize <= 0 {
		batchSize = a.Config.Ingest.BatchSize
	}
	p, err := ingest.New(a.Gateway, a.Dense, a.Lexical, a.Want, ingest.Config{
		BatchSize:       batchSize,
		EncodeBatchSize: a.Config.Embedding.BatchSize,
		TextField:       textField,
		IDField:         a.Config.Ingest.IDField,
		Workers:         a.Config.Ingest.Workers,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest pipeline: %w", err)
	}
	return p, nil
}
