package semsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/bootstrap"
	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/source"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer. Use errors.Is to check.
var (
	ErrValidation          = domain.ErrValidation
	ErrEncodingUnavailable = domain.ErrEncodingUnavailable
	ErrStoreUnavailable    = domain.ErrStoreUnavailable
	ErrSchemaMismatch      = domain.ErrSchemaMismatch
	ErrNotImplemented      = domain.ErrNotImplemented
)

// Stage returns the pipeline step recorded in err ("encode_dense", "query", ...).
func Stage(err error) string {
	s, _ := domain.StageOf(err)
	return string(s)
}

// Internal interfaces so tests can swap the wired services.
type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
}

type documentUseCase interface {
	Add(ctx context.Context, text string) (string, error)
	ListPoints(ctx context.Context, limit int) ([]documentuc.Point, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type ingester interface {
	Ingest(ctx context.Context, records []domdoc.Payload, onProgress func(ingest.Progress)) (int, error)
	Release()
}

// Client is the semsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	app       *bootstrap.App
	textField string
	searchSvc searchUseCase
	docSvc    documentUseCase
	healthSvc healthUseCase
	ingestSvc ingester
	obs       *observer
}

// New connects to the store, loads the encoders and ensures the collection.
// The provided context bounds the readiness wait and warmup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}
	cc.cfg.ApplyDefaults()
	if err := cc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("semsearch: %w", err)
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	app, err := bootstrap.New(cc.cfg, obs.logger)
	if err != nil {
		return nil, fmt.Errorf("semsearch: %w", err)
	}
	if err := start(ctx, app); err != nil {
		app.Close()
		return nil, fmt.Errorf("semsearch: %w", err)
	}

	pipeline, err := app.IngestPipeline("", 0)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("semsearch: %w", err)
	}

	return &Client{
		app:       app,
		textField: cc.cfg.Ingest.TextField,
		searchSvc: app.SearchService(),
		docSvc:    app.DocumentService(),
		healthSvc: app.HealthService(),
		ingestSvc: pipeline,
		obs:       obs,
	}, nil
}

func start(ctx context.Context, app *bootstrap.App) error {
	if err := app.WaitForStore(ctx); err != nil {
		return err
	}
	if err := app.Warmup(ctx); err != nil {
		return err
	}
	_, err := app.Ensure(ctx)
	return err
}

// Close releases the worker pool and the store connection.
func (c *Client) Close() {
	if c.ingestSvc != nil {
		c.ingestSvc.Release()
	}
	if c.app != nil {
		c.app.Close()
	}
}

// SearchOption tunes a single Search call.
type SearchOption func(*searchuc.Request)

// TopK caps the number of results. Values below 1 are rejected.
func TopK(k int) SearchOption {
	return func(r *searchuc.Request) { r.TopK = &k }
}

// Mode selects "dense", "sparse" or "hybrid". Empty uses the configured default.
func Mode(m string) SearchOption {
	return func(r *searchuc.Request) { r.Mode = m }
}

// Search runs a query and returns hits in descending score order.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (_ SearchResponse, err error) {
	defer func(start time.Time) { c.obs.observe("search", start, err) }(time.Now())

	req := searchuc.Request{Query: query}
	for _, o := range opts {
		o(&req)
	}
	resp, err := c.searchSvc.Search(c.withLogger(ctx), req)
	if err != nil {
		return SearchResponse{}, err
	}
	return searchResponseFromDomain(resp), nil
}

// Add embeds text, stores it and returns the generated id.
func (c *Client) Add(ctx context.Context, text string) (_ string, err error) {
	defer func(start time.Time) { c.obs.observe("add", start, err) }(time.Now())
	return c.docSvc.Add(c.withLogger(ctx), text)
}

// Points exports up to limit records with their dense vectors.
// limit 0 uses the configured default.
func (c *Client) Points(ctx context.Context, limit int) (_ []Point, err error) {
	defer func(start time.Time) { c.obs.observe("points", start, err) }(time.Now())

	pts, err := c.docSvc.ListPoints(c.withLogger(ctx), limit)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	return out, nil
}

// Ingest loads records in batches. Every record must carry a string under
// the configured text field. On failure the returned count is the number of
// records committed before the run stopped.
func (c *Client) Ingest(ctx context.Context, records []map[string]any, onProgress func(Progress)) (_ int, err error) {
	defer func(start time.Time) { c.obs.observe("ingest", start, err) }(time.Now())

	payloads := make([]domdoc.Payload, len(records))
	for i, r := range records {
		payloads[i] = r
	}
	var cb func(ingest.Progress)
	if onProgress != nil {
		cb = func(p ingest.Progress) {
			onProgress(Progress{Batch: p.Batch, Batches: p.Batches, Ingested: p.Ingested, Total: p.Total})
		}
	}

	n, err := c.ingestSvc.Ingest(c.withLogger(ctx), payloads, cb)
	var pe *ingest.PartialError
	if errors.As(err, &pe) {
		return pe.Ingested, pe.Err
	}
	return n, err
}

// IngestFile loads records from a JSON, JSONL, CSV or Parquet file, or from
// every file a glob such as "data/**/*.jsonl" matches, and ingests them.
func (c *Client) IngestFile(ctx context.Context, pattern string, onProgress func(Progress)) (int, error) {
	payloads, err := source.Load(pattern, c.textField)
	if err != nil {
		c.obs.observe("ingest_file", time.Now(), err)
		return 0, err
	}
	records := make([]map[string]any, len(payloads))
	for i, p := range payloads {
		records[i] = p
	}
	c.obs.logger.Info("Records loaded", zap.String("pattern", pattern), zap.Int("records", len(records)))
	return c.Ingest(ctx, records, onProgress)
}

// Health pings the store and reports the collection summary.
func (c *Client) Health(ctx context.Context) HealthStatus {
	return healthFromDomain(c.healthSvc.Check(c.withLogger(ctx)))
}

// withLogger lets the services log through the client's logger unless the
// caller already put one in ctx.
func (c *Client) withLogger(ctx context.Context) context.Context {
	return logger.WithFallback(ctx, c.obs.logger)
}
