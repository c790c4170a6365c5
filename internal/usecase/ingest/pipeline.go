// Package ingest loads records into the vector store in fixed-size batches.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// DefaultBatchSize is the number of records encoded and written per step.
const DefaultBatchSize = 32

// Config tunes the pipeline.
type Config struct {
	BatchSize int
	TextField string

	// EncodeBatchSize splits a batch into dense encoder calls; defaults to BatchSize.
	EncodeBatchSize int
	// IDField, when set, takes record ids from that payload field; records
	// without it get a generated id.
	IDField string
	// Workers bounds concurrent sparse encodes inside one batch.
	Workers int
}

// Progress is reported after every committed batch.
type Progress struct {
	Batch    int
	Batches  int
	Ingested int
	Total    int
}

// Pipeline validates, encodes and upserts records.
type Pipeline struct {
	gw     Gateway
	dense  DenseEncoder
	sparse SparseEncoder
	want   collection.Schema
	cfg    Config
	pool   *ants.Pool
	newID  func() string
	logger *zap.Logger
}

// New creates a pipeline. Call Release when done.
func New(
	gw Gateway, dense DenseEncoder, sparse SparseEncoder,
	want collection.Schema, cfg Config, logger *zap.Logger,
) (*Pipeline, error) {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EncodeBatchSize < 1 {
		cfg.EncodeBatchSize = cfg.BatchSize
	}
	if cfg.TextField == "" {
		cfg.TextField = domdoc.DefaultTextField
	}
	if cfg.Workers < 1 {
		cfg.Workers = max(runtime.NumCPU(), 1)
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create sparse worker pool: %w", err)
	}
	return &Pipeline{
		gw: gw, dense: dense, sparse: sparse, want: want,
		cfg: cfg, pool: pool, newID: uuid.NewString, logger: logger,
	}, nil
}

// Release stops the worker pool.
func (p *Pipeline) Release() { p.pool.Release() }

// Ingest validates every record up front, then encodes and writes them batch
// by batch. Any failure stops the run and returns a *PartialError carrying the
// number of records committed so far. Cancellation is checked between batches;
// a started batch runs to completion.
func (p *Pipeline) Ingest(
	ctx context.Context, records []domdoc.Payload, onProgress func(Progress),
) (int, error) {
	docs, err := p.prepare(records)
	if err != nil {
		return 0, &PartialError{Err: domain.AtStage(domain.StageValidate, err)}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	col, err := p.gw.EnsureCollection(ctx, p.want)
	if err != nil {
		return 0, &PartialError{Err: fmt.Errorf("ensure collection: %w", err)}
	}
	if !col.HasLexical() {
		p.logger.Warn("Collection has no lexical field, writing dense vectors only",
			zap.String("collection", col.Name()))
	}

	batches := (len(docs) + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	ingested := 0
	for b := range batches {
		if err := ctx.Err(); err != nil {
			return ingested, &PartialError{Ingested: ingested, Err: fmt.Errorf("ingest canceled: %w", err)}
		}

		start := b * p.cfg.BatchSize
		end := min(start+p.cfg.BatchSize, len(docs))
		batchStart := time.Now()
		if err := p.ingestBatch(context.WithoutCancel(ctx), col, docs[start:end]); err != nil {
			p.logger.Error("Ingest batch failed",
				zap.Int("batch", b+1),
				zap.Int("ingested", ingested),
				zap.Error(err),
			)
			return ingested, &PartialError{Ingested: ingested, Err: fmt.Errorf("batch %d: %w", b+1, err)}
		}

		ingested += end - start
		metrics.IngestRecordsTotal.Add(float64(end - start))
		p.logger.Debug("Ingest batch committed",
			zap.String("collection", col.Name()),
			zap.Int("batch", b+1),
			zap.Int("count", end-start),
			zap.Duration("duration", time.Since(batchStart)),
		)
		if onProgress != nil {
			onProgress(Progress{Batch: b + 1, Batches: batches, Ingested: ingested, Total: len(docs)})
		}
	}
	return ingested, nil
}

// prepare turns every payload into a Document or fails on the first bad record.
func (p *Pipeline) prepare(records []domdoc.Payload) ([]domdoc.Document, error) {
	docs := make([]domdoc.Document, len(records))
	for i, rec := range records {
		id := ""
		if p.cfg.IDField != "" {
			if v, ok := rec.Text(p.cfg.IDField); ok {
				id = v
			}
		}
		if id == "" {
			id = p.newID()
		}
		doc, err := domdoc.New(id, rec, p.cfg.TextField)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", domain.ErrValidation, i, err)
		}
		docs[i] = doc
	}
	return docs, nil
}

// ingestBatch encodes the texts densely in EncodeBatchSize chunks, sparsely
// one text per worker, then upserts the batch.
func (p *Pipeline) ingestBatch(ctx context.Context, col collection.Schema, docs []domdoc.Document) error {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text()
	}

	dense, err := p.dense.EncodeDense(ctx, texts, p.cfg.EncodeBatchSize)
	if err != nil {
		return fmt.Errorf("encode dense: %w", err)
	}

	sparse := make([]vector.Sparse, len(texts))
	if col.HasLexical() {
		if sparse, err = p.encodeSparse(ctx, texts); err != nil {
			return fmt.Errorf("encode sparse: %w", err)
		}
	}

	records := make([]domdoc.VectorRecord, len(docs))
	for i := range docs {
		rec, err := domdoc.NewVectorRecord(&docs[i], dense[i], sparse[i])
		if err != nil {
			return domain.AtStage(domain.StageEncodeSparse, fmt.Errorf("%w: %w", domain.ErrEncodingUnavailable, err))
		}
		records[i] = rec
	}

	if err := p.gw.Upsert(ctx, col, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (p *Pipeline) encodeSparse(ctx context.Context, texts []string) ([]vector.Sparse, error) {
	out := make([]vector.Sparse, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			out[i], errs[i] = p.sparse.EncodeSparse(ctx, text)
		}); err != nil {
			wg.Done()
			errs[i] = domain.AtStage(domain.StageEncodeSparse,
				fmt.Errorf("%w: submit: %w", domain.ErrEncodingUnavailable, err))
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err //nolint:wrapcheck // caller wraps
	}
	return out, nil
}
