// Package search is the retrieval orchestrator: it picks the encoders for a
// mode, queries the vector store and shapes the ranked results.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// DefaultTopK is used when the caller does not supply top_k.
const DefaultTopK = 5

// Config holds search defaults.
type Config struct {
	DefaultMode mode.Mode
	DefaultTopK int
	RRFK        int
}

// Request is a search call. Nil TopK and empty Mode take the configured defaults.
type Request struct {
	Query string
	TopK  *int
	Mode  string
}

// Response carries the ranked results and the query representation that produced them.
type Response struct {
	Query       string
	Mode        mode.Mode
	Results     []result.Result
	QueryVector result.QueryVector
}

// Service handles search across dense, sparse and hybrid modes.
type Service struct {
	gw     Gateway
	dense  DenseEncoder
	sparse SparseEncoder
	schema collection.Schema
	cfg    Config
}

// New creates a search service over one collection.
func New(gw Gateway, dense DenseEncoder, sparse SparseEncoder, schema collection.Schema, cfg Config) *Service {
	if !cfg.DefaultMode.IsValid() {
		cfg.DefaultMode = mode.Sparse
	}
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.RRFK < 1 {
		cfg.RRFK = DefaultRRFK
	}
	return &Service{gw: gw, dense: dense, sparse: sparse, schema: schema, cfg: cfg}
}

// DefaultMode returns the mode used when a request does not name one.
func (s *Service) DefaultMode() mode.Mode { return s.cfg.DefaultMode }

// Search validates the request, encodes the query for the selected mode and
// returns results in descending score order. Invalid input is rejected before
// any encoder or store call.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	m, topK, err := s.validate(req)
	if err != nil {
		return Response{}, domain.AtStage(domain.StageValidate, err)
	}

	start := time.Now()
	resp := Response{Query: req.Query, Mode: m}

	switch m {
	case mode.Dense:
		resp.Results, resp.QueryVector, err = s.searchDense(ctx, req.Query, topK)
	case mode.Sparse:
		resp.Results, resp.QueryVector, err = s.searchSparse(ctx, req.Query, topK)
	case mode.Hybrid:
		resp.Results, resp.QueryVector, err = s.searchHybrid(ctx, req.Query, topK)
	default:
		err = domain.AtStage(domain.StageValidate, domain.Validationf("unsupported search mode %q", m))
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(m), metrics.StatusLabel(err)).Inc()
	if err != nil {
		return Response{}, err
	}

	logger.FromContext(ctx).Debug("Search completed",
		zap.String("collection", s.schema.Name()),
		zap.String("mode", string(m)),
		zap.Int("top_k", topK),
		zap.Int("results", len(resp.Results)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *Service) validate(req Request) (mode.Mode, int, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", 0, domain.Validationf("query must not be empty")
	}
	topK := s.cfg.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 1 {
		return "", 0, domain.Validationf("top_k must be >= 1, got %d", topK)
	}
	m, err := mode.Parse(req.Mode, s.cfg.DefaultMode)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return m, topK, nil
}

func (s *Service) searchDense(
	ctx context.Context, query string, topK int,
) ([]result.Result, result.QueryVector, error) {
	vecs, err := s.dense.EncodeDense(ctx, []string{query}, 1)
	if err != nil {
		return nil, result.QueryVector{}, fmt.Errorf("encode query: %w", err)
	}
	qv := result.QueryVector{Dense: vecs[0]}
	results, err := s.gw.Query(ctx, s.schema, s.schema.DenseField(), qv, topK)
	if err != nil {
		return nil, result.QueryVector{}, fmt.Errorf("dense query: %w", err)
	}
	return results, qv, nil
}

func (s *Service) searchSparse(
	ctx context.Context, query string, topK int,
) ([]result.Result, result.QueryVector, error) {
	sp, err := s.sparse.EncodeSparse(ctx, query)
	if err != nil {
		return nil, result.QueryVector{}, fmt.Errorf("encode query: %w", err)
	}
	qv := result.QueryVector{Sparse: &sp}
	results, err := s.gw.Query(ctx, s.schema, s.schema.LexicalField(), qv, topK)
	if err != nil {
		return nil, result.QueryVector{}, fmt.Errorf("sparse query: %w", err)
	}
	return results, qv, nil
}

// searchHybrid runs both legs concurrently and fuses them with RRF.
func (s *Service) searchHybrid(
	ctx context.Context, query string, topK int,
) ([]result.Result, result.QueryVector, error) {
	var (
		denseRes, sparseRes []result.Result
		denseQV, sparseQV   result.QueryVector
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		denseRes, denseQV, err = s.searchDense(gctx, query, topK)
		return err
	})
	g.Go(func() error {
		var err error
		sparseRes, sparseQV, err = s.searchSparse(gctx, query, topK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, result.QueryVector{}, err //nolint:wrapcheck // legs already wrap
	}

	qv := result.QueryVector{Dense: denseQV.Dense, Sparse: sparseQV.Sparse}
	return fuseRRF(denseRes, sparseRes, s.cfg.RRFK, topK), qv, nil
}
