// Package document implements the interactive write path (add one document)
// and the points export used for visualization.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
	"github.com/kailas-cloud/semsearch/internal/logger"
)

// Defaults for the points export.
const (
	DefaultPointsLimit    = 500
	DefaultPointsPageSize = 100
)

// Config holds write-path and export settings.
type Config struct {
	TextField      string
	PointsLimit    int
	PointsPageSize int
}

// Point is one exported record: id, dense vector and payload.
type Point struct {
	ID      string
	Vector  vector.Dense
	Payload domdoc.Payload
}

// Service adds single documents and exports points.
type Service struct {
	gw     Gateway
	dense  DenseEncoder
	sparse SparseEncoder
	schema collection.Schema
	cfg    Config
	newID  func() string
}

// New creates a document service.
func New(gw Gateway, dense DenseEncoder, sparse SparseEncoder, schema collection.Schema, cfg Config) *Service {
	if cfg.TextField == "" {
		cfg.TextField = domdoc.DefaultTextField
	}
	if cfg.PointsLimit < 1 {
		cfg.PointsLimit = DefaultPointsLimit
	}
	if cfg.PointsPageSize < 1 {
		cfg.PointsPageSize = DefaultPointsPageSize
	}
	return &Service{gw: gw, dense: dense, sparse: sparse, schema: schema, cfg: cfg, newID: uuid.NewString}
}

// Add encodes text densely and lexically, stores it under a fresh id and
// returns the id. The sparse half is skipped for collections without a
// lexical field.
func (s *Service) Add(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.AtStage(domain.StageValidate, domain.Validationf("text must not be empty"))
	}

	doc, err := domdoc.FromText(s.newID(), text, s.cfg.TextField)
	if err != nil {
		return "", domain.AtStage(domain.StageValidate, fmt.Errorf("%w: %w", domain.ErrValidation, err))
	}

	dense, err := s.dense.EncodeDense(ctx, []string{text}, 1)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	var sparse vector.Sparse
	if s.schema.HasLexical() {
		sparse, err = s.sparse.EncodeSparse(ctx, text)
		if err != nil {
			return "", fmt.Errorf("encode document: %w", err)
		}
	}

	rec, err := domdoc.NewVectorRecord(&doc, dense[0], sparse)
	if err != nil {
		return "", domain.AtStage(domain.StageEncodeSparse, fmt.Errorf("%w: %w", domain.ErrEncodingUnavailable, err))
	}

	if err := s.gw.Upsert(ctx, s.schema, []domdoc.VectorRecord{rec}); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	logger.FromContext(ctx).Info("Document added",
		zap.String("collection", s.schema.Name()),
		zap.String("id", doc.ID()),
	)
	return doc.ID(), nil
}

// ListPoints scrolls the collection in pages until limit points are collected
// or the collection is exhausted. A zero limit takes the configured default.
func (s *Service) ListPoints(ctx context.Context, limit int) ([]Point, error) {
	if limit < 0 {
		return nil, domain.AtStage(domain.StageValidate, domain.Validationf("limit must be >= 0, got %d", limit))
	}
	if limit == 0 {
		limit = s.cfg.PointsLimit
	}

	fields := []string{s.schema.DenseField()}
	points := make([]Point, 0, min(limit, s.cfg.PointsPageSize))
	cursor := ""
	for len(points) < limit {
		page, err := s.gw.Scroll(ctx, s.schema, cursor, min(s.cfg.PointsPageSize, limit-len(points)), fields)
		if err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}
		for i := range page.Records {
			rec := &page.Records[i]
			points = append(points, Point{ID: rec.ID(), Vector: rec.Dense(), Payload: rec.Payload()})
		}
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	return points, nil
}
