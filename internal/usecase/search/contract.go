package search

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Gateway runs nearest-neighbour queries against the collection.
type Gateway interface {
	Query(ctx context.Context, col collection.Schema, field string, q result.QueryVector, topK int) ([]result.Result, error)
}

// DenseEncoder vectorizes text into unit-length dense embeddings.
type DenseEncoder interface {
	EncodeDense(ctx context.Context, texts []string, batchSize int) ([]vector.Dense, error)
}

// SparseEncoder vectorizes text into weighted term vectors.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) (vector.Sparse, error)
}
