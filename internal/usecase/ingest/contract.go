package ingest

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Gateway prepares the collection and writes record batches.
type Gateway interface {
	EnsureCollection(ctx context.Context, want collection.Schema) (collection.Schema, error)
	Upsert(ctx context.Context, col collection.Schema, records []domdoc.VectorRecord) error
}

// DenseEncoder vectorizes text into unit-length dense embeddings.
type DenseEncoder interface {
	EncodeDense(ctx context.Context, texts []string, batchSize int) ([]vector.Dense, error)
}

// SparseEncoder vectorizes text into weighted term vectors.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) (vector.Sparse, error)
}
