package domain

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// DenseEncoder turns texts into unit-length vectors of the configured dimension.
// Output is order-preserving: one vector per input text.
type DenseEncoder interface {
	EncodeDense(ctx context.Context, texts []string, batchSize int) ([]vector.Dense, error)
}

// SparseEncoder turns a text into a weighted term vector.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) (vector.Sparse, error)
}

// HealthChecker verifies encoder backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
