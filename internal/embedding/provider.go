// Package embedding turns texts into unit-length dense vectors of a fixed
// dimension on top of an interchangeable local or remote backend.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Backend produces raw embeddings, one per input text and in input order.
// Vectors may be wider than the configured dimension and need not be normalized.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider implements domain.DenseEncoder over a Backend.
type Provider struct {
	backend Backend
	dim     int
	logger  *zap.Logger
}

// NewProvider creates a dense encoder producing vectors of width dim.
func NewProvider(backend Backend, dim int, logger *zap.Logger) *Provider {
	return &Provider{backend: backend, dim: dim, logger: logger}
}

// Dimension returns the output width D.
func (p *Provider) Dimension() int { return p.dim }

// EncodeDense splits texts into chunks of batchSize, sends each chunk to the
// backend in one call and fits every output to D (truncate, then re-normalize).
func (p *Provider) EncodeDense(ctx context.Context, texts []string, batchSize int) ([]vector.Dense, error) {
	if len(texts) == 0 {
		return nil, domain.AtStage(domain.StageEncodeDense, domain.Validationf("no texts to encode"))
	}
	if batchSize < 1 {
		return nil, domain.AtStage(domain.StageEncodeDense,
			domain.Validationf("batch size must be positive, got %d", batchSize))
	}

	out := make([]vector.Dense, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vecs, err := p.encodeChunk(ctx, texts[start:end])
		if err != nil {
			p.logger.Error("Dense encoding failed",
				zap.Int("chunk_offset", start),
				zap.Int("chunk_size", end-start),
				zap.Error(err),
			)
			return nil, domain.AtStage(domain.StageEncodeDense, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *Provider) encodeChunk(ctx context.Context, chunk []string) ([]vector.Dense, error) {
	raw, err := p.backend.Embed(ctx, chunk)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(raw) != len(chunk) {
		return nil, fmt.Errorf("%w: backend returned %d vectors for %d texts",
			domain.ErrEncodingUnavailable, len(raw), len(chunk))
	}
	out := make([]vector.Dense, len(raw))
	for i, r := range raw {
		d, err := vector.Fit(r, p.dim)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed vector %d: %w", domain.ErrEncodingUnavailable, i, err)
		}
		out[i] = d
	}
	return out, nil
}

// HealthCheck probes the backend. For the local backend this loads the model.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if err := CheckHealth(ctx, p.backend); err != nil {
		return unavailable(err)
	}
	return nil
}

// CheckHealth calls b.HealthCheck when b implements domain.HealthChecker.
func CheckHealth(ctx context.Context, b Backend) error {
	if hc, ok := b.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // callers wrap
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, domain.ErrEncodingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEncodingUnavailable, err)
}
