// Package local is the in-process dense embedding backend.
package local

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config holds local backend settings. WeightsFile, when set, may override
// NativeDim and the n-gram range.
type Config struct {
	NativeDim   int
	NgramMin    int
	NgramMax    int
	WeightsFile string
}

// Backend embeds texts in-process. The model is loaded exactly once on first
// use; concurrent first callers wait for the same load and a failed load is
// reported to every later caller.
type Backend struct {
	load  func() (*model, error)
	loads atomic.Int32
}

// New creates a local backend. Nothing is loaded until the first call.
func New(cfg Config, logger *zap.Logger) *Backend {
	b := &Backend{}
	b.load = sync.OnceValues(func() (*model, error) {
		b.loads.Add(1)
		start := time.Now()
		m, err := loadModel(cfg)
		if err != nil {
			logger.Error("Local embedding model load failed", zap.Error(err))
			return nil, err
		}
		logger.Info("Local embedding model loaded",
			zap.Int("native_dim", m.dim),
			zap.Int("ngram_min", m.ngramMin),
			zap.Int("ngram_max", m.ngramMax),
			zap.Int("token_weights", len(m.weights)),
			zap.Duration("duration", time.Since(start)),
		)
		return m, nil
	})
	return b
}

// Embed returns one native-width vector per text.
func (b *Backend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m, err := b.load()
	if err != nil {
		return nil, fmt.Errorf("load local model: %w", err)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("local embed: %w", err)
		}
		out[i] = m.embed(t)
	}
	return out, nil
}

// HealthCheck loads the model if needed and reports a load failure.
func (b *Backend) HealthCheck(_ context.Context) error {
	if _, err := b.load(); err != nil {
		return fmt.Errorf("load local model: %w", err)
	}
	return nil
}
