package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Instrumented wraps a Backend with request metrics and logging.
// Token usage is recorded by remote transports, which are the only ones that see it.
type Instrumented struct {
	inner   Backend
	backend string
	model   string
	logger  *zap.Logger
}

// NewInstrumented wraps a backend with observability.
func NewInstrumented(inner Backend, backend, model string, logger *zap.Logger) *Instrumented {
	return &Instrumented{inner: inner, backend: backend, model: model, logger: logger}
}

// Embed delegates to the inner backend and records the outcome.
func (e *Instrumented) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := e.inner.Embed(ctx, texts)
	duration := time.Since(start)

	metrics.EmbeddingTextsTotal.WithLabelValues(e.backend, e.model).Add(float64(len(texts)))
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.backend, e.model, metrics.StatusLabel(err)).Inc()

	if err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.backend, e.model, errorType(ctx)).Inc()
		e.logger.Error("Embedding request failed",
			zap.String("backend", e.backend),
			zap.String("model", e.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("embed batch of %d: %w", len(texts), err)
	}

	metrics.EmbeddingRequestDuration.WithLabelValues(e.backend, e.model).Observe(duration.Seconds())
	e.logger.Debug("Embedding request completed",
		zap.String("backend", e.backend),
		zap.String("model", e.model),
		zap.Int("batch_size", len(texts)),
		zap.Duration("duration", duration),
	)
	return vecs, nil
}

// HealthCheck forwards to the inner backend.
func (e *Instrumented) HealthCheck(ctx context.Context) error {
	return CheckHealth(ctx, e.inner)
}

func errorType(ctx context.Context) string {
	if ctx.Err() != nil {
		return "timeout"
	}
	return "backend_error"
}
