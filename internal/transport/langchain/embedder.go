// Package langchain is a remote dense backend built on langchaingo's
// OpenAI-compatible embeddings client, used for local inference servers.
package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// noToken is sent to servers that do not require authentication;
// the client refuses an empty token.
const noToken = "none"

// Config holds the langchaingo backend settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder implements embedding.Backend with langchaingo.
type Embedder struct {
	embedder embeddings.Embedder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEmbedder builds the langchaingo client and embedder.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	token := cfg.APIKey
	if token == "" {
		token = noToken
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create langchaingo client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create langchaingo embedder: %w", err)
	}

	return &Embedder{embedder: emb, timeout: cfg.Timeout, logger: cfg.Logger}, nil
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed documents: %w", domain.ErrEncodingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEncodingUnavailable, len(vecs), len(texts))
	}

	e.logger.Debug("Remote embeddings received", zap.Int("inputs", len(texts)))
	return vecs, nil
}

// HealthCheck embeds a short probe text.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, []string{"health check"}); err != nil {
		return fmt.Errorf("probe embeddings: %w", err)
	}
	return nil
}
