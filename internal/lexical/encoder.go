// Package lexical produces BM25-weighted sparse term vectors.
package lexical

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/kljensen/snowball"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Default BM25 parameters.
const (
	DefaultK1       = 1.2
	DefaultB        = 0.75
	DefaultAvgLen   = 256.0
	DefaultLanguage = "english"
)

// Config holds the analyzer language and BM25 term-frequency parameters.
type Config struct {
	Language string
	K1       float64
	B        float64
	AvgLen   float64
}

// Encoder implements domain.SparseEncoder. The analyzer (stemmer and stop
// words) is built once on first use; a failed build is reported to every caller.
type Encoder struct {
	cfg    Config
	init   func() (*analyzer, error)
	logger *zap.Logger
}

type analyzer struct {
	language  string
	stopwords map[string]struct{}
}

// New creates a lexical encoder. Zero-valued parameters take the defaults.
func New(cfg Config, logger *zap.Logger) *Encoder {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultK1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = DefaultB
	}
	if cfg.AvgLen <= 0 {
		cfg.AvgLen = DefaultAvgLen
	}
	e := &Encoder{cfg: cfg, logger: logger}
	e.init = sync.OnceValues(e.build)
	return e
}

func (e *Encoder) build() (*analyzer, error) {
	lang := strings.ToLower(e.cfg.Language)
	// snowball reports unsupported languages on any call
	if _, err := snowball.Stem("probe", lang, false); err != nil {
		e.logger.Error("Lexical analyzer init failed", zap.String("language", lang), zap.Error(err))
		return nil, fmt.Errorf("stemmer for %q: %w", lang, err)
	}
	a := &analyzer{language: lang, stopwords: stopwordSet(lang)}
	e.logger.Info("Lexical analyzer ready",
		zap.String("language", lang),
		zap.Int("stopwords", len(a.stopwords)),
	)
	return a, nil
}

// EncodeSparse tokenizes, removes stop words, stems and weights each term
// with BM25 term-frequency saturation. Empty text yields an empty vector.
func (e *Encoder) EncodeSparse(_ context.Context, text string) (vector.Sparse, error) {
	a, err := e.init()
	if err != nil {
		return vector.Sparse{}, domain.AtStage(domain.StageEncodeSparse,
			fmt.Errorf("%w: %w", domain.ErrEncodingUnavailable, err))
	}

	start := time.Now()
	terms := a.analyze(text)
	out := vector.NewSparse(e.weigh(terms))
	metrics.LexicalEncodeDuration.Observe(time.Since(start).Seconds())
	return out, nil
}

// HealthCheck builds the analyzer if needed and reports a build failure.
func (e *Encoder) HealthCheck(_ context.Context) error {
	if _, err := e.init(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncodingUnavailable, err)
	}
	return nil
}

func (e *Encoder) weigh(terms []string) map[uint32]float32 {
	tf := make(map[uint32]float64, len(terms))
	for _, t := range terms {
		tf[TermIndex(t)]++
	}
	docLen := float64(len(terms))
	norm := e.cfg.K1 * (1 - e.cfg.B + e.cfg.B*docLen/e.cfg.AvgLen)

	out := make(map[uint32]float32, len(tf))
	for idx, f := range tf {
		out[idx] = float32(f * (e.cfg.K1 + 1) / (f + norm))
	}
	return out
}

// TermIndex maps an analyzed term to its sparse index.
func TermIndex(term string) uint32 {
	return uint32(xxhash.Sum64String(term))
}

func (a *analyzer) analyze(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := tokens[:0]
	for _, tok := range tokens {
		if _, stop := a.stopwords[tok]; stop {
			continue
		}
		stem, err := snowball.Stem(tok, a.language, true)
		if err != nil || stem == "" {
			stem = tok
		}
		out = append(out, stem)
	}
	return out
}
