package result

import (
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Result is a single search hit. Higher score means more relevant.
type Result struct {
	id      string
	score   float64
	payload document.Payload
}

// New creates a search result.
func New(id string, score float64, payload document.Payload) Result {
	return Result{id: id, score: score, payload: payload}
}

// ID returns the record identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Payload returns the stored payload.
func (r *Result) Payload() document.Payload { return r.payload }

// WithScore returns a copy carrying a different score (used by fusion).
func (r *Result) WithScore(score float64) Result {
	return Result{id: r.id, score: score, payload: r.payload}
}

// QueryVector is the query representation a search used: dense, sparse or both.
type QueryVector struct {
	Dense  vector.Dense
	Sparse *vector.Sparse
}

// IsZero reports whether no vector was recorded.
func (q QueryVector) IsZero() bool { return len(q.Dense) == 0 && q.Sparse == nil }
