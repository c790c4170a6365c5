package semsearch

import (
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Hit is one search result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// SparseVector is a lexical query vector.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// QueryVector is the representation a search used; hybrid fills both.
type QueryVector struct {
	Dense  []float32
	Sparse *SparseVector
}

// SearchResponse carries the hits and the query vector that produced them.
type SearchResponse struct {
	Mode        string
	Hits        []Hit
	QueryVector QueryVector
}

// Point is an exported record.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Progress is reported after every committed ingest batch.
type Progress struct {
	Batch    int
	Batches  int
	Ingested int
	Total    int
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status     string            // "ok" or "degraded"
	Checks     map[string]string // component -> "ok"/"error"
	Collection string
	Points     int // -1 when the count could not be read
	Dimension  int
	Lexical    bool
	Mode       string
	Backend    string
	Model      string
}

func searchResponseFromDomain(resp searchuc.Response) SearchResponse {
	hits := make([]Hit, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		hits[i] = Hit{ID: r.ID(), Score: r.Score(), Payload: r.Payload()}
	}
	qv := QueryVector{Dense: resp.QueryVector.Dense}
	if sp := resp.QueryVector.Sparse; sp != nil {
		qv.Sparse = &SparseVector{Indices: sp.Indices, Values: sp.Values}
	}
	return SearchResponse{Mode: string(resp.Mode), Hits: hits, QueryVector: qv}
}

func healthFromDomain(r healthuc.Report) HealthStatus {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:     string(r.Status),
		Checks:     checks,
		Collection: r.Collection,
		Points:     r.Points,
		Dimension:  r.Dimension,
		Lexical:    r.Lexical,
		Mode:       r.Mode,
		Backend:    r.Backend,
		Model:      r.Model,
	}
}
