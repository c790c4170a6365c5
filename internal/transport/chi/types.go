package chi

import (
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeSchemaMismatch      ErrorCode = "schema_mismatch"
	CodeEncodingUnavailable ErrorCode = "encoding_unavailable"
	CodeStoreUnavailable    ErrorCode = "store_unavailable"
	CodeNotImplemented      ErrorCode = "not_implemented"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// SearchResultItem is one hit.
type SearchResultItem struct {
	ID      string           `json:"id"`
	Score   float64          `json:"score"`
	Payload document.Payload `json:"payload"`
}

// SparseVector is the JSON form of a sparse query vector.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// QueryVector echoes the query representation: a dense array, a sparse
// object, or both for hybrid search.
type QueryVector struct {
	Dense  []float32     `json:"dense,omitempty"`
	Sparse *SparseVector `json:"sparse,omitempty"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Query       string             `json:"query"`
	Mode        string             `json:"mode"`
	Results     []SearchResultItem `json:"results"`
	QueryVector QueryVector        `json:"query_vector"`
}

// AddRequest is the body of POST /add.
type AddRequest struct {
	Text string `json:"text"`
}

// AddResponse is the body returned by POST /add.
type AddResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PointItem is one stored record in GET /points.
type PointItem struct {
	ID      string           `json:"id"`
	Vector  []float32        `json:"vector"`
	Payload document.Payload `json:"payload"`
}

// PointsResponse is the body returned by GET /points.
type PointsResponse struct {
	Count  int         `json:"count"`
	Points []PointItem `json:"points"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Collection string            `json:"collection"`
	Points     *int              `json:"points"`
	Mode       string            `json:"mode"`
	Dimension  int               `json:"dimension"`
	Lexical    bool              `json:"lexical"`
	Backend    string            `json:"backend"`
	Model      string            `json:"model"`
	Checks     map[string]string `json:"checks"`
}

func searchResponseFrom(resp *searchuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultItemFrom(&resp.Results[i])
	}

	var qv QueryVector
	if len(resp.QueryVector.Dense) > 0 {
		qv.Dense = resp.QueryVector.Dense
	}
	if sp := resp.QueryVector.Sparse; sp != nil {
		qv.Sparse = &SparseVector{Indices: nonNil(sp.Indices), Values: nonNil(sp.Values)}
	}

	return SearchResponse{
		Query:       resp.Query,
		Mode:        string(resp.Mode),
		Results:     items,
		QueryVector: qv,
	}
}

func searchResultItemFrom(r *result.Result) SearchResultItem {
	return SearchResultItem{ID: r.ID(), Score: r.Score(), Payload: r.Payload()}
}

func pointsResponseFrom(points []documentuc.Point) PointsResponse {
	items := make([]PointItem, len(points))
	for i, p := range points {
		items[i] = PointItem{ID: p.ID, Vector: nonNil(p.Vector), Payload: p.Payload}
	}
	return PointsResponse{Count: len(items), Points: items}
}

func healthResponseFrom(r *healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	resp := HealthResponse{
		Status:     string(r.Status),
		Collection: r.Collection,
		Mode:       r.Mode,
		Dimension:  r.Dimension,
		Lexical:    r.Lexical,
		Backend:    r.Backend,
		Model:      r.Model,
		Checks:     checks,
	}
	if r.Points >= 0 {
		n := r.Points
		resp.Points = &n
	}
	return resp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
