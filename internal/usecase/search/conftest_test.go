package search

import (
	"context"
	"sync"

	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// --- Mocks ---

type queryCall struct {
	field string
	q     result.QueryVector
	topK  int
}

type mockGateway struct {
	mu      sync.Mutex
	results map[string][]result.Result
	errs    map[string]error
	calls   []queryCall
}

func (m *mockGateway) Query(
	_ context.Context, _ collection.Schema, field string, q result.QueryVector, topK int,
) ([]result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, queryCall{field: field, q: q, topK: topK})
	if err := m.errs[field]; err != nil {
		return nil, err
	}
	res := m.results[field]
	if len(res) > topK {
		res = res[:topK]
	}
	return res, nil
}

type mockDense struct {
	mu     sync.Mutex
	err    error
	called int
}

func (m *mockDense) EncodeDense(_ context.Context, texts []string, _ int) ([]vector.Dense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]vector.Dense, len(texts))
	for i := range texts {
		out[i] = vector.Dense{1, 0, 0, 0}
	}
	return out, nil
}

type mockSparse struct {
	mu     sync.Mutex
	err    error
	called int
}

func (m *mockSparse) EncodeSparse(_ context.Context, _ string) (vector.Sparse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	if m.err != nil {
		return vector.Sparse{}, m.err
	}
	return vector.NewSparse(map[uint32]float32{7: 1.5}), nil
}

func testSchema() collection.Schema {
	s, err := collection.New("products", "dense", 4, "lexical")
	if err != nil {
		panic(err)
	}
	return s
}

func makeResult(id string, score float64) result.Result {
	return result.New(id, score, document.Payload{"text": "content-" + id})
}

func newTestService(gw *mockGateway, dense *mockDense, sparse *mockSparse) *Service {
	return New(gw, dense, sparse, testSchema(), Config{DefaultMode: mode.Sparse})
}

func intPtr(v int) *int { return &v }
