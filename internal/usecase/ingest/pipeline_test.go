package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// --- Mocks ---

type mockGateway struct {
	mu        sync.Mutex
	effective *collection.Schema
	ensureErr error
	ensured   int
	batches   [][]domdoc.VectorRecord
	failAt    int // 1-based upsert call that fails; 0 never
	cancel    context.CancelFunc
	cancelAt  int
}

func (m *mockGateway) EnsureCollection(_ context.Context, want collection.Schema) (collection.Schema, error) {
	m.ensured++
	if m.ensureErr != nil {
		return collection.Schema{}, m.ensureErr
	}
	if m.effective != nil {
		return *m.effective, nil
	}
	return want, nil
}

func (m *mockGateway) Upsert(ctx context.Context, _ collection.Schema, records []domdoc.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	call := len(m.batches) + 1
	if m.failAt == call {
		return domain.AtStage(domain.StageUpsert, fmt.Errorf("%w: connection reset", domain.ErrStoreUnavailable))
	}
	m.batches = append(m.batches, records)
	if m.cancelAt == call && m.cancel != nil {
		m.cancel()
	}
	return nil
}

type mockDense struct {
	calls atomic.Int32
	err   error
}

func (m *mockDense) EncodeDense(_ context.Context, texts []string, _ int) ([]vector.Dense, error) {
	m.calls.Add(1)
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
	calls atomic.Int32
	err   error
}

func (m *mockSparse) EncodeSparse(_ context.Context, text string) (vector.Sparse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return vector.Sparse{}, m.err
	}
	return vector.NewSparse(map[uint32]float32{uint32(len(text)): 1}), nil
}

func testSchema(t *testing.T) collection.Schema {
	t.Helper()
	s, err := collection.New("docs", "dense", 4, "lexical")
	require.NoError(t, err)
	return s
}

func records(n int) []domdoc.Payload {
	out := make([]domdoc.Payload, n)
	for i := range out {
		out[i] = domdoc.Payload{"text": fmt.Sprintf("document number %d", i), "n": i}
	}
	return out
}

func newPipeline(t *testing.T, gw *mockGateway, dense *mockDense, sparse *mockSparse, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(gw, dense, sparse, testSchema(t), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

// --- Tests ---

func TestIngest_Batches(t *testing.T) {
	gw := &mockGateway{}
	dense, sparse := &mockDense{}, &mockSparse{}
	p := newPipeline(t, gw, dense, sparse, Config{BatchSize: 32})

	var progress []Progress
	n, err := p.Ingest(context.Background(), records(70), func(pr Progress) { progress = append(progress, pr) })
	require.NoError(t, err)

	assert.Equal(t, 70, n)
	assert.Equal(t, 1, gw.ensured)
	require.Len(t, gw.batches, 3)
	assert.Len(t, gw.batches[0], 32)
	assert.Len(t, gw.batches[1], 32)
	assert.Len(t, gw.batches[2], 6)
	assert.Equal(t, int32(3), dense.calls.Load(), "one dense call per batch")
	assert.Equal(t, int32(70), sparse.calls.Load(), "one sparse call per text")

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Batch: 3, Batches: 3, Ingested: 70, Total: 70}, progress[2])
}

func TestIngest_KeepsPayloadAndOrder(t *testing.T) {
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{BatchSize: 4})

	_, err := p.Ingest(context.Background(), records(4), nil)
	require.NoError(t, err)

	require.Len(t, gw.batches, 1)
	for i, rec := range gw.batches[0] {
		assert.Equal(t, i, rec.Payload()["n"])
		assert.Equal(t, fmt.Sprintf("document number %d", i), rec.Payload()["text"])
		text := rec.Payload()["text"].(string)
		assert.Equal(t, []uint32{uint32(len(text))}, rec.Sparse().Indices)
		assert.NotEmpty(t, rec.ID())
	}
}

func TestIngest_IDField(t *testing.T) {
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{IDField: "sku"})

	recs := []domdoc.Payload{
		{"text": "red shoes", "sku": "A-1"},
		{"text": "blue shoes"},
	}
	_, err := p.Ingest(context.Background(), recs, nil)
	require.NoError(t, err)

	require.Len(t, gw.batches, 1)
	assert.Equal(t, "A-1", gw.batches[0][0].ID())
	assert.NotEqual(t, "", gw.batches[0][1].ID())
	assert.NotEqual(t, "A-1", gw.batches[0][1].ID())
}

func TestIngest_ValidationBeforeEncoding(t *testing.T) {
	gw := &mockGateway{}
	dense, sparse := &mockDense{}, &mockSparse{}
	p := newPipeline(t, gw, dense, sparse, Config{BatchSize: 2})

	recs := records(5)
	recs[3] = domdoc.Payload{"title": "no text here"}

	n, err := p.Ingest(context.Background(), recs, nil)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stage, ok := domain.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageValidate, stage)

	var pe *PartialError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Ingested)

	assert.Zero(t, gw.ensured)
	assert.Zero(t, dense.calls.Load())
	assert.Zero(t, sparse.calls.Load())
}

func TestIngest_NonStringText(t *testing.T) {
	p := newPipeline(t, &mockGateway{}, &mockDense{}, &mockSparse{}, Config{})

	_, err := p.Ingest(context.Background(), []domdoc.Payload{{"text": 42}}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngest_CustomTextField(t *testing.T) {
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{TextField: "body"})

	n, err := p.Ingest(context.Background(), []domdoc.Payload{{"body": "hello"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngest_Empty(t *testing.T) {
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{})

	n, err := p.Ingest(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, gw.ensured)
}

func TestIngest_UpsertFailureReportsCommitted(t *testing.T) {
	gw := &mockGateway{failAt: 2}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{BatchSize: 10})

	n, err := p.Ingest(context.Background(), records(35), nil)
	require.Error(t, err)
	assert.Equal(t, 10, n)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	var pe *PartialError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 10, pe.Ingested)

	stage, _ := domain.StageOf(err)
	assert.Equal(t, domain.StageUpsert, stage)
}

func TestIngest_EncoderFailure(t *testing.T) {
	encErr := domain.AtStage(domain.StageEncodeDense, fmt.Errorf("%w: backend down", domain.ErrEncodingUnavailable))
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{err: encErr}, &mockSparse{}, Config{})

	n, err := p.Ingest(context.Background(), records(3), nil)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, domain.ErrEncodingUnavailable)
	assert.Empty(t, gw.batches)
}

func TestIngest_SparseFailure(t *testing.T) {
	encErr := domain.AtStage(domain.StageEncodeSparse, fmt.Errorf("%w: analyzer", domain.ErrEncodingUnavailable))
	gw := &mockGateway{}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{err: encErr}, Config{})

	_, err := p.Ingest(context.Background(), records(3), nil)
	assert.ErrorIs(t, err, domain.ErrEncodingUnavailable)
	stage, _ := domain.StageOf(err)
	assert.Equal(t, domain.StageEncodeSparse, stage)
	assert.Empty(t, gw.batches)
}

func TestIngest_DenseOnlyCollectionSkipsSparse(t *testing.T) {
	effective := collection.Reconstruct("docs", "dense", 4, collection.MetricCosine, "")
	gw := &mockGateway{effective: &effective}
	sparse := &mockSparse{}
	p := newPipeline(t, gw, &mockDense{}, sparse, Config{})

	n, err := p.Ingest(context.Background(), records(5), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Zero(t, sparse.calls.Load())
	assert.True(t, gw.batches[0][0].Sparse().IsEmpty())
}

func TestIngest_SchemaMismatch(t *testing.T) {
	gw := &mockGateway{ensureErr: domain.AtStage(domain.StageEnsureCollection,
		fmt.Errorf("%w: dimension 512 != 4", domain.ErrSchemaMismatch))}
	dense := &mockDense{}
	p := newPipeline(t, gw, dense, &mockSparse{}, Config{})

	n, err := p.Ingest(context.Background(), records(2), nil)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
	assert.Zero(t, dense.calls.Load())
}

func TestIngest_CancelBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel fires inside the first upsert; that batch must still commit.
	gw := &mockGateway{cancel: cancel, cancelAt: 1}
	p := newPipeline(t, gw, &mockDense{}, &mockSparse{}, Config{BatchSize: 5})

	n, err := p.Ingest(ctx, records(20), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 5, n)
	assert.Len(t, gw.batches, 1)
}

func TestPartialError(t *testing.T) {
	inner := errors.New("boom")
	err := &PartialError{Ingested: 64, Err: inner}
	assert.Equal(t, "ingest stopped after 64 records: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
