package semsearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

type mockSearch struct {
	got searchuc.Request
	fn  func(req searchuc.Request) (searchuc.Response, error)
}

func (m *mockSearch) Search(_ context.Context, req searchuc.Request) (searchuc.Response, error) {
	m.got = req
	return m.fn(req)
}

type mockDocuments struct {
	addFn    func(text string) (string, error)
	pointsFn func(limit int) ([]documentuc.Point, error)
}

func (m *mockDocuments) Add(_ context.Context, text string) (string, error) { return m.addFn(text) }

func (m *mockDocuments) ListPoints(_ context.Context, limit int) ([]documentuc.Point, error) {
	return m.pointsFn(limit)
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockIngester struct {
	got      []domdoc.Payload
	released bool
	fn       func(records []domdoc.Payload, onProgress func(ingest.Progress)) (int, error)
}

func (m *mockIngester) Ingest(
	_ context.Context, records []domdoc.Payload, onProgress func(ingest.Progress),
) (int, error) {
	m.got = records
	return m.fn(records, onProgress)
}

func (m *mockIngester) Release() { m.released = true }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	obs, err := newObserver(nil, nil)
	require.NoError(t, err)
	return &Client{textField: "text", obs: obs}
}

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.addrs")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(),
		WithRedis("localhost:6379", ""),
		WithDenseOnly(),
	)
	require.Error(t, err, "dense-only collection with sparse default mode must be rejected")

	_, err = New(context.Background(),
		WithValkey("localhost:6379", ""),
		WithRemoteEmbedding("", "", "bge-m3"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestOptions_Apply(t *testing.T) {
	base := config.Config{}
	base.Collection.KeyPrefix = "custom:"

	cc := &clientConfig{}
	opts := []Option{
		WithConfig(base),
		WithValkey("valkey:6379", "secret"),
		WithCollection("books", 256),
		WithDenseOnly(),
		WithRemoteEmbedding("http://tei:8080/v1", "key", "bge-m3"),
		WithEmbeddingCache(60),
		WithDefaultMode("dense"),
		WithTextField("body"),
	}
	for _, o := range opts {
		o.apply(cc)
	}
	cc.cfg.ApplyDefaults()
	require.NoError(t, cc.cfg.Validate())

	assert.Equal(t, "custom:", cc.cfg.Collection.KeyPrefix)
	assert.Equal(t, "valkey", cc.cfg.Database.Driver)
	assert.Equal(t, []string{"valkey:6379"}, cc.cfg.Database.Addrs)
	assert.Equal(t, "books", cc.cfg.Collection.Name)
	assert.Equal(t, 256, cc.cfg.Collection.Dimension)
	assert.Empty(t, cc.cfg.Collection.LexicalField)
	assert.Equal(t, config.BackendRemote, cc.cfg.Embedding.Backend)
	assert.True(t, cc.cfg.Embedding.Cache.Enabled)
	assert.Equal(t, time.Minute, cc.cfg.CacheTTL())
	assert.Equal(t, mode.Dense, cc.cfg.DefaultMode())
	assert.Equal(t, "body", cc.cfg.Ingest.TextField)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t)
	ms := &mockSearch{fn: func(req searchuc.Request) (searchuc.Response, error) {
		return searchuc.Response{
			Query: req.Query,
			Mode:  mode.Hybrid,
			Results: []result.Result{
				result.New("a", 0.9, domdoc.Payload{"text": "gloves"}),
				result.New("b", 0.4, nil),
			},
			QueryVector: result.QueryVector{
				Dense:  vector.Dense{0.6, 0.8},
				Sparse: &vector.Sparse{Indices: []uint32{7}, Values: []float32{1.5}},
			},
		}, nil
	}}
	c.searchSvc = ms

	resp, err := c.Search(context.Background(), "gloves", TopK(2), Mode("hybrid"))
	require.NoError(t, err)

	require.NotNil(t, ms.got.TopK)
	assert.Equal(t, 2, *ms.got.TopK)
	assert.Equal(t, "hybrid", ms.got.Mode)

	assert.Equal(t, "hybrid", resp.Mode)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "a", resp.Hits[0].ID)
	assert.Equal(t, "gloves", resp.Hits[0].Payload["text"])
	assert.Equal(t, []float32{0.6, 0.8}, resp.QueryVector.Dense)
	require.NotNil(t, resp.QueryVector.Sparse)
	assert.Equal(t, []uint32{7}, resp.QueryVector.Sparse.Indices)
}

func TestSearch_Error(t *testing.T) {
	c := newTestClient(t)
	c.searchSvc = &mockSearch{fn: func(searchuc.Request) (searchuc.Response, error) {
		return searchuc.Response{}, domain.AtStage(domain.StageEncodeDense, domain.ErrEncodingUnavailable)
	}}

	_, err := c.Search(context.Background(), "q")
	require.ErrorIs(t, err, ErrEncodingUnavailable)
	assert.Equal(t, "encode_dense", Stage(err))
}

func TestAddAndPoints(t *testing.T) {
	c := newTestClient(t)
	c.docSvc = &mockDocuments{
		addFn: func(text string) (string, error) {
			if text == "" {
				return "", domain.Validationf("text is required")
			}
			return "id-1", nil
		},
		pointsFn: func(limit int) ([]documentuc.Point, error) {
			assert.Equal(t, 10, limit)
			return []documentuc.Point{{ID: "id-1", Vector: vector.Dense{1}, Payload: domdoc.Payload{"text": "x"}}}, nil
		},
	}

	id, err := c.Add(context.Background(), "warm winter gloves")
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	_, err = c.Add(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)

	pts, err := c.Points(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, []float32{1}, pts[0].Vector)
	assert.Equal(t, "x", pts[0].Payload["text"])
}

func TestIngest_Progress(t *testing.T) {
	c := newTestClient(t)
	mi := &mockIngester{fn: func(records []domdoc.Payload, onProgress func(ingest.Progress)) (int, error) {
		onProgress(ingest.Progress{Batch: 1, Batches: 1, Ingested: len(records), Total: len(records)})
		return len(records), nil
	}}
	c.ingestSvc = mi

	var seen []Progress
	n, err := c.Ingest(context.Background(),
		[]map[string]any{{"text": "a"}, {"text": "b"}},
		func(p Progress) { seen = append(seen, p) },
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []Progress{{Batch: 1, Batches: 1, Ingested: 2, Total: 2}}, seen)
	assert.Equal(t, "a", mi.got[0]["text"])
}

func TestIngest_PartialFailure(t *testing.T) {
	c := newTestClient(t)
	c.ingestSvc = &mockIngester{fn: func([]domdoc.Payload, func(ingest.Progress)) (int, error) {
		return 32, &ingest.PartialError{
			Ingested: 32,
			Err:      domain.AtStage(domain.StageUpsert, domain.ErrStoreUnavailable),
		}
	}}

	n, err := c.Ingest(context.Background(), make([]map[string]any, 40), nil)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 32, n)
	assert.Equal(t, "upsert", Stage(err))
}

func TestIngestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"text\":\"a\"}\n{\"text\":\"b\"}\n"), 0o600))

	c := newTestClient(t)
	mi := &mockIngester{fn: func(records []domdoc.Payload, _ func(ingest.Progress)) (int, error) {
		return len(records), nil
	}}
	c.ingestSvc = mi

	n, err := c.IngestFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, mi.got, 2)

	_, err = c.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t)
	c.healthSvc = &mockHealth{report: healthuc.Report{
		Status:     healthuc.Degraded,
		Checks:     map[string]healthuc.CheckResult{"database": healthuc.CheckError},
		Collection: "products",
		Points:     -1,
		Dimension:  512,
		Info:       healthuc.Info{Mode: "sparse", Backend: "local", Model: "hashing-1024"},
	}}

	h := c.Health(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "error", h.Checks["database"])
	assert.Equal(t, -1, h.Points)
	assert.Equal(t, "hashing-1024", h.Model)
}

func TestClose(t *testing.T) {
	c := newTestClient(t)
	mi := &mockIngester{}
	c.ingestSvc = mi
	c.Close()
	assert.True(t, mi.released)
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	require.NoError(t, err)

	obs.observe("search", time.Now(), nil)
	obs.observe("search", time.Now(), domain.AtStage(domain.StageQuery, domain.ErrSchemaMismatch))

	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "ok", "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "error", "query")), 0)

	// A second client on the same registerer reuses the collectors.
	again, err := newObserver(nil, reg)
	require.NoError(t, err)
	assert.Same(t, obs.metrics.operations, again.metrics.operations)
}

func TestObserver_Nil(t *testing.T) {
	var obs *observer
	obs.observe("search", time.Now(), errors.New("boom"))
}
