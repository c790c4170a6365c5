package vectorstore

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// fakeStore is an in-memory implementation of the consumer interface.
// failFn, when set, is consulted before every operation (by db.Op* name).
type fakeStore struct {
	hashes   map[string]map[string]string
	counters map[string]int64
	indexes  map[string]*db.IndexDefinition

	failFn      func(op string) error
	tagQueries  []*db.TagQuery
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes:   make(map[string]map[string]string),
		counters: make(map[string]int64),
		indexes:  make(map[string]*db.IndexDefinition),
	}
}

func (f *fakeStore) fail(op string) error {
	if f.failFn != nil {
		return f.failFn(op)
	}
	return nil
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if err := f.fail(db.OpHSet); err != nil {
		return err
	}
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := f.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
		if len(it.Incr) == 0 {
			continue
		}
		if err := f.fail(db.OpIncrBy); err != nil {
			return err
		}
		for k, d := range it.Incr {
			f.counters[k] += d
		}
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if err := f.fail(db.OpHGetAll); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		m, err := f.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func (f *fakeStore) HGetMulti(_ context.Context, keys []string, field string) ([]string, error) {
	if err := f.fail(db.OpHGet); err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = f.hashes[k][field]
	}
	return out, nil
}

func (f *fakeStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if err := f.fail(db.OpMGet); err != nil {
		return nil, err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, ok := f.counters[k]; ok {
			out[i] = []byte(strconv.FormatInt(v, 10))
		}
	}
	return out, nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.createCalls++
	if err := f.fail(db.OpCreateIndex); err != nil {
		return err
	}
	if _, ok := f.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	f.indexes[def.Name] = def
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, name string) (bool, error) {
	if err := f.fail(db.OpIndexInfo); err != nil {
		return false, err
	}
	_, ok := f.indexes[name]
	return ok, nil
}

func (f *fakeStore) IndexInfo(_ context.Context, name string) (*db.IndexDefinition, error) {
	if err := f.fail(db.OpIndexInfo); err != nil {
		return nil, err
	}
	def, ok := f.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	out := *def
	out.Fields = slices.Clone(def.Fields)
	return &out, nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := f.fail(db.OpSearch); err != nil {
		return nil, err
	}
	def, ok := f.indexes[q.IndexName]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	var entries []db.SearchEntry
	for _, key := range f.keysWithPrefix(def.Prefixes[0]) {
		h := f.hashes[key]
		v := bytesToDense(h[q.Field])
		if len(v) != len(q.Vector) {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  v.Dot(q.Vector),
			Fields: map[string]string{fieldPayload: h[fieldPayload]},
		})
	}
	slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func (f *fakeStore) SearchTags(_ context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	f.tagQueries = append(f.tagQueries, q)
	if err := f.fail(db.OpSearch); err != nil {
		return nil, err
	}
	if _, ok := f.indexes[q.IndexName]; !ok {
		return nil, db.ErrIndexNotFound
	}
	var matches []db.SearchEntry
	for _, key := range f.keysWithPrefix(q.KeyPrefix) {
		h := f.hashes[key]
		tags := strings.Split(h[q.Field], q.Separator)
		if !slices.ContainsFunc(q.Values, func(v string) bool { return slices.Contains(tags, v) }) {
			continue
		}
		fields := make(map[string]string, len(q.ReturnFields))
		for _, rf := range q.ReturnFields {
			fields[rf] = h[rf]
		}
		matches = append(matches, db.SearchEntry{Key: key, Fields: fields})
	}
	start := min(q.Offset, len(matches))
	end := min(start+q.Limit, len(matches))
	return &db.SearchResult{Total: len(matches), Entries: matches[start:end]}, nil
}

func (f *fakeStore) SearchCount(_ context.Context, _ string, keyPrefix string) (int, error) {
	if err := f.fail(db.OpSearch); err != nil {
		return 0, err
	}
	return len(f.keysWithPrefix(keyPrefix)), nil
}

// ScanPage pages over sorted keys; the cursor is an offset.
func (f *fakeStore) ScanPage(_ context.Context, pattern string, cursor uint64, count int) ([]string, uint64, error) {
	if err := f.fail(db.OpScan); err != nil {
		return nil, 0, err
	}
	keys := f.keysWithPrefix(strings.TrimSuffix(pattern, "*"))
	start := min(int(cursor), len(keys))
	end := min(start+count, len(keys))
	var next uint64
	if end < len(keys) {
		next = uint64(end)
	}
	return slices.Clone(keys[start:end]), next, nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if err := f.fail(db.OpScan); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	out := f.keysWithPrefix(prefix)
	for k := range f.counters {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if err := f.fail(db.OpDel); err != nil {
		return err
	}
	for _, k := range keys {
		delete(f.hashes, k)
		delete(f.counters, k)
	}
	return nil
}

func (f *fakeStore) DropIndex(_ context.Context, name string) error {
	if err := f.fail(db.OpDropIndex); err != nil {
		return err
	}
	if _, ok := f.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(f.indexes, name)
	return nil
}

func (f *fakeStore) keysWithPrefix(prefix string) []string {
	var out []string
	for k := range f.hashes {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// --- fixtures ---

const testDim = 4

func testSchema() collection.Schema {
	s, err := collection.New("products", "dense", testDim, "lexical")
	if err != nil {
		panic(err)
	}
	return s
}

func newTestGateway(s *fakeStore) *Gateway {
	return New(s, Config{KeyPrefix: "semsearch:", IDF: true})
}

func mustRecord(id, text string, dense []float32, sparse map[uint32]float32) document.VectorRecord {
	doc, err := document.FromText(id, text, document.DefaultTextField)
	if err != nil {
		panic(err)
	}
	d, err := vector.Normalize(dense)
	if err != nil {
		panic(err)
	}
	rec, err := document.NewVectorRecord(&doc, d, vector.NewSparse(sparse))
	if err != nil {
		panic(err)
	}
	return rec
}
