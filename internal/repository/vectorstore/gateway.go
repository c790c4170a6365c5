package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// store is the consumer interface for the gateway (ISP).
//
//nolint:interfacebloat // gateway needs hash, counter, index, search and scan operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (*db.IndexDefinition, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, keyPrefix string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	ScanPage(ctx context.Context, pattern string, cursor uint64, count int) ([]string, uint64, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
	// Flat builds an exact brute-force index instead; M and EFConstruct are ignored.
	Flat bool
}

// Config tunes the gateway.
type Config struct {
	KeyPrefix string
	// OpTimeout bounds every store round-trip sequence; zero disables it.
	OpTimeout time.Duration
	HNSW      HNSWConfig
	// CandidatePage is how many term-matching records a sparse query fetches
	// per round-trip. Every candidate is scored regardless.
	CandidatePage int
	// IDF weights sparse matches by inverse document frequency.
	IDF bool
}

const defaultCandidatePage = 1000

// Gateway implements the vector store operations on top of the Redis Query Engine.
type Gateway struct {
	store store
	keys  keys
	cfg   Config
}

// New creates a gateway.
func New(s store, cfg Config) *Gateway {
	if cfg.CandidatePage <= 0 {
		cfg.CandidatePage = defaultCandidatePage
	}
	if cfg.HNSW.M <= 0 {
		cfg.HNSW.M = 16
	}
	if cfg.HNSW.EFConstruct <= 0 {
		cfg.HNSW.EFConstruct = 200
	}
	return &Gateway{store: s, keys: keys{prefix: cfg.KeyPrefix}, cfg: cfg}
}

// EnsureCollection creates the collection if absent and returns the schema
// actually stored. An existing collection must be compatible with want;
// one without a lexical field is accepted and returned as such. An index
// without schema metadata (restored from a backup, created by another tool)
// is checked against its FT.INFO attributes, and the metadata is written
// from what the index holds.
func (g *Gateway) EnsureCollection(ctx context.Context, want collection.Schema) (_ collection.Schema, err error) {
	defer observe("ensure_collection", time.Now(), &err)
	ctx, cancel := g.opContext(ctx)
	defer cancel()

	name := want.Name()
	meta, err := g.store.HGetAll(ctx, g.keys.meta(name))
	if err != nil {
		return collection.Schema{}, storeError(domain.StageEnsureCollection, fmt.Errorf("read schema %s: %w", name, err))
	}

	effective := want
	if len(meta) > 0 {
		existing, err := schemaFromHash(meta)
		if err != nil {
			return collection.Schema{}, schemaError(domain.StageEnsureCollection, err)
		}
		if err := want.CheckCompatible(existing); err != nil {
			return collection.Schema{}, schemaError(domain.StageEnsureCollection,
				fmt.Errorf("collection %s: %w", name, err))
		}
		effective = existing
	}

	exists, err := g.store.IndexExists(ctx, g.keys.index(name))
	if err != nil {
		return collection.Schema{}, storeError(domain.StageEnsureCollection, fmt.Errorf("check index %s: %w", name, err))
	}
	if exists && len(meta) == 0 {
		existing, err := g.indexSchema(ctx, name)
		if err != nil {
			return collection.Schema{}, err
		}
		if err := want.CheckCompatible(existing); err != nil {
			return collection.Schema{}, schemaError(domain.StageEnsureCollection,
				fmt.Errorf("index %s: %w", g.keys.index(name), err))
		}
		effective = existing
	}
	if !exists {
		def, err := g.buildIndex(effective)
		if err != nil {
			return collection.Schema{}, domain.AtStage(domain.StageEnsureCollection, fmt.Errorf("build index: %w", err))
		}
		// a concurrent caller may have won the race
		if err := g.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return collection.Schema{}, storeError(domain.StageEnsureCollection, fmt.Errorf("%s: %w", def, err))
		}
	}

	if len(meta) == 0 {
		if err := g.store.HSet(ctx, g.keys.meta(name), schemaToHash(effective)); err != nil {
			return collection.Schema{}, storeError(domain.StageEnsureCollection, fmt.Errorf("write schema %s: %w", name, err))
		}
	}

	return effective, nil
}

func (g *Gateway) indexSchema(ctx context.Context, name string) (collection.Schema, error) {
	def, err := g.store.IndexInfo(ctx, g.keys.index(name))
	if err != nil {
		return collection.Schema{}, storeError(domain.StageEnsureCollection, fmt.Errorf("read index %s: %w", name, err))
	}
	existing, err := schemaFromIndex(name, def)
	if err != nil {
		return collection.Schema{}, schemaError(domain.StageEnsureCollection, err)
	}
	return existing, nil
}

func (g *Gateway) buildIndex(col collection.Schema) (*db.IndexDefinition, error) {
	b := db.NewIndex(g.keys.index(col.Name())).Prefix(g.keys.pointPrefix(col.Name()))
	if g.cfg.HNSW.Flat {
		b = b.VectorFlat(col.DenseField(), col.Dimension(), db.DistanceCosine)
	} else {
		b = b.VectorHNSW(col.DenseField(), col.Dimension(), db.DistanceCosine, g.cfg.HNSW.M, g.cfg.HNSW.EFConstruct)
	}
	if col.HasLexical() {
		b = b.Tag(termsField(col.LexicalField()), termsSep, true)
	}
	return b.Build()
}

// Upsert writes or overwrites records by id. A failure part way through may
// leave earlier records of the batch written. Document frequency counters are
// pipelined right behind the HSET of the record they belong to, so the counted
// records stay in step with the written ones.
func (g *Gateway) Upsert(ctx context.Context, col collection.Schema, records []document.VectorRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer observe("upsert", time.Now(), &err)
	ctx, cancel := g.opContext(ctx)
	defer cancel()

	name := col.Name()
	items := make([]db.HashSetItem, len(records))
	pointKeys := make([]string, len(records))
	for i := range records {
		rec := &records[i]
		if len(rec.Dense()) != col.Dimension() {
			return schemaError(domain.StageUpsert,
				fmt.Errorf("record %s: dense width %d, collection expects %d", rec.ID(), len(rec.Dense()), col.Dimension()))
		}
		fields, err := recordToHash(col, rec)
		if err != nil {
			return domain.AtStage(domain.StageUpsert, err)
		}
		pointKeys[i] = g.keys.point(name, rec.ID())
		items[i] = db.HashSetItem{Key: pointKeys[i], Fields: fields}
	}

	if col.HasLexical() {
		old, err := g.store.HGetMulti(ctx, pointKeys, termsField(col.LexicalField()))
		if err != nil {
			return storeError(domain.StageUpsert, fmt.Errorf("read previous terms: %w", err))
		}
		for i, d := range g.dfDeltas(name, records, old) {
			items[i].Incr = d
		}
	}

	if err := g.store.HSetMulti(ctx, items); err != nil {
		return storeError(domain.StageUpsert, fmt.Errorf("hset records %s: %w", name, err))
	}
	return nil
}

// dfDeltas computes the document frequency change of each record, aligned
// with records. Overwriting a record only counts the difference between its
// previous and new term sets, and a repeated id inside one batch is compared
// against its earlier version.
func (g *Gateway) dfDeltas(col string, records []document.VectorRecord, oldTags []string) []map[string]int64 {
	current := make(map[string][]string, len(records))
	out := make([]map[string]int64, len(records))
	for i := range records {
		id := records[i].ID()
		prev, seen := current[id]
		if !seen {
			prev = parseTerms(oldTags[i])
		}
		next := termStrings(records[i].Sparse().Indices)

		prevSet := make(map[string]struct{}, len(prev))
		for _, t := range prev {
			prevSet[t] = struct{}{}
		}
		deltas := make(map[string]int64)
		for _, t := range next {
			if _, ok := prevSet[t]; ok {
				delete(prevSet, t)
				continue
			}
			deltas[g.keys.df(col, t)]++
		}
		for t := range prevSet {
			deltas[g.keys.df(col, t)]--
		}
		out[i] = deltas
		current[id] = next
	}
	return out
}

// Count returns the number of records in the collection.
func (g *Gateway) Count(ctx context.Context, col collection.Schema) (_ int, err error) {
	defer observe("count", time.Now(), &err)
	ctx, cancel := g.opContext(ctx)
	defer cancel()

	n, err := g.store.SearchCount(ctx, g.keys.index(col.Name()), g.keys.pointPrefix(col.Name()))
	if err != nil {
		return 0, storeError(domain.StageCount, fmt.Errorf("count %s: %w", col.Name(), err))
	}
	return n, nil
}

func observe(op string, start time.Time, err *error) {
	metrics.StoreOpDuration.WithLabelValues(op, metrics.StatusLabel(*err)).Observe(time.Since(start).Seconds())
}

func (g *Gateway) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.OpTimeout)
}

// storeError classifies a db error: missing index or schema problems are
// SchemaMismatch, everything else is StoreUnavailable.
func storeError(stage domain.Stage, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) || errors.Is(err, db.ErrSchema) {
		return schemaError(stage, err)
	}
	return domain.AtStage(stage, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
}

func schemaError(stage domain.Stage, err error) error {
	return domain.AtStage(stage, fmt.Errorf("%w: %w", domain.ErrSchemaMismatch, err))
}
