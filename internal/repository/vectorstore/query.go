package vectorstore

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Query returns up to topK records nearest to the query vector under field.
// The field selects which half of q is used; a field the collection does not
// have is a SchemaMismatch.
func (g *Gateway) Query(
	ctx context.Context, col collection.Schema, field string, q result.QueryVector, topK int,
) (_ []result.Result, err error) {
	defer observe("query", time.Now(), &err)
	if topK < 1 {
		return nil, domain.AtStage(domain.StageQuery, domain.Validationf("top_k must be >= 1, got %d", topK))
	}

	switch {
	case field == col.DenseField():
		if len(q.Dense) != col.Dimension() {
			return nil, schemaError(domain.StageQuery,
				fmt.Errorf("query width %d, field %s expects %d", len(q.Dense), field, col.Dimension()))
		}
		return g.queryDense(ctx, col, q.Dense, topK)
	case col.HasLexical() && field == col.LexicalField():
		if q.Sparse == nil {
			return nil, domain.AtStage(domain.StageQuery, domain.Validationf("sparse query vector is required for field %s", field))
		}
		return g.querySparse(ctx, col, *q.Sparse, topK)
	default:
		return nil, schemaError(domain.StageQuery, fmt.Errorf("collection %s has no vector field %q", col.Name(), field))
	}
}

func (g *Gateway) queryDense(
	ctx context.Context, col collection.Schema, v vector.Dense, topK int,
) ([]result.Result, error) {
	ctx, cancel := g.opContext(ctx)
	defer cancel()

	sr, err := g.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    g.keys.index(col.Name()),
		Field:        col.DenseField(),
		Vector:       v,
		K:            topK,
		ReturnFields: []string{fieldPayload},
	})
	if err != nil {
		return nil, storeError(domain.StageQuery, fmt.Errorf("search knn %s: %w", col.Name(), err))
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		payload, err := decodePayload(e.Fields[fieldPayload])
		if err != nil {
			return nil, domain.AtStage(domain.StageQuery, fmt.Errorf("record %s: %w", e.Key, err))
		}
		results = append(results, result.New(g.keys.pointID(col.Name(), e.Key), e.Score, payload))
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// querySparse pages through every record sharing at least one term with q
// (TAG index) and scores each client-side: sum of q_i * d_i, times idf_i when
// enabled. Only the running top k are kept; records scoring <= 0 are dropped.
// Payloads are fetched for the winners only.
func (g *Gateway) querySparse(
	ctx context.Context, col collection.Schema, q vector.Sparse, topK int,
) ([]result.Result, error) {
	if q.IsEmpty() {
		return []result.Result{}, nil
	}
	ctx, cancel := g.opContext(ctx)
	defer cancel()

	terms := termStrings(q.Indices)
	weights := q.Weights()
	if g.cfg.IDF {
		idf, err := g.idf(ctx, col, q.Indices, terms)
		if err != nil {
			return nil, err
		}
		for i, idx := range q.Indices {
			weights[idx] *= idf[i]
		}
	}

	page := g.cfg.CandidatePage
	var top []scored
	for offset := 0; ; offset += page {
		sr, err := g.store.SearchTags(ctx, &db.TagQuery{
			IndexName:    g.keys.index(col.Name()),
			KeyPrefix:    g.keys.pointPrefix(col.Name()),
			Field:        termsField(col.LexicalField()),
			Separator:    termsSep,
			Values:       terms,
			Offset:       offset,
			Limit:        page,
			ReturnFields: []string{col.LexicalField()},
		})
		if err != nil {
			return nil, storeError(domain.StageQuery, fmt.Errorf("search terms %s: %w", col.Name(), err))
		}
		for _, e := range sr.Entries {
			if score := sparseScore(weights, bytesToSparse(e.Fields[col.LexicalField()])); score > 0 {
				top = append(top, scored{key: e.Key, score: score})
			}
		}
		slices.SortStableFunc(top, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
		if len(top) > topK {
			top = top[:topK]
		}
		if len(sr.Entries) < page {
			break
		}
	}
	return g.withPayloads(ctx, col, top)
}

type scored struct {
	key   string
	score float64
}

func sparseScore(weights map[uint32]float32, doc vector.Sparse) float64 {
	var score float64
	for i, idx := range doc.Indices {
		if w, ok := weights[idx]; ok {
			score += float64(w) * float64(doc.Values[i])
		}
	}
	return score
}

func (g *Gateway) withPayloads(ctx context.Context, col collection.Schema, top []scored) ([]result.Result, error) {
	results := make([]result.Result, 0, len(top))
	if len(top) == 0 {
		return results, nil
	}
	keys := make([]string, len(top))
	for i := range top {
		keys[i] = top[i].key
	}
	raw, err := g.store.HGetMulti(ctx, keys, fieldPayload)
	if err != nil {
		return nil, storeError(domain.StageQuery, fmt.Errorf("load payloads %s: %w", col.Name(), err))
	}
	for i, c := range top {
		payload, err := decodePayload(raw[i])
		if err != nil {
			return nil, domain.AtStage(domain.StageQuery, fmt.Errorf("record %s: %w", c.key, err))
		}
		results = append(results, result.New(g.keys.pointID(col.Name(), c.key), c.score, payload))
	}
	return results, nil
}

// idf returns ln(1 + (N - n + 0.5) / (n + 0.5)) per query term, where N is the
// record count and n the term's document frequency (clamped to [0, N]).
func (g *Gateway) idf(ctx context.Context, col collection.Schema, indices []uint32, terms []string) ([]float32, error) {
	total, err := g.store.SearchCount(ctx, g.keys.index(col.Name()), g.keys.pointPrefix(col.Name()))
	if err != nil {
		return nil, storeError(domain.StageQuery, fmt.Errorf("count %s: %w", col.Name(), err))
	}

	dfKeys := make([]string, len(terms))
	for i, t := range terms {
		dfKeys[i] = g.keys.df(col.Name(), t)
	}
	raw, err := g.store.MGet(ctx, dfKeys)
	if err != nil {
		return nil, storeError(domain.StageQuery, fmt.Errorf("read term frequencies %s: %w", col.Name(), err))
	}

	n := float64(total)
	out := make([]float32, len(indices))
	for i := range indices {
		var df float64
		if i < len(raw) && raw[i] != nil {
			if v, err := strconv.ParseInt(string(raw[i]), 10, 64); err == nil {
				df = float64(v)
			}
		}
		df = min(max(df, 0), n)
		out[i] = float32(math.Log(1 + (n-df+0.5)/(df+0.5)))
	}
	return out, nil
}
