package search

import (
	"sort"

	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const DefaultRRFK = 60

// fuseRRF merges dense and sparse rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// Ties keep dense-first order of first appearance.
func fuseRRF(dense, sparse []result.Result, k, topK int) []result.Result {
	type scored struct {
		res   result.Result
		score float64
		order int
	}

	merged := make(map[string]*scored, len(dense)+len(sparse))
	add := func(list []result.Result) {
		for rank, r := range list {
			s := 1.0 / float64(k+rank+1)
			if existing, ok := merged[r.ID()]; ok {
				existing.score += s
				continue
			}
			merged[r.ID()] = &scored{res: r, score: s, order: len(merged)}
		}
	}
	add(dense)
	add(sparse)

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	if len(all) > topK {
		all = all[:topK]
	}
	results := make([]result.Result, len(all))
	for i, s := range all {
		results[i] = s.res.WithScore(s.score)
	}
	return results
}
