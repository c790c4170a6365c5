package search

import (
	"math"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

func TestFuseRRF_DisjointLists(t *testing.T) {
	dense := []result.Result{makeResult("a", 0.9), makeResult("b", 0.8)}
	sparse := []result.Result{makeResult("c", 5), makeResult("d", 4)}

	results := fuseRRF(dense, sparse, DefaultRRFK, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	// equal scores keep dense-first order
	want := []string{"a", "c", "b", "d"}
	for i, id := range want {
		if results[i].ID() != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID(), id)
		}
	}
}

func TestFuseRRF_OverlapScoresHigher(t *testing.T) {
	dense := []result.Result{makeResult("a", 0.9), makeResult("b", 0.8), makeResult("c", 0.7)}
	sparse := []result.Result{makeResult("c", 3), makeResult("a", 2)}

	results := fuseRRF(dense, sparse, DefaultRRFK, 10)
	if results[0].ID() != "a" {
		t.Errorf("expected a first, got %s", results[0].ID())
	}

	wantA := 1.0/61 + 1.0/62
	if math.Abs(results[0].Score()-wantA) > 1e-12 {
		t.Errorf("score(a) = %f, want %f", results[0].Score(), wantA)
	}
	if results[0].Payload()["text"] != "content-a" {
		t.Error("payload should survive fusion")
	}
}

func TestFuseRRF_TopK(t *testing.T) {
	dense := []result.Result{makeResult("a", 1), makeResult("b", 1), makeResult("c", 1)}
	results := fuseRRF(dense, nil, DefaultRRFK, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	if results := fuseRRF(nil, nil, DefaultRRFK, 5); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestFuseRRF_NonIncreasing(t *testing.T) {
	dense := []result.Result{makeResult("a", 1), makeResult("b", 1), makeResult("c", 1), makeResult("d", 1)}
	sparse := []result.Result{makeResult("d", 1), makeResult("c", 1), makeResult("e", 1)}
	results := fuseRRF(dense, sparse, 1, 10)
	for i := 1; i < len(results); i++ {
		if results[i].Score() > results[i-1].Score() {
			t.Errorf("scores not sorted at %d: %f > %f", i, results[i].Score(), results[i-1].Score())
		}
	}
}
