package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
)

func TestScroll_Pagination(t *testing.T) {
	s := newFakeStore()
	g := newTestGateway(s)
	ctx := context.Background()
	col, _ := g.EnsureCollection(ctx, testSchema())

	recs := make([]document.VectorRecord, 0, 25)
	for i := range 25 {
		recs = append(recs, mustRecord(fmt.Sprintf("doc-%02d", i), "t", []float32{1, 0, 0, 0}, map[uint32]float32{1: 1}))
	}
	if err := g.Upsert(ctx, col, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := g.Scroll(ctx, col, cursor, 7, nil)
		if err != nil {
			t.Fatalf("scroll: %v", err)
		}
		pages++
		if len(page.Records) > 7 {
			t.Fatalf("page size %d exceeds limit", len(page.Records))
		}
		for _, r := range page.Records {
			if seen[r.ID()] {
				t.Errorf("duplicate record %s", r.ID())
			}
			seen[r.ID()] = true
			if r.Dense() != nil {
				t.Error("vectors should be omitted when not requested")
			}
		}
		if page.Next == "" {
			break
		}
		cursor = page.Next
		if pages > 10 {
			t.Fatal("scroll did not terminate")
		}
	}
	if len(seen) != 25 {
		t.Errorf("saw %d records, want 25", len(seen))
	}
}

func TestScroll_IgnoresNonPointKeys(t *testing.T) {
	s := newFakeStore()
	g := newTestGateway(s)
	ctx := context.Background()
	col, _ := g.EnsureCollection(ctx, testSchema())
	_ = g.Upsert(ctx, col, []document.VectorRecord{
		mustRecord("a", "x", []float32{1, 0, 0, 0}, map[uint32]float32{1: 1}),
	})

	page, err := g.Scroll(ctx, col, "", 100, nil)
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if len(page.Records) != 1 {
		t.Errorf("records = %d, want 1 (meta and df keys excluded)", len(page.Records))
	}
}

func TestScroll_Validation(t *testing.T) {
	g := newTestGateway(newFakeStore())
	ctx := context.Background()

	if _, err := g.Scroll(ctx, testSchema(), "", 0, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("limit 0: expected ErrValidation, got %v", err)
	}
	for _, c := range []string{"abc", "1", "x.a", "-1.a"} {
		if _, err := g.Scroll(ctx, testSchema(), c, 10, nil); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("cursor %q: expected ErrValidation, got %v", c, err)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	scan, after, err := parseCursor(formatCursor(12345, "doc.7"))
	if err != nil || scan != 12345 || after != "doc.7" {
		t.Errorf("got %d %q %v", scan, after, err)
	}
}

func TestScroll_ResumesAfterLastIDWhenPageShrinks(t *testing.T) {
	s := newFakeStore()
	g := newTestGateway(s)
	ctx := context.Background()
	col, _ := g.EnsureCollection(ctx, testSchema())

	var recs []document.VectorRecord
	for _, id := range []string{"a", "b", "c", "d"} {
		recs = append(recs, mustRecord(id, "t", []float32{1, 0, 0, 0}, map[uint32]float32{1: 1}))
	}
	if err := g.Upsert(ctx, col, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := g.Scroll(ctx, col, "", 2, nil)
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if ids := recordIDs(first.Records); fmt.Sprint(ids) != "[a b]" {
		t.Fatalf("first page = %v", ids)
	}

	// a record already returned goes away before the next call
	delete(s.hashes, "semsearch:products:pt:a")

	second, err := g.Scroll(ctx, col, first.Next, 2, nil)
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if ids := recordIDs(second.Records); fmt.Sprint(ids) != "[c d]" {
		t.Errorf("second page = %v, want [c d]", ids)
	}
}

func recordIDs(recs []document.VectorRecord) []string {
	out := make([]string, len(recs))
	for i := range recs {
		out[i] = recs[i].ID()
	}
	return out
}
