package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Scroll returns up to limit records starting at cursor ("" starts over).
// Payloads are always returned; fields names the vector fields to include.
//
// The cursor is "{scan cursor}.{last id returned from that scan page}", so a
// SCAN page larger than limit can be consumed across several calls. Resuming
// after the last id rather than a count keeps deletes and inserts between
// calls from shifting the page; SCAN itself may still repeat keys across a
// rehash.
func (g *Gateway) Scroll(
	ctx context.Context, col collection.Schema, cursor string, limit int, fields []string,
) (_ document.Page, err error) {
	defer observe("scroll", time.Now(), &err)
	if limit < 1 {
		return document.Page{}, domain.AtStage(domain.StageScroll, domain.Validationf("limit must be >= 1, got %d", limit))
	}
	scan, after, err := parseCursor(cursor)
	if err != nil {
		return document.Page{}, domain.AtStage(domain.StageScroll, err)
	}

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	pattern := g.keys.pointPrefix(col.Name()) + "*"
	count := min(max(limit, 10), 1000)
	page := document.Page{Records: make([]document.VectorRecord, 0, limit)}

	for {
		keys, next, err := g.store.ScanPage(ctx, pattern, scan, count)
		if err != nil {
			return document.Page{}, storeError(domain.StageScroll, fmt.Errorf("scan %s: %w", col.Name(), err))
		}
		slices.Sort(keys)
		if after != "" {
			i, found := slices.BinarySearch(keys, g.keys.point(col.Name(), after))
			if found {
				i++
			}
			keys = keys[i:]
		}

		need := limit - len(page.Records)
		if len(keys) > need {
			if err := g.load(ctx, col, keys[:need], fields, &page); err != nil {
				return document.Page{}, err
			}
			page.Next = formatCursor(scan, g.keys.pointID(col.Name(), keys[need-1]))
			return page, nil
		}

		if err := g.load(ctx, col, keys, fields, &page); err != nil {
			return document.Page{}, err
		}
		if next == 0 {
			return page, nil
		}
		scan, after = next, ""
		if len(page.Records) >= limit {
			page.Next = formatCursor(scan, "")
			return page, nil
		}
	}
}

func (g *Gateway) load(
	ctx context.Context, col collection.Schema, keys, fields []string, page *document.Page,
) error {
	if len(keys) == 0 {
		return nil
	}
	hashes, err := g.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return storeError(domain.StageScroll, fmt.Errorf("load records %s: %w", col.Name(), err))
	}

	withDense := slices.Contains(fields, col.DenseField())
	withSparse := col.HasLexical() && slices.Contains(fields, col.LexicalField())

	for i, h := range hashes {
		if len(h) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		rec, err := hashToRecord(col, g.keys.pointID(col.Name(), keys[i]), h)
		if err != nil {
			return domain.AtStage(domain.StageScroll, err)
		}
		var dense vector.Dense
		var sparse vector.Sparse
		if withDense {
			dense = rec.Dense()
		}
		if withSparse {
			sparse = rec.Sparse()
		}
		page.Records = append(page.Records, document.Reconstruct(rec.ID(), dense, sparse, rec.Payload()))
	}
	return nil
}

func formatCursor(scan uint64, after string) string {
	return strconv.FormatUint(scan, 10) + "." + after
}

func parseCursor(s string) (uint64, string, error) {
	if s == "" {
		return 0, "", nil
	}
	scanPart, after, ok := strings.Cut(s, ".")
	if !ok {
		return 0, "", domain.Validationf("malformed cursor %q", s)
	}
	scan, err := strconv.ParseUint(scanPart, 10, 64)
	if err != nil {
		return 0, "", domain.Validationf("malformed cursor %q", s)
	}
	return scan, after, nil
}
