package redis

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/db"
)

const defaultScanCount = 100

// Scan iterates all keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		page, next, err := s.ScanPage(ctx, pattern, cursor, defaultScanCount)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// ScanPage runs one SCAN step. The returned cursor is 0 when iteration is complete.
// COUNT is a hint: a page may hold fewer or more keys than requested.
func (s *Store) ScanPage(ctx context.Context, pattern string, cursor uint64, count int) ([]string, uint64, error) {
	if count <= 0 {
		count = defaultScanCount
	}
	cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(int64(count)).Build()
	res, err := s.do(ctx, cmd).AsScanEntry()
	if err != nil {
		return nil, 0, s.wrap(db.OpScan, err)
	}
	return res.Elements, res.Cursor, nil
}
