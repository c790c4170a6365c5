package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade; consumers declare narrow interfaces of their own
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Scanner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET. Incr lists
// counters bumped right after the HSET, in the same pipeline.
type HashSetItem struct {
	Key    string
	Fields map[string]string
	Incr   map[string]int64
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	// HGetMulti reads one field from many hashes; missing values come back as "".
	HGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	// MGet returns values in key order; missing keys yield nil entries.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// IndexInfo reads back the schema of an existing index. Only the
	// attributes IndexDefinition models are filled in.
	IndexInfo(ctx context.Context, name string) (*IndexDefinition, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchTags(ctx context.Context, q *TagQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, keyPrefix string) (int, error)
}

// Scanner iterates keys page by page. Cursor 0 starts and ends an iteration.
type Scanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	ScanPage(ctx context.Context, pattern string, cursor uint64, count int) ([]string, uint64, error)
}
