package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

const dropChunk = 500

// DropCollection removes the index, the schema, every record and every
// document frequency counter of the named collection. A missing collection
// is not an error. The op timeout does not apply: the key scan is unbounded.
func (g *Gateway) DropCollection(ctx context.Context, name string) (err error) {
	defer observe("drop_collection", time.Now(), &err)

	if err := g.store.DropIndex(ctx, g.keys.index(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return storeError(domain.StageDropCollection, fmt.Errorf("drop index %s: %w", name, err))
	}

	keys, err := g.store.Scan(ctx, g.keys.base(name)+"*")
	if err != nil {
		return storeError(domain.StageDropCollection, fmt.Errorf("scan %s: %w", name, err))
	}
	for start := 0; start < len(keys); start += dropChunk {
		end := min(start+dropChunk, len(keys))
		if err := g.store.Del(ctx, keys[start:end]...); err != nil {
			return storeError(domain.StageDropCollection, fmt.Errorf("delete keys of %s: %w", name, err))
		}
	}
	return nil
}
