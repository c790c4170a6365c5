package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// MGet fetches many values at once. Missing keys come back as nil.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmd := s.b().Mget().Key(keys...).Build()
	arr, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.wrap(db.OpMGet, err)
	}

	out := make([][]byte, len(keys))
	for i := range arr {
		if i >= len(out) || arr[i].IsNil() {
			continue
		}
		v, err := arr[i].ToString()
		if err != nil {
			return nil, s.wrap(db.OpMGet, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = []byte(v)
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.wrap(db.OpSet, err)
	}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.wrap(db.OpSet, err)
	}
	return nil
}
