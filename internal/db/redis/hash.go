package redis

import (
	"context"
	"fmt"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

func (s *Store) hsetCmd(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// pipeline sends one command per key in a single DoMulti round-trip and
// decodes each reply with read. A failing reply aborts with the key attached.
func pipeline[T any](
	ctx context.Context, s *Store, op string, keys []string,
	build func(i int, key string) rueidis.Completed,
	read func(rueidis.RedisResult) (T, error),
) ([]T, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, k := range keys {
		cmds[i] = build(i, k)
	}
	out := make([]T, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		v, err := read(res)
		if err != nil {
			return nil, s.wrap(op, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = v
	}
	return out, nil
}

// HSet writes fields into the hash at key.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.do(ctx, s.hsetCmd(key, fields)).Error(); err != nil {
		return s.wrap(db.OpHSet, err)
	}
	return nil
}

// HSetMulti writes many hashes in one round-trip. Each HSET is followed by
// the INCRBY commands of its item, so a broken pipeline leaves every written
// hash with its counters applied. Zero deltas are skipped.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	type target struct{ op, key string }
	cmds := make([]rueidis.Completed, 0, len(items))
	targets := make([]target, 0, len(items))
	for i := range items {
		it := &items[i]
		cmds = append(cmds, s.hsetCmd(it.Key, it.Fields))
		targets = append(targets, target{db.OpHSet, it.Key})

		counters := make([]string, 0, len(it.Incr))
		for k, d := range it.Incr {
			if d != 0 {
				counters = append(counters, k)
			}
		}
		slices.Sort(counters)
		for _, k := range counters {
			cmds = append(cmds, s.b().Incrby().Key(k).Increment(it.Incr[k]).Build())
			targets = append(targets, target{db.OpIncrBy, k})
		}
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return s.wrap(targets[i].op, fmt.Errorf("key %s: %w", targets[i].key, err))
		}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, s.wrap(db.OpHGetAll, err)
	}
	return m, nil
}

// HGetAllMulti fetches whole hashes for keys in one round-trip.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	return pipeline(ctx, s, db.OpHGetAll, keys,
		func(_ int, key string) rueidis.Completed { return s.b().Hgetall().Key(key).Build() },
		func(res rueidis.RedisResult) (map[string]string, error) { return res.AsStrMap() },
	)
}

// HGetMulti reads field from every hash in keys. Missing values are "".
func (s *Store) HGetMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	return pipeline(ctx, s, db.OpHGet, keys,
		func(_ int, key string) rueidis.Completed { return s.b().Hget().Key(key).Field(field).Build() },
		func(res rueidis.RedisResult) (string, error) {
			v, err := res.ToString()
			if rueidis.IsRedisNil(err) {
				return "", nil
			}
			return v, err
		},
	)
}

// Del removes keys. No keys is a no-op.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.do(ctx, s.b().Del().Key(keys...).Build()).Error(); err != nil {
		return s.wrap(db.OpDel, err)
	}
	return nil
}
