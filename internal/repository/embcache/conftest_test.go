package embcache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// mockBackend returns one two-component vector per text and records every call.
type mockBackend struct {
	err   error
	calls [][]string
}

func (m *mockBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

// mockKVStore is an in-memory implementation of the consumer interface.
type mockKVStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	mgetErr error
	setErr  error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.mgetErr != nil {
		return nil, m.mgetErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCache(inner *mockBackend, cfg Config) (*CachedBackend, *mockKVStore) {
	ms := newMockKVStore()
	if cfg.Backend == "" {
		cfg = Config{KeyPrefix: "semsearch:", Backend: "local", Model: "hash-v1"}
	}
	return New(inner, ms, cfg, nil, zap.NewNop()), ms
}
