package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Flavor selects server-specific query strategies.
type Flavor string

const (
	// FlavorRedis targets Redis 8+ with the bundled Query Engine.
	FlavorRedis Flavor = "redis"
	// FlavorValkey targets Valkey with valkey-search, which only answers
	// KNN queries: tag filters, listing and counting go through SCAN.
	FlavorValkey Flavor = "valkey"
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Flavor   Flavor
}

// Store implements db.Store via rueidis.
type Store struct {
	client rueidis.Client
	flavor Flavor
}

// NewStore creates a store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	flavor := cfg.Flavor
	switch flavor {
	case "":
		flavor = FlavorRedis
	case FlavorRedis, FlavorValkey:
	default:
		return nil, fmt.Errorf("unknown flavor %q", cfg.Flavor)
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, flavor: flavor}, nil
}

// Flavor reports the configured server flavor.
func (s *Store) Flavor() Flavor { return s.flavor }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.b().Ping().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.wrap(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// Server replies that mean the query does not fit the index schema.
var schemaErrMarkers = []string{
	"unknown field",
	"not loaded nor in schema",
	"blob size",
	"invalid field type",
}

// wrap attaches the command name and classifies err as schema, missing index
// or unavailable. Non-server errors (dial, timeout) are always unavailable.
func (s *Store) wrap(op string, err error) error {
	return &db.Error{Op: op, Err: classify(err)}
}

func classify(err error) error {
	if _, ok := serverErr(err); !ok {
		return fmt.Errorf("%w: %w", db.ErrUnavailable, err)
	}
	if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
		return fmt.Errorf("%w: %w", db.ErrIndexNotFound, err)
	}
	for _, m := range schemaErrMarkers {
		if isRedisErr(err, m) {
			return fmt.Errorf("%w: %w", db.ErrSchema, err)
		}
	}
	return err
}

// serverErr unwraps a server error reply. A nil reply is not an error here.
func serverErr(err error) (*rueidis.RedisError, bool) {
	var re *rueidis.RedisError
	if !errors.As(err, &re) || re.IsNil() {
		return nil, false
	}
	return re, true
}

// isRedisErr reports whether err is a server reply containing substr.
// substr must be lower case.
func isRedisErr(err error, substr string) bool {
	re, ok := serverErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), substr)
}
