package health

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/collection"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the number of stored records.
type Counter interface {
	Count(ctx context.Context, col collection.Schema) (int, error)
}

// Checker checks encoder availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
