package chi

import (
	"context"

	documentuc "github.com/kailas-cloud/semsearch/internal/usecase/document"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Searcher runs retrieval.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
}

// Documents adds and lists records.
type Documents interface {
	Add(ctx context.Context, text string) (string, error)
	ListPoints(ctx context.Context, limit int) ([]documentuc.Point, error)
}

// HealthReporter aggregates component checks.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
