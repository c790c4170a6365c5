package health

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Info is the static configuration echoed by health.
type Info struct {
	Mode    string
	Backend string
	Model   string
}

// Report aggregates health check results plus the collection summary.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	Collection string
	// Points is -1 when the count could not be read.
	Points    int
	Dimension int
	Lexical   bool
	Info
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	counter  Counter
	schema   collection.Schema
	checkers map[string]Checker
	info     Info
}

// New creates a Service. checkers maps a component name ("dense", "lexical")
// to its probe; nil entries are skipped.
func New(db DBPinger, counter Counter, schema collection.Schema, checkers map[string]Checker, info Info) *Service {
	cs := make(map[string]Checker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			cs[name] = c
		}
	}
	return &Service{db: db, counter: counter, schema: schema, checkers: cs, info: info}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx)
	checks := make(map[string]CheckResult, len(s.checkers)+1)

	if err := s.db.Ping(ctx); err != nil {
		log.Warn("Health: database ping failed", zap.Error(err))
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	for _, name := range slices.Sorted(maps.Keys(s.checkers)) {
		if err := s.checkers[name].HealthCheck(ctx); err != nil {
			log.Warn("Health: encoder check failed", zap.String("component", name), zap.Error(err))
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	points := -1
	if checks["database"] == CheckOK {
		n, err := s.counter.Count(ctx, s.schema)
		if err != nil {
			log.Warn("Health: count failed", zap.String("collection", s.schema.Name()), zap.Error(err))
			checks["collection"] = CheckError
		} else {
			points = n
			checks["collection"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{
		Status:     status,
		Checks:     checks,
		Collection: s.schema.Name(),
		Points:     points,
		Dimension:  s.schema.Dimension(),
		Lexical:    s.schema.HasLexical(),
		Info:       s.info,
	}
}
