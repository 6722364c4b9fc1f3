package health

import (
	"context"
	"errors"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the catalog or the embedding provider is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// checkTimeout bounds each component check.
const checkTimeout = 2 * time.Second

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	indexes   IndexChecker
	indexList []string
	embedding EmbeddingChecker
}

// New creates a Service. indexes and embedding can be nil.
func New(db DBPinger, indexes IndexChecker, indexList []string, embedding EmbeddingChecker) *Service {
	return &Service{db: db, indexes: indexes, indexList: indexList, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = result(run(ctx, s.db.Ping))

	if s.indexes != nil && checks["database"] == CheckOK {
		checks["catalog"] = result(run(ctx, s.catalogReady))
	}

	if s.embedding != nil {
		checks["embedding"] = result(run(ctx, s.embedding.HealthCheck))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) catalogReady(ctx context.Context) error {
	for _, name := range s.indexList {
		ok, err := s.indexes.IndexExists(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return errIndexMissing
		}
	}
	return nil
}

var errIndexMissing = errors.New("index missing")

func run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return fn(ctx)
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
