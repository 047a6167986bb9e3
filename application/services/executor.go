package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// AttemptFunc runs one query operation against one backend. It reports
// whether the backend served data: a nil error with empty=true means the
// backend is healthy but holds nothing for the project.
type AttemptFunc func(ctx context.Context, backend ports.Backend) (result interface{}, empty bool, err error)

// QueryExecutor walks a project's backend candidates in order and returns
// the first non-empty answer. Candidates are never queried concurrently:
// a later backend is only consulted after the earlier one failed or came
// back empty.
type QueryExecutor struct {
	resolver ports.BackendResolver
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewQueryExecutor creates a query executor with a per-attempt timeout
func NewQueryExecutor(resolver ports.BackendResolver, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *QueryExecutor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QueryExecutor{
		resolver: resolver,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute runs the attempt against each ordered candidate until one serves
// data. Returns the result and serving backend, noData=true when every
// live backend answered empty, or AllBackendsFailed when none answered.
func (e *QueryExecutor) Execute(ctx context.Context, ref valueobjects.ProjectRef, operation string, attempt AttemptFunc) (interface{}, string, bool, error) {
	candidates := e.resolver.Candidates(ctx, ref)
	if len(candidates) == 0 {
		return nil, "", false, pkgerrors.NewAllBackendsFailedError(operation, e.deadCandidateFailures(ref))
	}

	sawEmpty := false
	var failures []pkgerrors.BackendFailure

	for _, backend := range candidates {
		e.metrics.BackendAttempts.WithLabelValues(backend.Name()).Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, empty, err := attempt(attemptCtx, backend)
		cancel()

		if err != nil {
			e.metrics.BackendFailures.WithLabelValues(backend.Name()).Inc()
			e.logger.Warn("backend attempt failed",
				zap.String("operation", operation),
				zap.String("backend", backend.Name()),
				zap.Error(err),
			)
			failures = append(failures, pkgerrors.BackendFailure{
				Backend: backend.Name(),
				Reason:  err.Error(),
			})
			continue
		}

		if empty {
			sawEmpty = true
			continue
		}

		return result, backend.Name(), false, nil
	}

	if sawEmpty {
		return nil, "", true, nil
	}

	return nil, "", false, pkgerrors.NewAllBackendsFailedError(operation, failures)
}

// deadCandidateFailures explains an empty candidate list per backend
func (e *QueryExecutor) deadCandidateFailures(ref valueobjects.ProjectRef) []pkgerrors.BackendFailure {
	accepting := e.resolver.AcceptingBackends(ref)
	if len(accepting) == 0 {
		return []pkgerrors.BackendFailure{{
			Backend: "resolver",
			Reason:  fmt.Sprintf("no backend accepts %s project references", ref.Kind()),
		}}
	}

	failures := make([]pkgerrors.BackendFailure, 0, len(accepting))
	for _, b := range accepting {
		failures = append(failures, pkgerrors.BackendFailure{
			Backend: b.Name(),
			Reason:  "liveness probe failed",
		})
	}
	return failures
}

// CacheKey builds a normalized query cache key. Parameters are joined
// order-sensitively, so callers must pass them in a canonical order.
func CacheKey(queryType string, ref valueobjects.ProjectRef, params ...string) string {
	parts := append([]string{queryType, ref.String()}, params...)
	return strings.Join(parts, "|")
}
