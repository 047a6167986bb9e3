package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// BackendResolver orders registered backends for a project reference.
// Backends registered with a preferred keying scheme come before
// catch-all backends, and registration order breaks ties, so the
// in-memory fallback should be registered last.
type BackendResolver struct {
	backends []registration
	logger   *zap.Logger
}

type registration struct {
	backend   ports.Backend
	preferred map[valueobjects.RefKind]bool
	breaker   *gobreaker.CircuitBreaker
}

// NewBackendResolver creates an empty resolver
func NewBackendResolver(logger *zap.Logger) *BackendResolver {
	return &BackendResolver{logger: logger}
}

// Register adds a backend. preferredKinds lists the keying schemes this
// backend is the natural home for; an empty list marks a catch-all.
func (r *BackendResolver) Register(backend ports.Backend, preferredKinds ...valueobjects.RefKind) {
	preferred := make(map[valueobjects.RefKind]bool, len(preferredKinds))
	for _, kind := range preferredKinds {
		preferred[kind] = true
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        backend.Name(),
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("backend circuit state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	r.backends = append(r.backends, registration{
		backend:   backend,
		preferred: preferred,
		breaker:   breaker,
	})
}

// Candidates returns the live backends accepting the reference, preferred
// keying scheme first, catch-alls last. Backends whose circuit is open or
// whose liveness probe fails are skipped.
func (r *BackendResolver) Candidates(ctx context.Context, ref valueobjects.ProjectRef) []ports.Backend {
	var preferred, fallback []ports.Backend

	for _, reg := range r.backends {
		if !reg.backend.Accepts(ref) {
			continue
		}
		if !r.isLive(ctx, reg) {
			continue
		}
		if reg.preferred[ref.Kind()] {
			preferred = append(preferred, reg.backend)
		} else {
			fallback = append(fallback, reg.backend)
		}
	}

	return append(preferred, fallback...)
}

// IngestTarget picks the backend writes for this reference go to: the
// first live candidate in resolution order.
func (r *BackendResolver) IngestTarget(ctx context.Context, ref valueobjects.ProjectRef) (ports.Backend, error) {
	candidates := r.Candidates(ctx, ref)
	if len(candidates) == 0 {
		return nil, pkgerrors.NewBackendUnavailableError(string(ref.Kind()),
			fmt.Errorf("no live backend accepts %s project references", ref.Kind()))
	}
	return candidates[0], nil
}

// AcceptingBackends returns every registered backend that accepts the
// reference, regardless of liveness
func (r *BackendResolver) AcceptingBackends(ref valueobjects.ProjectRef) []ports.Backend {
	var accepting []ports.Backend
	for _, reg := range r.backends {
		if reg.backend.Accepts(ref) {
			accepting = append(accepting, reg.backend)
		}
	}
	return accepting
}

func (r *BackendResolver) isLive(ctx context.Context, reg registration) bool {
	_, err := reg.breaker.Execute(func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return nil, reg.backend.Ping(probeCtx)
	})
	if err != nil {
		r.logger.Debug("backend not live",
			zap.String("backend", reg.backend.Name()),
			zap.Error(err),
		)
		return false
	}
	return true
}
