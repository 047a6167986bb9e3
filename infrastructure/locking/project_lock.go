package locking

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ProjectLocker serializes ingestion per project key with in-process
// keyed mutexes. Acquire blocks until the lock is free or the context is
// done, so two concurrent scans of the same project never interleave
// their writes.
type ProjectLocker struct {
	mu      sync.Mutex
	holders map[string]chan struct{}
	logger  *zap.Logger
}

// NewProjectLocker creates a new in-process project locker
func NewProjectLocker(logger *zap.Logger) *ProjectLocker {
	return &ProjectLocker{
		holders: make(map[string]chan struct{}),
		logger:  logger,
	}
}

// Acquire takes the lock for a project key. The returned release function
// must be called exactly once.
func (l *ProjectLocker) Acquire(ctx context.Context, projectKey string) (func(), error) {
	for {
		l.mu.Lock()
		holder, held := l.holders[projectKey]
		if !held {
			done := make(chan struct{})
			l.holders[projectKey] = done
			l.mu.Unlock()

			var once sync.Once
			release := func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.holders, projectKey)
					l.mu.Unlock()
					close(done)
				})
			}
			return release, nil
		}
		l.mu.Unlock()

		l.logger.Debug("waiting for project lock", zap.String("project_key", projectKey))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-holder:
			// Holder released, try again.
		}
	}
}
