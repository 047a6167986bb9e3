package embedding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/pkg/observability"
)

const maxAttempts = 3

type job struct {
	projectKey string
	chunks     ports.ChunkStore
	chunkID    string
	attempt    int
}

// Worker computes embeddings for ingested chunks off the request path.
// Enqueue never blocks: when the buffer is full the job is dropped and
// counted, and the chunk simply stays lexical-only until re-ingested.
type Worker struct {
	provider Provider
	jobs     chan job
	metrics  *observability.Metrics
	logger   *zap.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWorker creates a worker with the given queue capacity
func NewWorker(provider Provider, queueSize int, metrics *observability.Metrics, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Worker{
		provider: provider,
		jobs:     make(chan job, queueSize),
		metrics:  metrics,
		logger:   logger,
		stopped:  make(chan struct{}),
	}
}

// Start launches the processing goroutines
func (w *Worker) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	w.logger.Info("embedding worker started",
		zap.Int("workers", workers),
		zap.Int("queue_capacity", cap(w.jobs)),
		zap.String("model", w.provider.Model()),
	)
}

// Stop signals the goroutines and waits for in-flight jobs to finish.
// Jobs still buffered at shutdown are abandoned; their chunks stay
// lexical-only.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
	})
	w.wg.Wait()
}

// Enqueue implements ports.EmbeddingQueue
func (w *Worker) Enqueue(projectKey string, chunks ports.ChunkStore, chunkID string) bool {
	select {
	case <-w.stopped:
		return false
	default:
	}

	select {
	case w.jobs <- job{projectKey: projectKey, chunks: chunks, chunkID: chunkID, attempt: 1}:
		w.metrics.EmbeddingQueue.Inc()
		return true
	default:
		w.metrics.EmbeddingJobs.WithLabelValues("dropped").Inc()
		w.logger.Warn("embedding queue full, dropping chunk",
			zap.String("project_key", projectKey),
			zap.String("chunk_id", chunkID),
		)
		return false
	}
}

// EmbedQuery implements services.QueryEmbedder for search-time embeddings
func (w *Worker) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return w.provider.Embed(ctx, text)
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopped:
			return
		case j := <-w.jobs:
			w.metrics.EmbeddingQueue.Dec()
			w.process(j)
		}
	}
}

func (w *Worker) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chunk, err := j.chunks.GetChunk(ctx, j.chunkID)
	if err != nil || chunk == nil || chunk.Superseded() {
		// Chunk was deleted or replaced while queued, nothing to embed.
		w.metrics.EmbeddingJobs.WithLabelValues("skipped").Inc()
		return
	}

	vector, err := w.provider.Embed(ctx, chunk.Content())
	if err != nil {
		w.retry(j, err)
		return
	}

	emb, err := entities.NewEmbedding(chunk.ID(), vector, w.provider.Model())
	if err != nil {
		w.metrics.EmbeddingJobs.WithLabelValues("failed").Inc()
		w.logger.Error("invalid embedding vector",
			zap.String("chunk_id", j.chunkID),
			zap.Error(err),
		)
		return
	}

	if err := j.chunks.SetEmbedding(ctx, emb); err != nil {
		w.retry(j, err)
		return
	}

	w.metrics.EmbeddingJobs.WithLabelValues("ok").Inc()
}

func (w *Worker) retry(j job, cause error) {
	if j.attempt >= maxAttempts {
		w.metrics.EmbeddingJobs.WithLabelValues("failed").Inc()
		w.logger.Error("embedding job failed permanently",
			zap.String("project_key", j.projectKey),
			zap.String("chunk_id", j.chunkID),
			zap.Int("attempts", j.attempt),
			zap.Error(cause),
		)
		return
	}

	w.logger.Warn("embedding job failed, requeueing",
		zap.String("chunk_id", j.chunkID),
		zap.Int("attempt", j.attempt),
		zap.Error(cause),
	)

	j.attempt++
	select {
	case <-w.stopped:
	case w.jobs <- j:
		w.metrics.EmbeddingQueue.Inc()
	default:
		w.metrics.EmbeddingJobs.WithLabelValues("dropped").Inc()
	}
}
