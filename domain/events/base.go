package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names used for subscription routing
const (
	EventTypeProjectIngested    = "project.ingested"
	EventTypeProjectDeleted     = "project.deleted"
	EventTypeDiagnosticsStored  = "project.diagnostics_stored"
	EventTypeEmbeddingsComputed = "project.embeddings_computed"
)

// Project Events

// ProjectIngested is raised after a scan record has been written to a
// backend. Cache invalidation listens for this event.
type ProjectIngested struct {
	BaseEvent
	ProjectKey    string `json:"project_key"`
	Backend       string `json:"backend"`
	CommitHash    string `json:"commit_hash,omitempty"`
	NodesUpserted int    `json:"nodes_upserted"`
	EdgesUpserted int    `json:"edges_upserted"`
	ChunksAdded   int    `json:"chunks_added"`
}

// NewProjectIngested creates a ProjectIngested event
func NewProjectIngested(projectKey, backend, commitHash string, nodes, edges, chunks int, timestamp time.Time) ProjectIngested {
	return ProjectIngested{
		BaseEvent: BaseEvent{
			AggregateID: projectKey,
			EventType:   EventTypeProjectIngested,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectKey:    projectKey,
		Backend:       backend,
		CommitHash:    commitHash,
		NodesUpserted: nodes,
		EdgesUpserted: edges,
		ChunksAdded:   chunks,
	}
}

// ProjectDeleted is raised after a project's graph data has been removed
type ProjectDeleted struct {
	BaseEvent
	ProjectKey string   `json:"project_key"`
	Backends   []string `json:"backends"`
}

// NewProjectDeleted creates a ProjectDeleted event
func NewProjectDeleted(projectKey string, backends []string, timestamp time.Time) ProjectDeleted {
	return ProjectDeleted{
		BaseEvent: BaseEvent{
			AggregateID: projectKey,
			EventType:   EventTypeProjectDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectKey: projectKey,
		Backends:   backends,
	}
}

// DiagnosticsStored is raised after analyzer findings are written
type DiagnosticsStored struct {
	BaseEvent
	ProjectKey string `json:"project_key"`
	Backend    string `json:"backend"`
	Count      int    `json:"count"`
}

// NewDiagnosticsStored creates a DiagnosticsStored event
func NewDiagnosticsStored(projectKey, backend string, count int, timestamp time.Time) DiagnosticsStored {
	return DiagnosticsStored{
		BaseEvent: BaseEvent{
			AggregateID: projectKey,
			EventType:   EventTypeDiagnosticsStored,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectKey: projectKey,
		Backend:    backend,
		Count:      count,
	}
}

// EmbeddingsComputed is raised by the background worker after a batch of
// chunk embeddings has been stored.
type EmbeddingsComputed struct {
	BaseEvent
	ProjectKey string `json:"project_key"`
	Model      string `json:"model"`
	Count      int    `json:"count"`
}

// NewEmbeddingsComputed creates an EmbeddingsComputed event
func NewEmbeddingsComputed(projectKey, model string, count int, timestamp time.Time) EmbeddingsComputed {
	return EmbeddingsComputed{
		BaseEvent: BaseEvent{
			AggregateID: projectKey,
			EventType:   EventTypeEmbeddingsComputed,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectKey: projectKey,
		Model:      model,
		Count:      count,
	}
}
