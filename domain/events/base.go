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

// SourceEngine is the event source name on the bus
const SourceEngine = "memgraph.engine"

// Event types
const (
	TypeGraphBootstrapped = "graph.bootstrapped"
	TypeDocumentsInjected = "graph.documents_injected"
	TypeGraphSaved        = "graph.saved"
	TypeSnapshotPublished = "memory.snapshot_published"
)

func newBase(workspace, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: workspace,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// GraphBootstrapped is raised when a graph is built from scratch
type GraphBootstrapped struct {
	BaseEvent
	Source    string   `json:"source"`
	Files     []string `json:"files"`
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
}

// NewGraphBootstrapped creates a GraphBootstrapped event
func NewGraphBootstrapped(workspace, source string, files []string, nodeCount, edgeCount int, timestamp time.Time) GraphBootstrapped {
	return GraphBootstrapped{
		BaseEvent: newBase(workspace, TypeGraphBootstrapped, timestamp),
		Source:    source,
		Files:     files,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// DocumentsInjected is raised when injection adds nodes to a saved graph
type DocumentsInjected struct {
	BaseEvent
	AddedNodes []string `json:"added_nodes"`
	AddedEdges []string `json:"added_edges"`
}

// NewDocumentsInjected creates a DocumentsInjected event
func NewDocumentsInjected(workspace string, addedNodes, addedEdges []string, timestamp time.Time) DocumentsInjected {
	return DocumentsInjected{
		BaseEvent:  newBase(workspace, TypeDocumentsInjected, timestamp),
		AddedNodes: addedNodes,
		AddedEdges: addedEdges,
	}
}

// GraphSaved is raised when a client-submitted graph is persisted
type GraphSaved struct {
	BaseEvent
	NodeCount int  `json:"node_count"`
	EdgeCount int  `json:"edge_count"`
	Reindex   bool `json:"reindex"`
}

// NewGraphSaved creates a GraphSaved event
func NewGraphSaved(workspace string, nodeCount, edgeCount int, reindex bool, timestamp time.Time) GraphSaved {
	return GraphSaved{
		BaseEvent: newBase(workspace, TypeGraphSaved, timestamp),
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
		Reindex:   reindex,
	}
}

// SnapshotPublished is raised when the snapshot section is upserted into the memory document
type SnapshotPublished struct {
	BaseEvent
	Path    string `json:"path"`
	Reindex bool   `json:"reindex"`
}

// NewSnapshotPublished creates a SnapshotPublished event
func NewSnapshotPublished(workspace, path string, reindex bool, timestamp time.Time) SnapshotPublished {
	return SnapshotPublished{
		BaseEvent: newBase(workspace, TypeSnapshotPublished, timestamp),
		Path:      path,
		Reindex:   reindex,
	}
}
