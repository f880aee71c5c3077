package ports

import (
	"context"
	"errors"
	"time"

	"memgraph/domain/core/aggregates"
	"memgraph/domain/events"
	"memgraph/domain/services/evidence"
	"memgraph/domain/services/synthesis"
)

// ErrGraphNotFound is returned by GraphStore.Load when no canonical store exists yet.
var ErrGraphNotFound = errors.New("canonical graph not found")

// GraphStore persists the canonical graph and its mirror document.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type GraphStore interface {
	// Load returns the raw canonical store bytes or ErrGraphNotFound
	Load(ctx context.Context) ([]byte, error)

	// Save writes the canonical store
	Save(ctx context.Context, graph *aggregates.KnowledgeGraph) error

	// SaveMirror writes the human-readable mirror document
	SaveMirror(ctx context.Context, content string) error

	// Paths reports where the graph is materialized
	Paths() WorkspacePaths
}

// WorkspacePaths locates the workspace and the files the engine owns.
type WorkspacePaths struct {
	Workspace string `json:"workspace"`
	Graph     string `json:"graph"`
	Mirror    string `json:"mirror"`
	Memory    string `json:"memory"`
}

// Meta is the graph metadata stamped on every normalized graph.
func (p WorkspacePaths) Meta() aggregates.GraphMeta {
	return aggregates.GraphMeta{
		Workspace:  p.Workspace,
		MirrorPath: p.Mirror,
		MemoryPath: p.Memory,
	}
}

// MemoryDocument is the user-owned long-term memory file.
type MemoryDocument interface {
	// Read returns the current content, or "" when the file does not exist
	Read(ctx context.Context) (string, error)

	// Write replaces the whole content
	Write(ctx context.Context, content string) error

	// Name is the file name used for provenance
	Name() string
}

// DocumentInfo describes one workspace document.
type DocumentInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// DocumentSource lists and reads workspace documents directly from the filesystem.
type DocumentSource interface {
	// Journals lists dated journal files, newest first, at most limit
	Journals(ctx context.Context, limit int) ([]DocumentInfo, error)

	// References lists root-level markdown documents, the memory document included
	References(ctx context.Context) ([]DocumentInfo, error)

	// Read returns one document's content
	Read(ctx context.Context, path string) (string, error)
}

// IndexedFile is one file reassembled from the chunk index.
type IndexedFile struct {
	Path      string
	Content   string
	UpdatedAt time.Time
}

// ChunkIndex queries and refreshes previously indexed content.
type ChunkIndex interface {
	// RecentFiles returns the most recently indexed files, newest first
	RecentFiles(ctx context.Context, limit int) ([]IndexedFile, error)

	// Reindex replaces the chunks of the given files
	Reindex(ctx context.Context, files []IndexedFile) error
}

// AgentRoster lists the agents configured in the runtime.
type AgentRoster interface {
	List(ctx context.Context) ([]synthesis.Agent, error)
}

// SessionHistory reads recent conversation transcripts.
type SessionHistory interface {
	// Sessions lists session keys, most recently active first
	Sessions(ctx context.Context, limit int) ([]string, error)

	// Recent returns up to limit messages of one session
	Recent(ctx context.Context, sessionKey string, limit int) ([]evidence.RecentChatMessage, error)
}

// Reindexer refreshes the chunk index from workspace documents.
type Reindexer interface {
	Reindex(ctx context.Context, trigger string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// Metrics records engine outcomes.
type Metrics interface {
	RecordGraphLoad(outcome string)
	RecordSave()
	RecordPublish()
	RecordDegraded(source string)
	RecordReindex(trigger string, err error)
}
