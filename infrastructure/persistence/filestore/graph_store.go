package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/hack-pad/hackpadfs"
	"go.uber.org/zap"

	"memgraph/application/ports"
	"memgraph/domain/core/aggregates"
	"memgraph/infrastructure/workspace"
)

const filePerm = 0o644

// GraphStore keeps the canonical graph as pretty-printed JSON next to its
// markdown mirror. Writes replace the whole file; concurrent saves are
// last-write-wins.
type GraphStore struct {
	fsys   hackpadfs.FS
	layout workspace.Layout
	logger *zap.Logger
}

// NewGraphStore creates a new graph store
func NewGraphStore(fsys hackpadfs.FS, layout workspace.Layout, logger *zap.Logger) *GraphStore {
	return &GraphStore{fsys: fsys, layout: layout.Clean(), logger: logger}
}

// Load implements ports.GraphStore
func (s *GraphStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := hackpadfs.ReadFile(s.fsys, s.layout.Graph)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil, ports.ErrGraphNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.layout.Graph, err)
	}
	return data, nil
}

// Save implements ports.GraphStore
func (s *GraphStore) Save(ctx context.Context, graph *aggregates.KnowledgeGraph) error {
	data, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := s.write(ctx, s.layout.Graph, append(data, '\n')); err != nil {
		return err
	}

	s.logger.Debug("Wrote canonical graph",
		zap.String("path", s.layout.Graph),
		zap.Int("bytes", len(data)))
	return nil
}

// SaveMirror implements ports.GraphStore
func (s *GraphStore) SaveMirror(ctx context.Context, content string) error {
	return s.write(ctx, s.layout.Mirror, []byte(content))
}

// Paths implements ports.GraphStore
func (s *GraphStore) Paths() ports.WorkspacePaths {
	return s.layout.Paths()
}

func (s *GraphStore) write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := path.Dir(name); dir != "." {
		if err := hackpadfs.MkdirAll(s.fsys, dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := hackpadfs.WriteFullFile(s.fsys, name, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
