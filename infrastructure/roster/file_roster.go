// Package roster reads the agent roster from a YAML file or from the
// runtime gateway.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hack-pad/hackpadfs"
	"gopkg.in/yaml.v3"

	"memgraph/domain/services/synthesis"
)

type rosterDocument struct {
	Agents []synthesis.Agent `yaml:"agents"`
}

// FileRoster reads agents from a YAML document in the workspace. Both a
// top-level list and an `agents:` key are accepted.
type FileRoster struct {
	fsys hackpadfs.FS
	path string
}

// NewFileRoster creates a file-backed roster
func NewFileRoster(fsys hackpadfs.FS, path string) *FileRoster {
	return &FileRoster{fsys: fsys, path: path}
}

// List implements ports.AgentRoster. A missing file is an empty roster.
func (r *FileRoster) List(ctx context.Context) ([]synthesis.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := hackpadfs.ReadFile(r.fsys, r.path)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return []synthesis.Agent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", r.path, err)
	}
	return parseRoster(data)
}

func parseRoster(data []byte) ([]synthesis.Agent, error) {
	var agents []synthesis.Agent
	if err := yaml.Unmarshal(data, &agents); err != nil {
		var doc rosterDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
		agents = doc.Agents
	}

	out := make([]synthesis.Agent, 0, len(agents))
	for _, agent := range agents {
		agent.ID = strings.TrimSpace(agent.ID)
		if agent.ID == "" {
			continue
		}
		out = append(out, agent)
	}
	return out, nil
}
