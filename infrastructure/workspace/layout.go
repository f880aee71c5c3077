package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"memgraph/application/ports"
)

// Layout locates workspace files. Every path except Root is slash-separated
// and relative to the workspace filesystem.
type Layout struct {
	Root       string
	Memory     string
	JournalDir string
	Graph      string
	Mirror     string
	Sessions   string
}

// OSPath returns the host path of a layout-relative path.
func (l Layout) OSPath(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// Paths reports the engine-owned files as host paths.
func (l Layout) Paths() ports.WorkspacePaths {
	return ports.WorkspacePaths{
		Workspace: l.Root,
		Graph:     l.OSPath(l.Graph),
		Mirror:    l.OSPath(l.Mirror),
		Memory:    l.OSPath(l.Memory),
	}
}

// Clean normalizes every relative path so it is valid for an fs.FS.
func (l Layout) Clean() Layout {
	clean := func(p string) string {
		p = path.Clean(filepath.ToSlash(p))
		return strings.TrimPrefix(p, "/")
	}
	l.Memory = clean(l.Memory)
	l.JournalDir = clean(l.JournalDir)
	l.Graph = clean(l.Graph)
	l.Mirror = clean(l.Mirror)
	if l.Sessions != "" {
		l.Sessions = clean(l.Sessions)
	}
	return l
}

// OpenOS returns the host directory root as a hackpadfs filesystem.
func OpenOS(root string) (hackpadfs.FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", root, err)
	}
	sub := strings.TrimPrefix(filepath.ToSlash(abs), "/")
	if sub == "" {
		sub = "."
	}
	fsys, err := osfs.NewFS().Sub(sub)
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", abs, err)
	}
	return fsys, nil
}
