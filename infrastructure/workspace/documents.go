package workspace

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"memgraph/application/ports"
	"memgraph/pkg/utils"
)

// DocumentSource lists journals and reference documents straight from the
// workspace filesystem.
type DocumentSource struct {
	fsys   hackpadfs.FS
	layout Layout
}

// NewDocumentSource creates a document source
func NewDocumentSource(fsys hackpadfs.FS, layout Layout) *DocumentSource {
	return &DocumentSource{fsys: fsys, layout: layout.Clean()}
}

// Journals lists YYYY-MM-DD*.md files, newest date first. A missing
// journal directory is an empty workspace, not an error.
func (s *DocumentSource) Journals(ctx context.Context, limit int) ([]ports.DocumentInfo, error) {
	infos, err := s.list(ctx, s.layout.JournalDir, func(name string) bool {
		_, ok := utils.ParseJournalDate(name)
		return ok
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		di, _ := utils.ParseJournalDate(infos[i].Name)
		dj, _ := utils.ParseJournalDate(infos[j].Name)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		if !infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].ModTime.After(infos[j].ModTime)
		}
		return infos[i].Name > infos[j].Name
	})

	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

// References lists markdown files at the workspace root, by name.
func (s *DocumentSource) References(ctx context.Context) ([]ports.DocumentInfo, error) {
	infos, err := s.list(ctx, ".", func(name string) bool {
		return strings.EqualFold(path.Ext(name), ".md")
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Read returns one document's content
func (s *DocumentSource) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := hackpadfs.ReadFile(s.fsys, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *DocumentSource) list(ctx context.Context, dir string, keep func(string) bool) ([]ports.DocumentInfo, error) {
	entries, err := hackpadfs.ReadDir(s.fsys, dir)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return []ports.DocumentInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	infos := make([]ports.DocumentInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ports.DocumentInfo{
			Name:    entry.Name(),
			Path:    path.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return infos, nil
}
