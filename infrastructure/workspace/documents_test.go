package workspace

import (
	"context"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, files map[string]string) hackpadfs.FS {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, hackpadfs.MkdirAll(fsys, "memory", 0o755))
	for name, content := range files {
		require.NoError(t, hackpadfs.WriteFullFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func TestDocumentSource_Journals(t *testing.T) {
	fsys := seed(t, map[string]string{
		"memory/2026-03-01.md":         "one",
		"memory/2026-03-03.md":         "three",
		"memory/2026-03-02-standup.md": "two",
		"memory/knowledge-graph.md":    "mirror",
		"memory/2026-03-04.txt":        "not markdown",
		"MEMORY.md":                    "root",
	})
	src := NewDocumentSource(fsys, Layout{Root: "/ws", JournalDir: "memory"})

	infos, err := src.Journals(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "2026-03-03.md", infos[0].Name)
	assert.Equal(t, "memory/2026-03-03.md", infos[0].Path)
	assert.Equal(t, "2026-03-02-standup.md", infos[1].Name)
	assert.EqualValues(t, len("three"), infos[0].Size)

	content, err := src.Read(context.Background(), infos[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "three", content)
}

func TestDocumentSource_MissingJournalDir(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	src := NewDocumentSource(fsys, Layout{JournalDir: "memory"})

	infos, err := src.Journals(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestDocumentSource_References(t *testing.T) {
	fsys := seed(t, map[string]string{
		"USER.md":              "user",
		"MEMORY.md":            "memory",
		"notes.txt":            "skip",
		"memory/2026-03-01.md": "journal",
	})
	src := NewDocumentSource(fsys, Layout{JournalDir: "memory"})

	infos, err := src.References(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "MEMORY.md", infos[0].Name)
	assert.Equal(t, "USER.md", infos[1].Name)
}

func TestLayout_Paths(t *testing.T) {
	layout := Layout{
		Root:   "/srv/agent",
		Memory: "./MEMORY.md",
		Graph:  "memory//knowledge-graph.json",
		Mirror: "/memory/knowledge-graph.md",
	}.Clean()

	assert.Equal(t, "MEMORY.md", layout.Memory)
	assert.Equal(t, "memory/knowledge-graph.json", layout.Graph)
	assert.Equal(t, "memory/knowledge-graph.md", layout.Mirror)
	assert.Equal(t, "/srv/agent/memory/knowledge-graph.json", layout.Paths().Graph)
}
