package materialize

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/core/aggregates"
)

func TestUpsertSnapshotSection_AppendsWhenMissing(t *testing.T) {
	doc := "# Memory\n\nUser notes stay here.\n\n\n"

	out := UpsertSnapshotSection(doc, "SNAP v1")

	assert.True(t, strings.HasPrefix(out, "# Memory\n\nUser notes stay here.\n\n"+StartMarker))
	assert.Equal(t, 1, strings.Count(out, StartMarker))
	assert.Equal(t, 1, strings.Count(out, EndMarker))
	spans, ok := SplitSnapshot(out)
	require.True(t, ok)
	assert.Equal(t, "\nSNAP v1\n", spans.Body)
}

func TestUpsertSnapshotSection_EmptyDocument(t *testing.T) {
	out := UpsertSnapshotSection("", "SNAP")
	assert.Equal(t, StartMarker+"\nSNAP\n"+EndMarker+"\n", out)
}

func TestUpsertSnapshotSection_ReplacesOnlyBetweenMarkers(t *testing.T) {
	prefix := "# Memory\n\n- keep me\n\n" + StartMarker
	suffix := EndMarker + "\n\n## Later\n- also keep me\n"
	doc := prefix + "\nold snapshot\nwith lines\n" + suffix

	out := UpsertSnapshotSection(doc, "\n\nnew snapshot\n\n")

	assert.Equal(t, prefix+"\nnew snapshot\n"+suffix, out)
}

func TestUpsertSnapshotSection_Idempotent(t *testing.T) {
	docs := []string{
		"",
		"# Memory\n- a\n",
		"no trailing newline",
		"before\n" + StartMarker + "\nstale\n" + EndMarker + "\nafter",
	}

	for i, doc := range docs {
		t.Run(fmt.Sprintf("doc-%d", i), func(t *testing.T) {
			once := UpsertSnapshotSection(doc, "SECTION")
			twice := UpsertSnapshotSection(once, "SECTION")
			assert.Equal(t, once, twice)
		})
	}
}

func TestSplitSnapshot_OutOfOrderMarkers(t *testing.T) {
	doc := "intro\n" + EndMarker + "\nmiddle\n" + StartMarker + "\ntail"
	_, ok := SplitSnapshot(doc)
	assert.False(t, ok)

	out := UpsertSnapshotSection(doc, "SNAP")
	assert.True(t, strings.HasPrefix(out, doc+"\n\n"))

	again := UpsertSnapshotSection(out, "SNAP 2")
	assert.True(t, strings.HasPrefix(again, doc+"\n\n"), "orphan markers and text between them survive")
	assert.Contains(t, again, "SNAP 2")
	assert.NotContains(t, again, "SNAP\n")
}

func TestBuildSnapshotSection_RanksAndCaps(t *testing.T) {
	g := &aggregates.KnowledgeGraph{
		Version:   aggregates.GraphVersion,
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 15; i++ {
		g.Nodes = append(g.Nodes, aggregates.GraphNode{
			ID:         fmt.Sprintf("n%d", i),
			Label:      fmt.Sprintf("Node %02d", i),
			Kind:       "fact",
			Confidence: float64(i) / 100,
		})
	}
	for i := 0; i < 25; i++ {
		g.Edges = append(g.Edges, aggregates.GraphEdge{
			ID:       fmt.Sprintf("e%d", i),
			Source:   "n0",
			Target:   fmt.Sprintf("n%d", i%15),
			Relation: fmt.Sprintf("rel%02d", i),
			Weight:   float64(i) / 100,
		})
	}

	section := BuildSnapshotSection(g, 12, 20)
	split := strings.Index(section, "### Key Relations")
	require.Positive(t, split)
	entities := section[:split]

	assert.Contains(t, entities, "Node 14")
	assert.Contains(t, entities, "Node 03")
	assert.NotContains(t, entities, "Node 02")
	assert.Less(t, strings.Index(entities, "Node 14"), strings.Index(entities, "Node 13"))
	assert.Contains(t, section, "rel24")
	assert.Contains(t, section, "rel05")
	assert.NotContains(t, section, "rel04")
	assert.False(t, strings.HasSuffix(section, "\n"))
}

func TestBuildSnapshotSection_MarkerTextCannotEscapeBlock(t *testing.T) {
	g := &aggregates.KnowledgeGraph{
		Version:   aggregates.GraphVersion,
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Nodes: []aggregates.GraphNode{
			{ID: "a", Label: "x " + EndMarker + " y", Kind: "fact", Summary: StartMarker, Confidence: 0.9},
			{ID: "b", Label: "Beta", Kind: "topic", Confidence: 0.8},
		},
		Edges: []aggregates.GraphEdge{
			{ID: "e1", Source: "a", Target: "b", Relation: "<!-- rel -->", Weight: 0.7},
		},
	}
	section := BuildSnapshotSection(g, 12, 20)
	assert.NotContains(t, section, "<!--")
	assert.NotContains(t, section, "-->")

	doc := "# Notes\n\nkeep me\n"
	once := UpsertSnapshotSection(doc, section)
	twice := UpsertSnapshotSection(once, section)
	thrice := UpsertSnapshotSection(twice, section)

	assert.Equal(t, once, twice)
	assert.Equal(t, once, thrice)
	assert.Equal(t, 1, strings.Count(thrice, StartMarker))
	assert.Equal(t, 1, strings.Count(thrice, EndMarker))
	assert.True(t, strings.HasPrefix(thrice, doc+"\n"+StartMarker))
}

func TestStripSnapshot(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no markers", "# Memory\n- a\n", "# Memory\n- a\n"},
		{
			"published block",
			"# Memory\n- a\n\n" + StartMarker + "\n## Knowledge Graph Snapshot\n- Memory Core\n" + EndMarker + "\n- b\n",
			"# Memory\n- a\n\n\n\n\n\n- b\n",
		},
		{
			"orphan end marker kept",
			"intro\n" + EndMarker + "\ntail",
			"intro\n" + EndMarker + "\ntail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripSnapshot(tt.doc)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.Count(tt.doc, "\n"), strings.Count(got, "\n"))
		})
	}
}
