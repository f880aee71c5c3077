package evidence

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/core/aggregates"
)

func TestParse_ChunksAndFacts(t *testing.T) {
	content := strings.Join([]string{
		"# Journal",
		"",
		"Spent the morning on",
		"the importer rewrite.",
		"",
		"## Decisions",
		"- Use the **new** parser",
		"- use new parser!",
		"Owner: Dana",
	}, "\n")

	chunks, facts := Parse(content, 80, 40)

	require.Len(t, chunks, 6)
	assert.Equal(t, SourceChunk{Kind: ChunkHeading, Text: "Journal", StartLine: 1, EndLine: 1}, chunks[0])
	assert.Equal(t, SourceChunk{Kind: ChunkParagraph, Text: "Spent the morning on the importer rewrite.", StartLine: 3, EndLine: 4}, chunks[1])
	assert.Equal(t, ChunkHeading, chunks[2].Kind)
	assert.Equal(t, "Use the new parser", chunks[3].Text)
	assert.Equal(t, 7, chunks[3].StartLine)
	assert.Equal(t, SourceChunk{Kind: ChunkParagraph, Text: "Owner: Dana", StartLine: 9, EndLine: 9}, chunks[5])

	require.Len(t, facts, 2, "the second bullet canonicalizes to the first")
	assert.Equal(t, SourceFact{Topic: "Decisions", Statement: "Use the new parser", Line: 7, Confidence: 0.7}, facts[0])
	assert.Equal(t, "Owner: Dana", facts[1].Statement)
	assert.Equal(t, 0.8, facts[1].Confidence)
	assert.Equal(t, 9, facts[1].Line)
}

func TestParse_Caps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "- item %d\n", i)
	}

	chunks, facts := Parse(b.String(), 80, 40)

	assert.Len(t, chunks, 80)
	assert.Len(t, facts, 40)
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, CanonicalKey("Use the new parser"), CanonicalKey("use NEW parser!!"))
	assert.NotContains(t, strings.Fields(CanonicalKey("the cat and the dog")), "the")
	assert.Equal(t, "", CanonicalKey("!!! ..."))
}

func TestRankDocuments(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []SourceDocument{
		{Name: "old.md", ModTime: base},
		{Name: "new.md", ModTime: base.Add(2 * time.Hour)},
		{Name: "cited.md", ModTime: base.Add(-time.Hour)},
		{Name: "tagged.md", ModTime: base.Add(time.Hour)},
	}
	graph := &aggregates.KnowledgeGraph{
		Nodes: []aggregates.GraphNode{{ID: "a", Source: "manual", Tags: []string{"tagged"}}},
		Edges: []aggregates.GraphEdge{{ID: "e", Evidence: "CITED.md"}},
	}

	ranked := RankDocuments(docs, CollectHints(graph))

	names := make([]string, 0, len(ranked))
	for _, d := range ranked {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"tagged.md", "cited.md", "new.md", "old.md"}, names)
	assert.True(t, ranked[0].Hinted)
	assert.False(t, ranked[2].Hinted)
	assert.False(t, docs[0].Hinted, "input is not mutated")
}

func TestRankMessages(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	session := func(key string, n int, offset time.Duration) []RecentChatMessage {
		var out []RecentChatMessage
		for i := 0; i < n; i++ {
			out = append(out, RecentChatMessage{SessionKey: key, Text: fmt.Sprint(i), Timestamp: base.Add(offset + time.Duration(i)*time.Minute)})
		}
		return out
	}

	ranked := RankMessages([][]RecentChatMessage{
		session("a", 10, 0),
		session("b", 3, time.Hour),
	}, 8, 10)

	require.Len(t, ranked, 10)
	assert.Equal(t, "b", ranked[0].SessionKey)
	assert.Equal(t, "2", ranked[0].Text)
	for i := 1; i < len(ranked); i++ {
		assert.False(t, ranked[i].Timestamp.After(ranked[i-1].Timestamp))
	}
	count := 0
	for _, m := range ranked {
		if m.SessionKey == "a" {
			count++
		}
	}
	assert.Equal(t, 7, count)
}
