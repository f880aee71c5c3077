package evidence

import (
	"path"
	"sort"
	"strings"

	"memgraph/domain/core/aggregates"
)

// Hints are lowercased document names referenced by a graph.
type Hints map[string]struct{}

// CollectHints gathers document references from node sources and tags and
// from edge evidence.
func CollectHints(g *aggregates.KnowledgeGraph) Hints {
	hints := make(Hints)
	if g == nil {
		return hints
	}
	add := func(value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			hints[value] = struct{}{}
		}
	}
	for _, node := range g.Nodes {
		add(node.Source)
		for _, tag := range node.Tags {
			add(tag)
		}
	}
	for _, edge := range g.Edges {
		add(edge.Evidence)
	}
	return hints
}

// Matches reports whether a document name, with or without its extension,
// is referenced.
func (h Hints) Matches(name string) bool {
	name = strings.ToLower(name)
	if _, ok := h[name]; ok {
		return true
	}
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	_, ok := h[base]
	return ok
}

// RankDocuments marks hinted documents and orders them first, then by
// modification time, newest first. Names break remaining ties.
func RankDocuments(docs []SourceDocument, hints Hints) []SourceDocument {
	ranked := append([]SourceDocument(nil), docs...)
	for i := range ranked {
		ranked[i].Hinted = hints.Matches(ranked[i].Name)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Hinted != b.Hinted {
			return a.Hinted
		}
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Name < b.Name
	})
	return ranked
}

// RankMessages keeps the newest perSession messages of every session and
// returns at most total of them, newest first.
func RankMessages(sessions [][]RecentChatMessage, perSession, total int) []RecentChatMessage {
	merged := make([]RecentChatMessage, 0)
	for _, messages := range sessions {
		sorted := append([]RecentChatMessage(nil), messages...)
		sortNewestFirst(sorted)
		if len(sorted) > perSession {
			sorted = sorted[:perSession]
		}
		merged = append(merged, sorted...)
	}
	sortNewestFirst(merged)
	if len(merged) > total {
		merged = merged[:total]
	}
	return merged
}

func sortNewestFirst(messages []RecentChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
}
