package materialize

import (
	"fmt"
	"sort"
	"strings"

	"memgraph/domain/core/aggregates"
)

// Sentinel markers delimiting the engine-owned block of the memory document.
const (
	StartMarker = "<!-- KNOWLEDGE_GRAPH:START -->"
	EndMarker   = "<!-- KNOWLEDGE_GRAPH:END -->"
)

// BuildSnapshotSection renders the curated excerpt: the most confident nodes
// and the heaviest edges. Ties keep graph order.
func BuildSnapshotSection(g *aggregates.KnowledgeGraph, maxNodes, maxEdges int) string {
	nodes := append([]aggregates.GraphNode(nil), g.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Confidence > nodes[j].Confidence })
	if len(nodes) > maxNodes {
		nodes = nodes[:maxNodes]
	}

	edges := append([]aggregates.GraphEdge(nil), g.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	if len(edges) > maxEdges {
		edges = edges[:maxEdges]
	}

	labels := g.Labels()
	resolve := func(id string) string {
		if label, ok := labels[id]; ok && label != "" {
			return inert(label)
		}
		return inert(id)
	}

	var b strings.Builder
	b.WriteString("## Knowledge Graph Snapshot\n\n")
	fmt.Fprintf(&b, "_Generated %s from %d entities and %d relations._\n\n",
		g.UpdatedAt.UTC().Format("2006-01-02"), len(g.Nodes), len(g.Edges))

	b.WriteString("### Key Entities\n\n")
	for _, node := range nodes {
		fmt.Fprintf(&b, "- %s (%s, %.2f)", inert(node.Label), inert(node.Kind), node.Confidence)
		if node.Summary != "" && node.Summary != node.Label {
			fmt.Fprintf(&b, ": %s", inert(node.Summary))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n### Key Relations\n\n")
	for _, edge := range edges {
		fmt.Fprintf(&b, "- %s %s %s\n", resolve(edge.Source), inert(edge.Relation), resolve(edge.Target))
	}

	return strings.TrimRight(b.String(), "\n")
}

// commentBreaker defuses HTML comment delimiters so graph text can never
// forge a snapshot marker.
var commentBreaker = strings.NewReplacer("<!--", "<!- -", "-->", "- ->")

func inert(text string) string {
	return commentBreaker.Replace(text)
}

// Spans is a document split around the snapshot markers. Prefix ends with
// the start marker line and Suffix begins with the end marker.
type Spans struct {
	Prefix string
	Body   string
	Suffix string
}

// SplitSnapshot locates the marker pair. The pair is the first end marker
// that has a start marker before it, together with the nearest such start
// marker. It reports false when no ordered pair exists.
func SplitSnapshot(document string) (Spans, bool) {
	from := 0
	for {
		rel := strings.Index(document[from:], EndMarker)
		if rel < 0 {
			return Spans{}, false
		}
		end := from + rel
		if start := strings.LastIndex(document[:end], StartMarker); start >= 0 {
			bodyStart := start + len(StartMarker)
			return Spans{
				Prefix: document[:bodyStart],
				Body:   document[bodyStart:end],
				Suffix: document[end:],
			}, true
		}
		from = end + len(EndMarker)
	}
}

// StripSnapshot blanks out every marked snapshot block so the engine's own
// rendering is never read back as user content. Line numbers of the
// remaining text are preserved.
func StripSnapshot(document string) string {
	for {
		spans, ok := SplitSnapshot(document)
		if !ok {
			return document
		}
		head := strings.TrimSuffix(spans.Prefix, StartMarker)
		tail := strings.TrimPrefix(spans.Suffix, EndMarker)
		document = head + strings.Repeat("\n", strings.Count(spans.Body, "\n")) + tail
	}
}

// UpsertSnapshotSection replaces the content between the markers with
// section, or appends a fresh marked block when the markers are absent.
// Text outside the markers is never changed.
func UpsertSnapshotSection(document, section string) string {
	section = strings.Trim(section, "\n")
	if spans, ok := SplitSnapshot(document); ok {
		return spans.Prefix + "\n" + section + "\n" + spans.Suffix
	}

	block := StartMarker + "\n" + section + "\n" + EndMarker + "\n"
	head := strings.TrimRight(document, "\n")
	if head == "" {
		return block
	}
	return head + "\n\n" + block
}
