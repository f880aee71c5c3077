package materialize

import (
	"fmt"
	"strings"

	"memgraph/domain/core/aggregates"
)

// Mirror document headings.
const (
	EntitiesHeading  = "## Entities"
	RelationsHeading = "## Relations"
	TriplesHeading   = "## Retrieval Triples"
)

// ToMirrorDocument renders the whole graph as a markdown document. Output
// depends only on the graph contents.
func ToMirrorDocument(g *aggregates.KnowledgeGraph) string {
	labels := g.Labels()
	resolve := func(id string) string {
		if label, ok := labels[id]; ok && label != "" {
			return label
		}
		return id
	}

	var b strings.Builder
	b.WriteString("# Knowledge Graph\n\n")
	fmt.Fprintf(&b, "_Updated %s. %d entities, %d relations._\n\n",
		g.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"), len(g.Nodes), len(g.Edges))

	b.WriteString(EntitiesHeading + "\n\n")
	if len(g.Nodes) == 0 {
		b.WriteString("_None._\n")
	}
	for _, node := range g.Nodes {
		fmt.Fprintf(&b, "- **%s** (`%s`, %s, confidence %.2f, source %s)", node.Label, node.ID, node.Kind, node.Confidence, node.Source)
		if len(node.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(node.Tags, ", "))
		}
		b.WriteString("\n")
		if node.Summary != "" {
			fmt.Fprintf(&b, "  - %s\n", node.Summary)
		}
	}

	b.WriteString("\n" + RelationsHeading + "\n\n")
	if len(g.Edges) == 0 {
		b.WriteString("_None._\n")
	}
	for _, edge := range g.Edges {
		fmt.Fprintf(&b, "- %s --%s--> %s (weight %.2f)", resolve(edge.Source), edge.Relation, resolve(edge.Target), edge.Weight)
		if edge.Evidence != "" {
			fmt.Fprintf(&b, " evidence: %s", edge.Evidence)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + TriplesHeading + "\n\n")
	for _, edge := range g.Edges {
		fmt.Fprintf(&b, "- %s | %s | %s\n", resolve(edge.Source), edge.Relation, resolve(edge.Target))
	}

	return b.String()
}
