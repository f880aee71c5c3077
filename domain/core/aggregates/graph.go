package aggregates

import (
	"errors"
	"fmt"
	"time"
)

// GraphVersion is the only canonical store format version.
const GraphVersion = 1

// Provenance tags recorded on nodes.
const (
	SourceBootstrap  = "bootstrap"
	SourceManual     = "manual"
	SourceAgents     = "agents"
	SourceTemplate   = "template"
	SourceFilesystem = "filesystem"
	SourceIndexed    = "indexed"
)

// GraphNode is one entity of the knowledge graph
type GraphNode struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Tags       []string `json:"tags"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
}

// GraphEdge is a directed relation between two nodes
type GraphEdge struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
	Evidence string  `json:"evidence"`
}

// GraphMeta records where the graph lives and where it is materialized
type GraphMeta struct {
	Workspace  string `json:"workspace"`
	MirrorPath string `json:"mirrorPath"`
	MemoryPath string `json:"memoryPath"`
}

// KnowledgeGraph is the canonical graph document. Instances produced by
// Normalize always satisfy Validate.
type KnowledgeGraph struct {
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
	Meta      GraphMeta   `json:"meta"`
}

// NodeIDs returns the set of node ids in the graph.
func (g *KnowledgeGraph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		ids[node.ID] = struct{}{}
	}
	return ids
}

// EdgeIDs returns the set of edge ids in the graph.
func (g *KnowledgeGraph) EdgeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Edges))
	for _, edge := range g.Edges {
		ids[edge.ID] = struct{}{}
	}
	return ids
}

// HasNode reports whether a node with the given id exists
func (g *KnowledgeGraph) HasNode(id string) bool {
	for _, node := range g.Nodes {
		if node.ID == id {
			return true
		}
	}
	return false
}

// Labels maps node ids to their display labels
func (g *KnowledgeGraph) Labels() map[string]string {
	labels := make(map[string]string, len(g.Nodes))
	for _, node := range g.Nodes {
		labels[node.ID] = node.Label
	}
	return labels
}

// Validate ensures graph invariants
func (g *KnowledgeGraph) Validate() error {
	if g.Version != GraphVersion {
		return fmt.Errorf("unsupported graph version %d", g.Version)
	}

	nodeIDs := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		if node.ID == "" {
			return errors.New("node without id")
		}
		if _, dup := nodeIDs[node.ID]; dup {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		nodeIDs[node.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(g.Edges))
	for _, edge := range g.Edges {
		if _, dup := edgeIDs[edge.ID]; dup {
			return fmt.Errorf("duplicate edge id %q", edge.ID)
		}
		edgeIDs[edge.ID] = struct{}{}

		// Check for orphaned edges
		if _, ok := nodeIDs[edge.Source]; !ok {
			return fmt.Errorf("edge %q references non-existent source node", edge.ID)
		}
		if _, ok := nodeIDs[edge.Target]; !ok {
			return fmt.Errorf("edge %q references non-existent target node", edge.ID)
		}
	}

	return nil
}
