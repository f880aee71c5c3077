package aggregates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"memgraph/domain/config"
	"memgraph/domain/core/valueobjects"
)

const (
	defaultNodeKind   = "fact"
	defaultNodeSource = SourceManual
	layoutColumns     = 6
	layoutSpacingX    = 180
	layoutSpacingY    = 140
)

// Normalizer repairs arbitrary graph payloads into a KnowledgeGraph. It has
// no failure channel: malformed nodes are repaired and dangling edges dropped.
type Normalizer struct {
	limits *config.EngineLimits
	now    func() time.Time
}

// NewNormalizer creates a normalizer using the given limits
func NewNormalizer(limits *config.EngineLimits) *Normalizer {
	if limits == nil {
		limits = config.DefaultEngineLimits()
	}
	return &Normalizer{limits: limits, now: time.Now}
}

// WithClock overrides the clock used to stamp UpdatedAt.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{limits: n.limits, now: now}
}

// NormalizeJSON decodes data and normalizes it. Undecodable input yields an
// empty graph.
func (n *Normalizer) NormalizeJSON(data []byte, meta GraphMeta) *KnowledgeGraph {
	var raw interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		raw = nil
	}
	return n.Normalize(raw, meta)
}

// NormalizeGraph re-runs a typed graph through the same repair pass.
func (n *Normalizer) NormalizeGraph(g *KnowledgeGraph, meta GraphMeta) *KnowledgeGraph {
	if g == nil {
		return n.Normalize(nil, meta)
	}
	nodes := make([]interface{}, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		nodes = append(nodes, map[string]interface{}{
			"id":         node.ID,
			"label":      node.Label,
			"kind":       node.Kind,
			"summary":    node.Summary,
			"confidence": node.Confidence,
			"source":     node.Source,
			"tags":       node.Tags,
			"x":          node.X,
			"y":          node.Y,
		})
	}
	edges := make([]interface{}, 0, len(g.Edges))
	for _, edge := range g.Edges {
		edges = append(edges, map[string]interface{}{
			"id":       edge.ID,
			"source":   edge.Source,
			"target":   edge.Target,
			"relation": edge.Relation,
			"weight":   edge.Weight,
			"evidence": edge.Evidence,
		})
	}
	return n.Normalize(map[string]interface{}{"nodes": nodes, "edges": edges}, meta)
}

// Normalize converts raw, typically a decoded JSON object with "nodes" and
// "edges" arrays, into a graph that satisfies every KnowledgeGraph invariant.
func (n *Normalizer) Normalize(raw interface{}, meta GraphMeta) *KnowledgeGraph {
	obj, _ := raw.(map[string]interface{})
	rawNodes, _ := obj["nodes"].([]interface{})
	rawEdges, _ := obj["edges"].([]interface{})

	graph := &KnowledgeGraph{
		Version:   GraphVersion,
		UpdatedAt: n.now().UTC(),
		Nodes:     make([]GraphNode, 0, len(rawNodes)),
		Edges:     make([]GraphEdge, 0, len(rawEdges)),
		Meta:      meta,
	}

	nodeIDs := newIDAllocator()
	for index, item := range rawNodes {
		node, ok := n.normalizeNode(item, index, nodeIDs)
		if ok {
			graph.Nodes = append(graph.Nodes, node)
		}
	}

	edgeIDs := newIDAllocator()
	for index, item := range rawEdges {
		edge, ok := n.normalizeEdge(item, index, nodeIDs, edgeIDs)
		if ok {
			graph.Edges = append(graph.Edges, edge)
		}
	}

	return graph
}

func (n *Normalizer) normalizeNode(item interface{}, index int, ids *idAllocator) (GraphNode, bool) {
	var fields map[string]interface{}
	switch v := item.(type) {
	case map[string]interface{}:
		fields = v
	case string:
		fields = map[string]interface{}{"label": v}
	default:
		return GraphNode{}, false
	}

	label := strings.TrimSpace(asString(fields["label"]))
	if label == "" {
		label = strings.TrimSpace(asString(fields["name"]))
	}

	id := strings.TrimSpace(asString(fields["id"]))
	if id == "" {
		if label != "" {
			id = "node-" + valueobjects.SlugN(label, n.limits.MaxSlugLength)
		} else {
			id = "node-" + strconv.Itoa(index+1)
		}
	}
	id = ids.claim(id)

	if label == "" {
		label = id
	}

	kind := strings.TrimSpace(asString(fields["kind"]))
	if kind == "" {
		kind = defaultNodeKind
	}
	source := strings.TrimSpace(asString(fields["source"]))
	if source == "" {
		source = defaultNodeSource
	}

	defaultX, defaultY := DefaultPosition(index)
	x, ok := asFinite(fields["x"])
	if !ok {
		x = defaultX
	}
	y, ok := asFinite(fields["y"])
	if !ok {
		y = defaultY
	}

	return GraphNode{
		ID:         id,
		Label:      valueobjects.Truncate(label, n.limits.MaxLabelLength),
		Kind:       kind,
		Summary:    valueobjects.Truncate(strings.TrimSpace(asString(fields["summary"])), n.limits.MaxSummaryLength),
		Confidence: valueobjects.Clamp01(fields["confidence"], n.limits.DefaultNodeConfidence),
		Source:     source,
		Tags:       n.normalizeTags(fields["tags"]),
		X:          x,
		Y:          y,
	}, true
}

func (n *Normalizer) normalizeEdge(item interface{}, index int, nodeIDs, edgeIDs *idAllocator) (GraphEdge, bool) {
	fields, ok := item.(map[string]interface{})
	if !ok {
		return GraphEdge{}, false
	}

	source := strings.TrimSpace(asString(fields["source"]))
	target := strings.TrimSpace(asString(fields["target"]))
	if !nodeIDs.has(source) || !nodeIDs.has(target) {
		return GraphEdge{}, false
	}

	relation := strings.TrimSpace(asString(fields["relation"]))
	if relation == "" {
		relation = n.limits.DefaultRelation
	}

	id := strings.TrimSpace(asString(fields["id"]))
	if id == "" {
		id = "edge-" + valueobjects.SlugN(source+" "+relation+" "+target, 2*n.limits.MaxSlugLength)
	}
	id = edgeIDs.claim(id)

	return GraphEdge{
		ID:       id,
		Source:   source,
		Target:   target,
		Relation: relation,
		Weight:   valueobjects.Clamp01(fields["weight"], n.limits.DefaultEdgeWeight),
		Evidence: valueobjects.Truncate(strings.TrimSpace(asString(fields["evidence"])), n.limits.MaxSummaryLength),
	}, true
}

func (n *Normalizer) normalizeTags(value interface{}) []string {
	tags := make([]string, 0, n.limits.MaxTagsPerNode)
	seen := make(map[string]struct{})
	for _, tag := range asStringSlice(value) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == n.limits.MaxTagsPerNode {
			break
		}
	}
	return tags
}

// DefaultPosition lays nodes out on a grid by index. Coordinates are layout
// hints only.
func DefaultPosition(index int) (x, y float64) {
	x = float64((index%layoutColumns)*layoutSpacingX) + layoutSpacingX/2
	y = float64((index/layoutColumns)*layoutSpacingY) + layoutSpacingY/2
	return x, y
}

// idAllocator hands out unique ids within one normalization pass.
type idAllocator struct {
	used map[string]struct{}
}

func newIDAllocator() *idAllocator {
	return &idAllocator{used: make(map[string]struct{})}
}

func (a *idAllocator) claim(base string) string {
	id := base
	for suffix := 2; a.has(id); suffix++ {
		id = fmt.Sprintf("%s-%d", base, suffix)
	}
	a.used[id] = struct{}{}
	return id
}

func (a *idAllocator) has(id string) bool {
	_, ok := a.used[id]
	return ok
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func asStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(v, ",")
	default:
		return nil
	}
}

func asFinite(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
