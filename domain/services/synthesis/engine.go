package synthesis

import (
	"fmt"
	"strings"

	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/services/extraction"
	"memgraph/domain/services/materialize"
)

const (
	rootConfidence     = 1
	documentConfidence = 0.9
	topicConfidence    = 0.8
	agentConfidence    = 0.9
	placeholderWeight  = 0.5
)

// Engine builds graphs from workspace documents and keeps saved graphs in
// step with newly available documents and agents.
type Engine struct {
	limits     *config.EngineLimits
	normalizer *aggregates.Normalizer
}

// NewEngine creates a synthesis engine
func NewEngine(limits *config.EngineLimits, normalizer *aggregates.Normalizer) *Engine {
	if limits == nil {
		limits = config.DefaultEngineLimits()
	}
	if normalizer == nil {
		normalizer = aggregates.NewNormalizer(limits)
	}
	return &Engine{limits: limits, normalizer: normalizer}
}

// Bootstrap builds a graph from scratch. The result is normalized.
func (e *Engine) Bootstrap(in Input, meta aggregates.GraphMeta) *aggregates.KnowledgeGraph {
	b := newBuilder(e.limits)
	b.addRoot()

	for _, doc := range e.Documents(in) {
		b.addDocument(doc)
	}
	for _, agent := range in.Agents {
		b.addAgent(agent)
	}
	if len(b.nodes) == 1 {
		b.addPlaceholders()
	}

	return e.normalizer.NormalizeGraph(b.graph(), meta)
}

// Documents returns the documents a bootstrap of in reads: the memory
// document first, duplicates dropped, capped.
func (e *Engine) Documents(in Input) []BootstrapFile {
	docs := make([]BootstrapFile, 0, len(in.Documents)+1)
	seen := make(map[string]struct{})
	if in.Memory != nil {
		docs = append(docs, *in.Memory)
		seen[FileNodeID(in.Memory.Name)] = struct{}{}
	}
	for _, doc := range in.Documents {
		id := FileNodeID(doc.Name)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		docs = append(docs, doc)
	}
	if len(docs) > e.limits.MaxBootstrapDocuments {
		docs = docs[:e.limits.MaxBootstrapDocuments]
	}
	return docs
}

// Inject adds nodes for documents and agents that the graph does not yet
// represent, each linked from the root. The existing graph is returned
// untouched when there is nothing to add.
func (e *Engine) Inject(existing *aggregates.KnowledgeGraph, docs []BootstrapFile, agents []Agent, meta aggregates.GraphMeta) (*aggregates.KnowledgeGraph, InjectionResult) {
	result := InjectionResult{}
	nodeIDs := existing.NodeIDs()
	edgeIDs := existing.EdgeIDs()
	var nodes []aggregates.GraphNode
	var edges []aggregates.GraphEdge

	addNode := func(node aggregates.GraphNode) {
		node.X, node.Y = aggregates.DefaultPosition(len(existing.Nodes) + len(nodes))
		nodes = append(nodes, node)
		nodeIDs[node.ID] = struct{}{}
		result.AddedNodes = append(result.AddedNodes, node.ID)
	}
	addEdge := func(edge aggregates.GraphEdge) {
		if _, ok := edgeIDs[edge.ID]; ok {
			return
		}
		edges = append(edges, edge)
		edgeIDs[edge.ID] = struct{}{}
		result.AddedEdges = append(result.AddedEdges, edge.ID)
	}

	needsRoot := func() {
		if _, ok := nodeIDs[RootNodeID]; !ok {
			addNode(rootNode())
		}
	}

	for _, doc := range docs {
		id := FileNodeID(doc.Name)
		if _, ok := nodeIDs[id]; ok {
			continue
		}
		needsRoot()
		addNode(documentNode(id, doc))
		addEdge(link(RootNodeID, RelationContainsFile, id, documentConfidence, doc.Name))
	}
	for _, agent := range agents {
		if strings.TrimSpace(agent.ID) == "" {
			continue
		}
		id := AgentNodeID(agent.ID)
		if _, ok := nodeIDs[id]; ok {
			continue
		}
		needsRoot()
		addNode(agentNode(id, agent))
		addEdge(link(RootNodeID, RelationManagedBy, id, topicConfidence, aggregates.SourceAgents))
	}

	if !result.Changed() {
		return existing, result
	}

	merged := &aggregates.KnowledgeGraph{
		Nodes: append(append([]aggregates.GraphNode{}, existing.Nodes...), nodes...),
		Edges: append(append([]aggregates.GraphEdge{}, existing.Edges...), edges...),
	}
	return e.normalizer.NormalizeGraph(merged, meta), result
}

// builder accumulates one bootstrap pass. All dedupe state lives here so a
// pass never leaks identity into the next one.
type builder struct {
	limits  *config.EngineLimits
	nodes   []aggregates.GraphNode
	edges   []aggregates.GraphEdge
	nodeIDs map[string]struct{}
	edgeIDs map[string]struct{}
	topics  map[string]string
	facts   map[string]struct{}
}

func newBuilder(limits *config.EngineLimits) *builder {
	return &builder{
		limits:  limits,
		nodeIDs: make(map[string]struct{}),
		edgeIDs: make(map[string]struct{}),
		topics:  make(map[string]string),
		facts:   make(map[string]struct{}),
	}
}

func (b *builder) graph() *aggregates.KnowledgeGraph {
	return &aggregates.KnowledgeGraph{Nodes: b.nodes, Edges: b.edges}
}

func (b *builder) claimNodeID(base string) string {
	id := base
	for suffix := 2; b.hasNode(id); suffix++ {
		id = fmt.Sprintf("%s-%d", base, suffix)
	}
	return id
}

func (b *builder) hasNode(id string) bool {
	_, ok := b.nodeIDs[id]
	return ok
}

func (b *builder) addNode(node aggregates.GraphNode) {
	node.X, node.Y = aggregates.DefaultPosition(len(b.nodes))
	b.nodes = append(b.nodes, node)
	b.nodeIDs[node.ID] = struct{}{}
}

func (b *builder) addEdge(edge aggregates.GraphEdge) {
	if _, ok := b.edgeIDs[edge.ID]; ok {
		return
	}
	b.edges = append(b.edges, edge)
	b.edgeIDs[edge.ID] = struct{}{}
}

func (b *builder) addRoot() {
	b.addNode(rootNode())
}

func (b *builder) addDocument(doc BootstrapFile) {
	docID := FileNodeID(doc.Name)
	if b.hasNode(docID) {
		return
	}
	b.addNode(documentNode(docID, doc))
	b.addEdge(link(RootNodeID, RelationContainsFile, docID, documentConfidence, doc.Name))

	extracted := extraction.ExtractFacts(materialize.StripSnapshot(doc.Content), b.limits.MaxExtractedFacts)

	resolved := make(map[string]string)
	for i, topic := range extracted.Topics {
		if i >= b.limits.MaxTopicsPerDocument {
			break
		}
		topicID := b.topicNode(topic, doc)
		resolved[topic] = topicID
		b.addEdge(link(docID, RelationMentionsTopic, topicID, 0.75, doc.Name))
	}

	confidence := b.limits.FilesystemFactConfidence
	if doc.Provenance == aggregates.SourceIndexed {
		confidence = b.limits.IndexedFactConfidence
	}

	for i, fact := range extracted.Facts {
		if i >= b.limits.MaxFactsPerDocument {
			break
		}
		key := strings.ToLower(fact.Topic) + "::" + strings.ToLower(fact.Text)
		if _, dup := b.facts[key]; dup {
			continue
		}
		b.facts[key] = struct{}{}

		label := fact.Label
		if label == "" {
			label = fact.Text
		}
		factID := b.claimNodeID(FactNodeID(fact.Text))
		b.addNode(aggregates.GraphNode{
			ID:         factID,
			Label:      label,
			Kind:       fact.Kind,
			Summary:    fact.Text,
			Confidence: confidence,
			Source:     doc.Name,
			Tags:       []string{fact.Topic, doc.Provenance},
		})

		parent := docID
		if topicID, ok := resolved[fact.Topic]; ok {
			parent = topicID
		}
		b.addEdge(link(parent, fact.Relation, factID, confidence, doc.Name))
	}
}

// topicNode reuses a topic node from any earlier document of this pass when
// the topic matches case-insensitively.
func (b *builder) topicNode(topic string, doc BootstrapFile) string {
	key := strings.ToLower(topic)
	if id, ok := b.topics[key]; ok {
		return id
	}
	id := b.claimNodeID(TopicNodeID(topic))
	b.topics[key] = id
	b.addNode(aggregates.GraphNode{
		ID:         id,
		Label:      topic,
		Kind:       KindTopic,
		Summary:    fmt.Sprintf("Topic first seen in %s", doc.Name),
		Confidence: topicConfidence,
		Source:     doc.Name,
		Tags:       []string{KindTopic},
	})
	b.addEdge(link(RootNodeID, RelationContainsTopic, id, topicConfidence, doc.Name))
	return id
}

func (b *builder) addAgent(agent Agent) {
	if strings.TrimSpace(agent.ID) == "" {
		return
	}
	id := AgentNodeID(agent.ID)
	if b.hasNode(id) {
		return
	}
	b.addNode(agentNode(id, agent))
	b.addEdge(link(RootNodeID, RelationManagedBy, id, topicConfidence, aggregates.SourceAgents))
}

func (b *builder) addPlaceholders() {
	placeholders := []aggregates.GraphNode{
		{
			ID:         "placeholder-getting-started",
			Label:      "Write your first memory",
			Kind:       extraction.KindTask,
			Summary:    "Add notes to MEMORY.md or a dated journal in memory/ and reload the graph.",
			Confidence: 0.5,
			Source:     aggregates.SourceTemplate,
			Tags:       []string{aggregates.SourceTemplate},
		},
		{
			ID:         "placeholder-first-memory",
			Label:      "Facts appear here",
			Kind:       extraction.KindFact,
			Summary:    "Bullets and Label: value lines become fact nodes grouped by heading.",
			Confidence: 0.5,
			Source:     aggregates.SourceTemplate,
			Tags:       []string{aggregates.SourceTemplate},
		},
	}
	for _, node := range placeholders {
		b.addNode(node)
		b.addEdge(link(RootNodeID, extraction.RelationSupports, node.ID, placeholderWeight, aggregates.SourceTemplate))
	}
}

func rootNode() aggregates.GraphNode {
	return aggregates.GraphNode{
		ID:         RootNodeID,
		Label:      RootLabel,
		Kind:       KindSystem,
		Summary:    "Root of the workspace memory graph.",
		Confidence: rootConfidence,
		Source:     aggregates.SourceBootstrap,
		Tags:       []string{KindSystem},
	}
}

func documentNode(id string, doc BootstrapFile) aggregates.GraphNode {
	return aggregates.GraphNode{
		ID:         id,
		Label:      doc.Name,
		Kind:       KindDocument,
		Summary:    fmt.Sprintf("Memory document %s (%s).", doc.Name, doc.Provenance),
		Confidence: documentConfidence,
		Source:     doc.Name,
		Tags:       []string{KindDocument, doc.Provenance},
	}
}

func agentNode(id string, agent Agent) aggregates.GraphNode {
	summary := "Agent " + agent.DisplayName()
	if agent.Role != "" {
		summary += ": " + agent.Role
	}
	tags := []string{KindAgent}
	if agent.Model != "" {
		tags = append(tags, agent.Model)
	}
	return aggregates.GraphNode{
		ID:         id,
		Label:      agent.DisplayName(),
		Kind:       KindAgent,
		Summary:    summary,
		Confidence: agentConfidence,
		Source:     aggregates.SourceAgents,
		Tags:       tags,
	}
}

func link(source, relation, target string, weight float64, evidence string) aggregates.GraphEdge {
	return aggregates.GraphEdge{
		ID:       EdgeID(source, relation, target),
		Source:   source,
		Target:   target,
		Relation: relation,
		Weight:   weight,
		Evidence: evidence,
	}
}
