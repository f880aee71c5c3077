package synthesis

import "memgraph/domain/core/valueobjects"

// FileNodeID is the identity of the node representing a document.
func FileNodeID(name string) string {
	return "file-" + valueobjects.Slug(name)
}

// AgentNodeID is the identity of the node representing a roster agent.
func AgentNodeID(id string) string {
	return "agent-" + valueobjects.Slug(id)
}

// TopicNodeID is the base identity of a topic node.
func TopicNodeID(topic string) string {
	return "topic-" + valueobjects.Slug(topic)
}

// FactNodeID is the base identity of a fact node.
func FactNodeID(text string) string {
	return "fact-" + valueobjects.Slug(text)
}

// EdgeID derives a stable edge id from its endpoints and relation.
func EdgeID(source, relation, target string) string {
	return "edge-" + source + "--" + relation + "--" + target
}
