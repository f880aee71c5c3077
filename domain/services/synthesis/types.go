package synthesis

// Root node identity shared by bootstrap and injection.
const (
	RootNodeID = "memory-core"
	RootLabel  = "Memory Core"
)

// Node kinds produced by synthesis.
const (
	KindSystem   = "system"
	KindDocument = "document"
	KindTopic    = "topic"
	KindAgent    = "agent"
)

// Relations produced by synthesis.
const (
	RelationContainsFile  = "contains_file"
	RelationContainsTopic = "contains_topic"
	RelationMentionsTopic = "mentions_topic"
	RelationManagedBy     = "managed_by"
)

// BootstrapFile is one source document before extraction.
type BootstrapFile struct {
	Name       string `json:"name"`
	Content    string `json:"-"`
	Provenance string `json:"provenance"`
}

// Agent is one entry of the agent roster.
type Agent struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name"`
	Model string `json:"model,omitempty" yaml:"model"`
	Role  string `json:"role,omitempty" yaml:"role"`
}

// DisplayName returns the agent's name, falling back to its id.
func (a Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Input is everything a cold bootstrap reads.
type Input struct {
	Memory    *BootstrapFile
	Documents []BootstrapFile
	Agents    []Agent
}

// InjectionResult reports what an injection pass added.
type InjectionResult struct {
	AddedNodes []string
	AddedEdges []string
}

// Changed reports whether injection added anything.
func (r InjectionResult) Changed() bool {
	return len(r.AddedNodes) > 0 || len(r.AddedEdges) > 0
}
