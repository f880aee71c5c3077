package config

// EngineLimits holds the caps and defaults used by graph synthesis,
// normalization and materialization.
type EngineLimits struct {
	// Text constraints
	MaxLabelLength   int
	MaxSummaryLength int
	MaxTopicLength   int
	MaxSlugLength    int
	MaxTagsPerNode   int

	// Bootstrap constraints
	MaxBootstrapDocuments int
	MaxJournalFiles       int
	MaxExtractedFacts     int
	MaxTopicsPerDocument  int
	MaxFactsPerDocument   int

	// Normalization defaults
	DefaultNodeConfidence float64
	DefaultEdgeWeight     float64
	DefaultRelation       string

	// Provenance confidence
	IndexedFactConfidence    float64
	FilesystemFactConfidence float64

	// Snapshot constraints
	SnapshotNodes int
	SnapshotEdges int

	// Telemetry constraints
	MaxChunksPerDocument int
	MaxFactsPerEvidence  int
	MaxTelemetryDocs     int
	MaxSessions          int
	MessagesPerSession   int
	MaxMessages          int
}

// DefaultEngineLimits returns the limits used in every environment unless overridden
func DefaultEngineLimits() *EngineLimits {
	return &EngineLimits{
		MaxLabelLength:   64,
		MaxSummaryLength: 240,
		MaxTopicLength:   48,
		MaxSlugLength:    48,
		MaxTagsPerNode:   8,

		MaxBootstrapDocuments: 14,
		MaxJournalFiles:       8,
		MaxExtractedFacts:     22,
		MaxTopicsPerDocument:  10,
		MaxFactsPerDocument:   28,

		DefaultNodeConfidence: 0.75,
		DefaultEdgeWeight:     0.7,
		DefaultRelation:       "related_to",

		IndexedFactConfidence:    0.86,
		FilesystemFactConfidence: 0.72,

		SnapshotNodes: 12,
		SnapshotEdges: 20,

		MaxChunksPerDocument: 80,
		MaxFactsPerEvidence:  40,
		MaxTelemetryDocs:     12,
		MaxSessions:          6,
		MessagesPerSession:   8,
		MaxMessages:          30,
	}
}

// DevelopmentEngineLimits returns smaller telemetry caps for local runs
func DevelopmentEngineLimits() *EngineLimits {
	limits := DefaultEngineLimits()
	limits.MaxTelemetryDocs = 6
	limits.MaxSessions = 3
	return limits
}
