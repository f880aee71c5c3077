package evidence

import "time"

// Chunk kinds.
const (
	ChunkHeading   = "heading"
	ChunkBullet    = "bullet"
	ChunkParagraph = "paragraph"
)

// SourceChunk is one parsed block of a document with its line span.
type SourceChunk struct {
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// SourceFact is a canonicalized statement that can be cited by line.
type SourceFact struct {
	Topic      string  `json:"topic"`
	Statement  string  `json:"statement"`
	Line       int     `json:"line"`
	Confidence float64 `json:"confidence"`
}

// SourceDocument aggregates the evidence parsed from one file.
type SourceDocument struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Provenance string        `json:"provenance"`
	ModTime    time.Time     `json:"mtime"`
	Size       int64         `json:"size"`
	Hinted     bool          `json:"hinted"`
	Chunks     []SourceChunk `json:"chunks"`
	Facts      []SourceFact  `json:"facts"`
}

// RecentChatMessage is a transcript line used for display only.
type RecentChatMessage struct {
	SessionKey string    `json:"sessionKey"`
	Role       string    `json:"role"`
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text"`
}
