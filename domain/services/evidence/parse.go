package evidence

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"memgraph/domain/core/valueobjects"
	"memgraph/domain/services/extraction"
)

const (
	keyValueConfidence = 0.8
	bulletConfidence   = 0.7
)

var (
	headingLine  = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.+?)\s*#*\s*$`)
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(?:\[[ xX]\]\s*)?(.+)$`)
	keyValueLine = regexp.MustCompile(`^\s*[A-Za-z][^:]{0,47}:\s+\S`)

	english = stopwords.MustGet("en")
)

// Parse splits a document into line-addressed chunks and canonical facts.
// Consecutive paragraph lines form one chunk. Line numbers start at 1.
func Parse(content string, maxChunks, maxFacts int) ([]SourceChunk, []SourceFact) {
	chunks := make([]SourceChunk, 0)
	facts := make([]SourceFact, 0)
	seen := make(map[string]struct{})
	topic := extraction.DefaultTopic

	var paragraph *SourceChunk
	flush := func() {
		if paragraph != nil && len(chunks) < maxChunks {
			chunks = append(chunks, *paragraph)
		}
		paragraph = nil
	}
	addChunk := func(chunk SourceChunk) {
		flush()
		if len(chunks) < maxChunks {
			chunks = append(chunks, chunk)
		}
	}

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		if len(chunks) >= maxChunks && len(facts) >= maxFacts {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if m := headingLine.FindStringSubmatch(line); m != nil {
			topic = extraction.NormalizeTopic(m[1])
			addChunk(SourceChunk{Kind: ChunkHeading, Text: valueobjects.CleanInline(m[1]), StartLine: lineNo, EndLine: lineNo})
			continue
		}

		if m := bulletLine.FindStringSubmatch(line); m != nil {
			text := valueobjects.CleanInline(m[1])
			addChunk(SourceChunk{Kind: ChunkBullet, Text: text, StartLine: lineNo, EndLine: lineNo})
			confidence := bulletConfidence
			if keyValueLine.MatchString(text) {
				confidence = keyValueConfidence
			}
			facts = addFact(facts, seen, maxFacts, SourceFact{Topic: topic, Statement: text, Line: lineNo, Confidence: confidence})
			continue
		}

		text := valueobjects.CleanInline(trimmed)
		if keyValueLine.MatchString(trimmed) {
			addChunk(SourceChunk{Kind: ChunkParagraph, Text: text, StartLine: lineNo, EndLine: lineNo})
			facts = addFact(facts, seen, maxFacts, SourceFact{Topic: topic, Statement: text, Line: lineNo, Confidence: keyValueConfidence})
			continue
		}

		if paragraph == nil {
			paragraph = &SourceChunk{Kind: ChunkParagraph, Text: text, StartLine: lineNo, EndLine: lineNo}
			continue
		}
		paragraph.Text += " " + text
		paragraph.EndLine = lineNo
	}
	flush()

	return chunks, facts
}

func addFact(facts []SourceFact, seen map[string]struct{}, maxFacts int, fact SourceFact) []SourceFact {
	if len(facts) >= maxFacts {
		return facts
	}
	key := CanonicalKey(fact.Statement)
	if key == "" {
		return facts
	}
	if _, dup := seen[key]; dup {
		return facts
	}
	seen[key] = struct{}{}
	return append(facts, fact)
}

// CanonicalKey lowercases text, drops punctuation and English stopwords,
// and joins the remaining words with single spaces.
func CanonicalKey(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	kept := words[:0]
	for _, word := range words {
		if english.Contains(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
