package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"memgraph/domain/core/valueobjects"
)

// DefaultTopic is used for facts that appear before any heading.
const DefaultTopic = "General"

const maxTopicLength = 48

var (
	headingPattern   = regexp.MustCompile(`^\s{0,3}(#{1,4})\s+(.+?)\s*#*\s*$`)
	bulletPattern    = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)
	checkboxPattern  = regexp.MustCompile(`^\[[ xX]\]\s*`)
	labelLinePattern = regexp.MustCompile(`^\s*[A-Za-z][^:]{0,47}:\s+\S`)
	datePrefix       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[ T]\d{2}:\d{2}(?::\d{2})?)?\s*(?:[-:|]\s*)?`)
	fencePattern     = regexp.MustCompile("^\\s*(```|~~~)")
)

// Fact is one extracted statement with its classification.
type Fact struct {
	Topic    string
	Text     string
	Label    string
	Kind     string
	Relation string
}

// Extraction is the ordered result of scanning one document.
type Extraction struct {
	Topics []string
	Facts  []Fact
}

// ExtractFacts scans markdown line by line, tracking the current heading as
// topic, and emits at most maxFacts distinct facts from bullet, numbered and
// "Label: value" lines. Topics lists, in order, every topic that produced a fact.
func ExtractFacts(content string, maxFacts int) Extraction {
	result := Extraction{}
	if maxFacts <= 0 {
		return result
	}

	topic := DefaultTopic
	seen := make(map[string]struct{})
	seenTopics := make(map[string]struct{})
	inFence := false

	for _, line := range strings.Split(content, "\n") {
		if len(result.Facts) >= maxFacts {
			break
		}
		if fencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			topic = NormalizeTopic(m[2])
			continue
		}

		text, ok := candidateText(line)
		if !ok {
			continue
		}

		key := strings.ToLower(topic) + "::" + strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		kind, relation := InferConceptKind(text, topic)
		result.Facts = append(result.Facts, Fact{
			Topic:    topic,
			Text:     text,
			Label:    ToConceptLabel(text),
			Kind:     kind,
			Relation: relation,
		})
		if _, ok := seenTopics[topic]; !ok {
			seenTopics[topic] = struct{}{}
			result.Topics = append(result.Topics, topic)
		}

		if len(result.Facts) >= maxFacts {
			break
		}
	}

	return result
}

// NormalizeTopic cleans a heading into a topic name, dropping a leading date stamp.
func NormalizeTopic(heading string) string {
	topic := valueobjects.CleanInline(heading)
	topic = strings.TrimSpace(datePrefix.ReplaceAllString(topic, ""))
	if topic == "" {
		return DefaultTopic
	}
	return valueobjects.Truncate(topic, maxTopicLength)
}

func candidateText(line string) (string, bool) {
	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		text := valueobjects.CleanInline(checkboxPattern.ReplaceAllString(strings.TrimSpace(m[1]), ""))
		return text, hasWord(text)
	}
	if labelLinePattern.MatchString(line) {
		text := valueobjects.CleanInline(line)
		return text, hasWord(text)
	}
	return "", false
}

func hasWord(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
