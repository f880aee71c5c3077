package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"memgraph/domain/core/valueobjects"
)

// Concept kinds and the relation each one is linked with.
const (
	KindProfile = "profile"
	KindTask    = "task"
	KindProject = "project"
	KindPerson  = "person"
	KindFact    = "fact"

	RelationPreference = "captures_preference"
	RelationAction     = "action_item"
	RelationProject    = "project_signal"
	RelationEntity     = "about_entity"
	RelationSupports   = "supports"
)

const (
	maxLabelKey    = 48
	maxConceptLen  = 56
	maxLabelWords  = 7
	shortWordLimit = 3
)

// Rule maps a predicate over the lowercased "topic text" haystack to a
// concept kind and relation.
type Rule struct {
	Name     string
	Matches  func(haystack string) bool
	Kind     string
	Relation string
}

// Rules is evaluated top to bottom; the first match wins. Reordering
// changes classification of text that matches several rules.
var Rules = []Rule{
	{
		Name:     "preference",
		Matches:  containsAny("preference", "prefer", "tone", "style", "rule", "never "),
		Kind:     KindProfile,
		Relation: RelationPreference,
	},
	{
		Name:     "action",
		Matches:  containsAny("follow-up", "follow up", "todo", "to-do", "next step"),
		Kind:     KindTask,
		Relation: RelationAction,
	},
	{
		Name:     "project",
		Matches:  containsAny("project", "setup", "config", "dashboard", "integration"),
		Kind:     KindProject,
		Relation: RelationProject,
	},
	{
		Name:     "entity",
		Matches:  containsAny("@", "name", "human", "assistant"),
		Kind:     KindPerson,
		Relation: RelationEntity,
	},
}

var (
	listMarkerPattern = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(?:\[[ xX]\]\s*)?`)
	keyValuePattern   = regexp.MustCompile(`^([^:]{1,48}):\s*(\S.*)$`)
	sentenceEnd       = regexp.MustCompile(`[.!?](?:\s|$)`)
)

// InferConceptKind classifies a fact by its text and topic.
func InferConceptKind(text, topic string) (kind, relation string) {
	haystack := strings.ToLower(topic + " " + text)
	for _, rule := range Rules {
		if rule.Matches(haystack) {
			return rule.Kind, rule.Relation
		}
	}
	return KindFact, RelationSupports
}

// ToConceptLabel derives a short display label from raw fact text.
func ToConceptLabel(raw string) string {
	text := valueobjects.CleanInline(listMarkerPattern.ReplaceAllString(raw, ""))
	if text == "" {
		return ""
	}

	if m := keyValuePattern.FindStringSubmatch(text); m != nil {
		if key := strings.TrimSpace(m[1]); key != "" && utf8.RuneCountInString(key) <= maxLabelKey {
			return valueobjects.Truncate(key, maxConceptLen)
		}
	}

	sentence := text
	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		sentence = text[:loc[0]]
	}

	words := strings.Fields(sentence)
	truncated := len(words) > maxLabelWords
	if truncated {
		words = words[:maxLabelWords]
	}
	for i, word := range words {
		words[i] = titleWord(word)
	}

	label := strings.Join(words, " ")
	if truncated {
		label += valueobjects.Ellipsis
	}
	return valueobjects.Truncate(label, maxConceptLen)
}

func titleWord(word string) string {
	if utf8.RuneCountInString(word) <= shortWordLimit {
		return strings.ToLower(word)
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + word[size:]
}

func containsAny(needles ...string) func(string) bool {
	return func(haystack string) bool {
		for _, needle := range needles {
			if strings.Contains(haystack, needle) {
				return true
			}
		}
		return false
	}
}
