package valueobjects

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncated display text.
const Ellipsis = "..."

const defaultSlug = "item"

var (
	imagePattern      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkPattern       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	codePattern       = regexp.MustCompile("`+([^`]*)`+")
	boldPattern       = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	italicPattern     = regexp.MustCompile(`(^|[^\w*])[*_]([^*_]+)[*_]([^\w*]|$)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanInline removes inline markdown markup (code spans, bold, italic, links)
// and collapses whitespace.
func CleanInline(text string) string {
	out := imagePattern.ReplaceAllString(text, "$1")
	out = linkPattern.ReplaceAllString(out, "$1")
	out = codePattern.ReplaceAllString(out, "$1")
	out = boldPattern.ReplaceAllString(out, "$2")
	// adjacent emphasis spans share a boundary character, so run twice
	out = italicPattern.ReplaceAllString(out, "$1$2$3")
	out = italicPattern.ReplaceAllString(out, "$1$2$3")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Slug lowercases text and joins ASCII alphanumeric runs with "-". The result is at
// most 48 characters and never empty.
func Slug(text string) string {
	return SlugN(text, 48)
}

// SlugN is Slug with an explicit length cap.
func SlugN(text string, max int) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	slug := b.String()
	if max > 0 && utf8.RuneCountInString(slug) > max {
		slug = strings.TrimRight(string([]rune(slug)[:max]), "-")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// Clamp01 coerces value to a number in [0,1] rounded to two decimals.
// Numbers and numeric strings are accepted; anything else yields fallback.
func Clamp01(value interface{}, fallback float64) float64 {
	f, ok := toFloat(value)
	if !ok {
		return fallback
	}
	f = math.Max(0, math.Min(1, f))
	return math.Round(f*100) / 100
}

func toFloat(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case interface{ Float64() (float64, error) }:
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

// Truncate shortens text to at most max runes, replacing the tail with an
// ellipsis when it had to cut.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= len(Ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(Ellipsis)]) + Ellipsis
}
