package utils

import (
	"regexp"
	"time"
)

// JournalDateLayout is the date prefix of journal file names.
const JournalDateLayout = "2006-01-02"

var journalName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[^/]*\.md$`)

// ParseJournalDate extracts the date a journal file name starts with.
func ParseJournalDate(name string) (time.Time, bool) {
	m := journalName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(JournalDateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp accepts RFC3339 (with or without fractional seconds) and
// Unix milliseconds.
func ParseTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	case int64:
		return time.UnixMilli(v).UTC(), true
	}
	return time.Time{}, false
}
