// Package history reads conversation transcripts stored as one JSON object
// per line under the sessions directory.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"memgraph/domain/core/valueobjects"
	"memgraph/domain/services/evidence"
	"memgraph/pkg/utils"
)

const (
	transcriptExt  = ".jsonl"
	maxMessageText = 240
	maxLineBytes   = 1 << 20
)

var sessionKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// line is a transcript entry. Content is either a string or a list of
// {type, text} parts.
type line struct {
	Role      string          `json:"role"`
	Timestamp interface{}     `json:"timestamp"`
	Text      string          `json:"text"`
	Content   json.RawMessage `json:"content"`
	Message   *line           `json:"message"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SessionHistory implements ports.SessionHistory over a hackpadfs tree
type SessionHistory struct {
	fsys hackpadfs.FS
	dir  string
}

// NewSessionHistory creates a transcript reader rooted at dir
func NewSessionHistory(fsys hackpadfs.FS, dir string) *SessionHistory {
	return &SessionHistory{fsys: fsys, dir: path.Clean(dir)}
}

// Sessions lists session keys, most recently modified first
func (h *SessionHistory) Sessions(ctx context.Context, limit int) ([]string, error) {
	entries, err := hackpadfs.ReadDir(h.fsys, h.dir)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	type session struct {
		key   string
		mtime int64
	}
	sessions := make([]session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, transcriptExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, session{
			key:   strings.TrimSuffix(name, transcriptExt),
			mtime: info.ModTime().UnixNano(),
		})
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].mtime != sessions[j].mtime {
			return sessions[i].mtime > sessions[j].mtime
		}
		return sessions[i].key < sessions[j].key
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	keys := make([]string, len(sessions))
	for i, s := range sessions {
		keys[i] = s.key
	}
	return keys, ctx.Err()
}

// Recent returns the last limit user/assistant messages of one session.
// Lines that do not decode are skipped.
func (h *SessionHistory) Recent(ctx context.Context, key string, limit int) ([]evidence.RecentChatMessage, error) {
	if !sessionKey.MatchString(key) {
		return nil, fmt.Errorf("invalid session key %q", key)
	}
	data, err := hackpadfs.ReadFile(h.fsys, path.Join(h.dir, key+transcriptExt))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", key, err)
	}

	var messages []evidence.RecentChatMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if msg, ok := decode(key, scanner.Bytes()); ok {
			messages = append(messages, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session %s: %w", key, err)
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func decode(key string, raw []byte) (evidence.RecentChatMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return evidence.RecentChatMessage{}, false
	}

	var entry line
	if err := json.Unmarshal(raw, &entry); err != nil {
		return evidence.RecentChatMessage{}, false
	}
	if entry.Message != nil {
		if entry.Message.Timestamp == nil {
			entry.Message.Timestamp = entry.Timestamp
		}
		entry = *entry.Message
	}

	role := strings.ToLower(entry.Role)
	if role != "user" && role != "assistant" {
		return evidence.RecentChatMessage{}, false
	}

	text := entry.Text
	if text == "" {
		text = contentText(entry.Content)
	}
	text = valueobjects.CleanInline(text)
	if text == "" {
		return evidence.RecentChatMessage{}, false
	}

	ts, _ := utils.ParseTimestamp(entry.Timestamp)
	return evidence.RecentChatMessage{
		SessionKey: key,
		Role:       role,
		Timestamp:  ts,
		Text:       valueobjects.Truncate(text, maxMessageText),
	}, true
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if part.Type == "text" || part.Type == "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}
