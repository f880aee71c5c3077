package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memgraph/domain/services/materialize"
	"memgraph/pkg/auth"
)

func newWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKSPACE_DIR", "")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "MEMORY.md"), []byte("# Memory\n- Tone: keep answers short\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "memory", "2026-03-01.md"), []byte("# Standup\n- Decision: adopt the index\n"), 0o644))
	return root
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGraphCmd_Bootstraps(t *testing.T) {
	root := newWorkspace(t)

	out, err := run(t, "", "graph", "-w", root, "--log-level", "error")
	require.NoError(t, err)

	var view struct {
		Graph struct {
			Nodes []json.RawMessage `json:"nodes"`
		} `json:"graph"`
		Bootstrap *struct {
			Source string `json:"source"`
		} `json:"bootstrap"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.NotNil(t, view.Bootstrap)
	assert.Equal(t, "filesystem", view.Bootstrap.Source)
	assert.NotEmpty(t, view.Graph.Nodes)
	assert.FileExists(t, filepath.Join(root, "memory", "knowledge-graph.json"))
}

func TestSaveCmd_FromStdin(t *testing.T) {
	root := newWorkspace(t)

	out, err := run(t, `{"nodes":[{"id":"n1","label":"Alpha"}],"edges":[]}`,
		"save", "-", "-w", root, "--log-level", "error", "--reindex=false")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "Alpha"`)

	stored, err := os.ReadFile(filepath.Join(root, "memory", "knowledge-graph.json"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"n1"`)
}

func TestSaveCmd_RejectsInvalidJSON(t *testing.T) {
	root := newWorkspace(t)
	path := filepath.Join(root, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{nodes"), 0o644))

	_, err := run(t, "", "save", path, "-w", root, "--log-level", "error")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestPublishCmd_WritesSnapshotOnce(t *testing.T) {
	root := newWorkspace(t)

	for i := 0; i < 2; i++ {
		_, err := run(t, "", "publish", "-w", root, "--log-level", "error", "--reindex=false")
		require.NoError(t, err)
	}

	memory, err := os.ReadFile(filepath.Join(root, "MEMORY.md"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(memory), materialize.StartMarker))
	assert.Contains(t, string(memory), "- Tone: keep answers short")
}

func TestReindexCmd(t *testing.T) {
	root := newWorkspace(t)

	_, err := run(t, "", "reindex", "-w", root, "--log-level", "error")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "memory", "index.sqlite"))
}

func TestTokenCmd(t *testing.T) {
	root := newWorkspace(t)
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "")

	out, err := run(t, "", "token", "-w", root, "--subject", "u-7", "--role", "editor", "--ttl", "1h")
	require.NoError(t, err)

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "cli-secret", Issuer: "memgraph"})
	require.NoError(t, err)
	claims, err := validator.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-7", claims.UserID)
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	root := newWorkspace(t)
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "", "token", "-w", root, "--subject", "u-7")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestRootCmd_RejectsBadLogLevel(t *testing.T) {
	root := newWorkspace(t)

	_, err := run(t, "", "graph", "-w", root, "--log-level", "loud")
	assert.Error(t, err)
}

func TestEventsCmd_RequiresTable(t *testing.T) {
	root := newWorkspace(t)
	t.Setenv("EVENT_TABLE", "")

	_, err := run(t, "", "events", "-w", root, "--log-level", "error")
	assert.ErrorContains(t, err, "EVENT_TABLE")
}
