package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supportDefinition = `
bot: {
	id:        "support-bot"
	workspace: "ws-main"

	interaction: greeting: {
		triggers: ["hello", "hi"]
		respond: [
			{text: "Welcome! How can I help?"},
		]
	}

	interaction: billing: {
		parent: "greeting"
		triggers: ["billing"]
		respond: [
			{text: "Let's look at your invoice."},
			{label: "escalate", goto: "handoff"},
		]
	}

	interaction: handoff: {
		triggers: ["agent"]
		respond: [
			{text: "Connecting you to a human."},
		]
	}
}
`

// tempDB returns a path for a fresh on-disk database.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "botloom.db")
}

func writeDefinition(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "support.cue")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// importSupport seeds the database through the import command and
// returns the name-to-id assignments.
func importSupport(t *testing.T, db string) map[string]string {
	t.Helper()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: db}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{writeDefinition(t, supportDefinition), "--actor", "alice"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			BotID   string            `json:"bot_id"`
			IDs     map[string]string `json:"ids"`
			Created []string          `json:"created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "support-bot", resp.Data.BotID)
	require.Len(t, resp.Data.IDs, 3)
	return resp.Data.IDs
}

func TestImportCreatesDrafts(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)

	for _, name := range []string{"greeting", "billing", "handoff"} {
		assert.NotEmpty(t, ids[name], "id assigned for %s", name)
	}

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: db}
	cmd := NewListCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"support-bot"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "billing")
	assert.Contains(t, out, "handoff")
	assert.Contains(t, out, "draft_only")
}

func TestImportTextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: tempDB(t)}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDefinition(t, supportDefinition), "--actor", "alice"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "imported 3 interactions into bot support-bot")
}

func TestImportCompileFailure(t *testing.T) {
	broken := `
bot: {
	id: "support-bot"
	workspace: "ws-main"
	interaction: greeting: {
		triggers: ["hello"]
		respond: [
			{goto: "nowhere"},
		]
	}
}
`
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: tempDB(t)}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDefinition(t, broken), "--actor", "alice"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E006]")
}

func TestImportMissingFile(t *testing.T) {
	rootOpts := &RootOptions{Format: "text", Database: tempDB(t)}
	cmd := NewImportCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.cue"), "--actor", "alice"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
