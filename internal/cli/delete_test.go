package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteBlockedByReferences(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: db}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	// billing's escalate block still points at handoff.
	cmd.SetArgs([]string{ids["handoff"], "--actor", "alice"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E004]")
}

func TestDeleteCascadeRepairsSources(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: db}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{ids["handoff"], "--actor", "alice", "--cascade"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "deleted "+ids["handoff"])
	assert.Contains(t, buf.String(), "repaired 1 referencing drafts")

	// The target is gone from the default listing but visible with --deleted.
	listBuf := &bytes.Buffer{}
	list := NewListCommand(rootOpts)
	list.SetOut(listBuf)
	list.SetArgs([]string{"support-bot"})
	require.NoError(t, list.Execute())
	assert.NotContains(t, listBuf.String(), "handoff")

	listBuf.Reset()
	list = NewListCommand(rootOpts)
	list.SetOut(listBuf)
	list.SetArgs([]string{"support-bot", "--deleted"})
	require.NoError(t, list.Execute())
	assert.Contains(t, listBuf.String(), "handoff")
}

func TestDeleteUnreferencedInteraction(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: db}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{ids["billing"], "--actor", "alice"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "deleted "+ids["billing"])
	assert.NotContains(t, buf.String(), "repaired")
}
