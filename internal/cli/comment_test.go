package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentAddAndList(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)
	rootOpts := &RootOptions{Format: "text", Database: db}

	addBuf := &bytes.Buffer{}
	add := NewCommentCommand(rootOpts)
	add.SetOut(addBuf)
	add.SetArgs([]string{ids["greeting"], "--actor", "bob", "--body", "tighten this copy"})
	require.NoError(t, add.Execute())
	assert.Contains(t, addBuf.String(), "added")

	listBuf := &bytes.Buffer{}
	list := NewCommentCommand(rootOpts)
	list.SetOut(listBuf)
	list.SetArgs([]string{ids["greeting"]})
	require.NoError(t, list.Execute())

	out := listBuf.String()
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "tighten this copy")
}

func TestCommentBodyRequiresActor(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)
	rootOpts := &RootOptions{Format: "text", Database: db}

	cmd := NewCommentCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{ids["greeting"], "--body", "anonymous note"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCommentListEmpty(t *testing.T) {
	db := tempDB(t)
	ids := importSupport(t, db)
	rootOpts := &RootOptions{Format: "text", Database: db}

	buf := &bytes.Buffer{}
	cmd := NewCommentCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{ids["billing"]})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "no comments")
}
