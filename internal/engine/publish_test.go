package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botloom/botloom/internal/flow"
)

func TestPublishErrors_CleanGraph(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "a", greetingContent("trig_a"))
	b := mustCreate(t, svc, "b", gotoContent(a.ID, "trig_b"))
	_, err := svc.Publish(ctx, a.ID, 1, alice)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, b.ID, 1, alice)
	require.NoError(t, err)

	issues, err := svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPublishErrors_IgnoresUnpublishedDrafts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Draft-only interactions may carry anything; the scan only reads
	// published snapshots.
	mustCreate(t, svc, "draft", gotoContent("no-such-id", "trig_draft"))

	issues, err := svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPublishErrors_MissingTarget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	src := mustCreate(t, svc, "src", gotoContent("no-such-id", "trig_src"))
	_, err := svc.Publish(ctx, src.ID, 1, alice)
	require.NoError(t, err)

	issues, err := svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, flow.IssueMissingTarget, issues[0].Code)
	assert.Equal(t, src.ID, issues[0].InteractionID)
	assert.Equal(t, "no-such-id", issues[0].TargetID)
	assert.Equal(t, "jump", issues[0].Label)
}

func TestPublishErrors_DeletedTarget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	target := mustCreate(t, svc, "target", greetingContent("trig_target"))
	src := mustCreate(t, svc, "src", gotoContent(target.ID, "trig_src"))
	_, err := svc.Publish(ctx, src.ID, 1, alice)
	require.NoError(t, err)

	// Cascade delete repairs src's draft, but the published snapshot
	// keeps the stale goto until the repair itself is published.
	_, err = svc.Delete(ctx, target.ID, true, alice)
	require.NoError(t, err)

	issues, err := svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, flow.IssueDeletedTarget, issues[0].Code)
	assert.Equal(t, target.ID, issues[0].TargetID)

	// Publishing the repaired draft clears the finding.
	current, err := svc.Get(ctx, src.ID)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, src.ID, current.Version, alice)
	require.NoError(t, err)

	issues, err = svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPublishErrors_DuplicatePublishedTrigger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// a publishes "shared", then an edit moves the draft trigger away
	// and frees the live claim; b claims and publishes "shared" too.
	// Both published snapshots now answer the same token.
	a := mustCreate(t, svc, "a", greetingContent("shared"))
	_, err := svc.Publish(ctx, a.ID, 1, alice)
	require.NoError(t, err)
	_, err = svc.Update(ctx, a.ID, greetingContent("moved"), 2, alice)
	require.NoError(t, err)

	b := mustCreate(t, svc, "b", greetingContent("shared"))
	_, err = svc.Publish(ctx, b.ID, 1, alice)
	require.NoError(t, err)

	issues, err := svc.PublishErrors(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, flow.IssueDuplicateTrigger, issue.Code)
		assert.Equal(t, "shared", issue.Trigger)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID},
		[]string{issues[0].InteractionID, issues[1].InteractionID})
}
