package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/botloom/botloom/internal/flow"
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := flow.Content{
		Triggers: []string{"start"},
		Responses: []flow.ResponseBlock{
			flow.TextBlock{Label: "hi", Text: "Welcome!"},
			flow.QuickReplyBlock{Prompt: "Pick one", Options: []string{"a", "b"}},
		},
	}
	rec := newInteraction(t, "i-a", "bot-1", content)
	mustCreate(t, s, rec)

	got, err := s.Get(ctx, "i-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, expected 1", got.Version)
	}
	if got.State() != flow.StateDraftOnly {
		t.Errorf("state = %s, expected draft_only", got.State())
	}
	if len(got.DraftContent.Triggers) != 1 || got.DraftContent.Triggers[0] != "start" {
		t.Errorf("triggers = %v", got.DraftContent.Triggers)
	}
	if len(got.DraftContent.Responses) != 2 {
		t.Fatalf("responses = %d, expected 2", len(got.DraftContent.Responses))
	}
	if got.PublishedContent != nil {
		t.Error("new interaction should have no published content")
	}
}

func TestCreateRejectsDuplicateTriggerInBot(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	err := s.CreateInteraction(context.Background(), newInteraction(t, "i-b", "bot-1", contentWithTriggers("start")))
	if !flow.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// No partial write: the second interaction must not exist.
	if _, err := s.Get(context.Background(), "i-b"); !flow.IsNotFound(err) {
		t.Errorf("expected partial insert rolled back, Get returned %v", err)
	}
}

func TestCreateAllowsSameTriggerAcrossBots(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	mustCreate(t, s, newInteraction(t, "i-b", "bot-2", contentWithTriggers("start")))
}

func TestCreateRejectsRefToDeletedTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	if _, err := s.DeleteInteraction(ctx, "i-a", false, testStamp); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	err := s.CreateInteraction(ctx, newInteraction(t, "i-b", "bot-1", contentWithGoto("i-a")))
	if !flow.IsValidation(err) {
		t.Fatalf("expected ValidationError for ref to deleted target, got %v", err)
	}
}

func TestUpdateDraftCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	edited := contentWithTriggers("start", "help")
	updated, err := s.UpdateDraft(ctx, "i-a", edited, mustHash(t, edited), 1, laterStamp(time.Minute))
	if err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, expected 2", updated.Version)
	}
	if updated.UpdatedBy != "editor-2" {
		t.Errorf("updated_by = %q, expected editor-2", updated.UpdatedBy)
	}
}

func TestUpdateDraftStaleVersionConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	first := contentWithTriggers("start", "help")
	if _, err := s.UpdateDraft(ctx, "i-a", first, mustHash(t, first), 1, testStamp); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second editor still holds version 1.
	stale := contentWithTriggers("start", "menu")
	_, err := s.UpdateDraft(ctx, "i-a", stale, mustHash(t, stale), 1, laterStamp(time.Minute))

	var conflict *flow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Expected != 1 || conflict.Actual != 2 {
		t.Errorf("conflict = expected %d actual %d", conflict.Expected, conflict.Actual)
	}

	// Stored row is untouched by the failed write.
	got, err := s.Get(ctx, "i-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, expected 2", got.Version)
	}
	if got.DraftHash != mustHash(t, first) {
		t.Error("draft content changed after failed CAS write")
	}

	// Refetch-and-resubmit path succeeds.
	resubmitted, err := s.UpdateDraft(ctx, "i-a", stale, mustHash(t, stale), got.Version, laterStamp(2*time.Minute))
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.Version != 3 {
		t.Errorf("version = %d, expected 3", resubmitted.Version)
	}
}

func TestUpdateDraftUnknownID(t *testing.T) {
	s := newTestStore(t)
	c := contentWithTriggers("start")
	_, err := s.UpdateDraft(context.Background(), "i-missing", c, mustHash(t, c), 1, testStamp)
	if !flow.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateDraftMaintainsRefIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithGoto("i-a", "other")))

	inbound, err := s.Inbound(ctx, "i-a")
	if err != nil {
		t.Fatalf("Inbound failed: %v", err)
	}
	if len(inbound) != 1 || inbound[0].SourceID != "i-b" {
		t.Fatalf("inbound = %v, expected one ref from i-b", inbound)
	}

	// Remove the goto: index entry must disappear in the same write.
	edited := contentWithTriggers("other")
	if _, err := s.UpdateDraft(ctx, "i-b", edited, mustHash(t, edited), 1, testStamp); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	inbound, err = s.Inbound(ctx, "i-a")
	if err != nil {
		t.Fatalf("Inbound failed: %v", err)
	}
	if len(inbound) != 0 {
		t.Errorf("inbound = %v, expected empty after ref removal", inbound)
	}
}

func TestUpdateDraftFreesAndClaimsTriggers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	// i-a renames its trigger; "start" becomes free.
	renamed := contentWithTriggers("begin")
	if _, err := s.UpdateDraft(ctx, "i-a", renamed, mustHash(t, renamed), 1, testStamp); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithTriggers("start")))
}

func TestPublishDraft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	published, err := s.PublishDraft(ctx, "i-a", 1, laterStamp(time.Hour))
	if err != nil {
		t.Fatalf("PublishDraft failed: %v", err)
	}
	if published.Version != 2 {
		t.Errorf("version = %d, expected 2", published.Version)
	}
	if published.State() != flow.StateSynced {
		t.Errorf("state = %s, expected synced", published.State())
	}
	if published.PublishedBy != "editor-2" {
		t.Errorf("published_by = %q", published.PublishedBy)
	}
	if published.PublishedAt == nil {
		t.Error("published_at not stamped")
	}
}

func TestPublishIdempotentWhenSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	first, err := s.PublishDraft(ctx, "i-a", 1, testStamp)
	if err != nil {
		t.Fatalf("first publish failed: %v", err)
	}

	second, err := s.PublishDraft(ctx, "i-a", first.Version, laterStamp(time.Hour))
	if err != nil {
		t.Fatalf("second publish failed: %v", err)
	}
	if second.Version != first.Version {
		t.Errorf("no-op publish changed version: %d -> %d", first.Version, second.Version)
	}
	if second.PublishedHash != first.PublishedHash {
		t.Error("no-op publish changed published content")
	}
	if !second.PublishedAt.Equal(*first.PublishedAt) {
		t.Error("no-op publish restamped published_at")
	}
}

func TestPublishStaleVersionConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	edited := contentWithTriggers("start", "help")
	if _, err := s.UpdateDraft(ctx, "i-a", edited, mustHash(t, edited), 1, testStamp); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	_, err := s.PublishDraft(ctx, "i-a", 1, testStamp)
	if !flow.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestPublishThenEditKeepsPublishedSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := contentWithTriggers("start")
	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", original))

	published, err := s.PublishDraft(ctx, "i-a", 1, testStamp)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	publishedHash := published.PublishedHash

	edited := contentWithTriggers("start", "extra")
	after, err := s.UpdateDraft(ctx, "i-a", edited, mustHash(t, edited), published.Version, testStamp)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if after.PublishedHash != publishedHash {
		t.Error("draft edit altered the published snapshot")
	}
	if after.State() != flow.StatePending {
		t.Errorf("state = %s, expected pending_publication", after.State())
	}
}

func TestDeleteGuardBlocksReferencedTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithGoto("i-a")))

	_, err := s.DeleteInteraction(ctx, "i-a", false, testStamp)

	var refConflict *flow.ReferenceConflictError
	if !errors.As(err, &refConflict) {
		t.Fatalf("expected ReferenceConflictError, got %v", err)
	}
	if len(refConflict.Refs) != 1 || refConflict.Refs[0].SourceID != "i-b" {
		t.Errorf("blocking refs = %v, expected i-b", refConflict.Refs)
	}

	// Target must still be alive.
	if _, err := s.Get(ctx, "i-a"); err != nil {
		t.Errorf("blocked delete removed the target: %v", err)
	}
}

func TestCascadeDeleteRepairsReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithGoto("i-a")))

	result, err := s.DeleteInteraction(ctx, "i-a", true, laterStamp(time.Minute))
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}
	if result.DeletedID != "i-a" {
		t.Errorf("deleted id = %s", result.DeletedID)
	}
	if len(result.RepairedSources) != 1 || result.RepairedSources[0] != "i-b" {
		t.Errorf("repaired = %v, expected [i-b]", result.RepairedSources)
	}

	// Target is gone from the live graph.
	if _, err := s.Get(ctx, "i-a"); !flow.IsNotFound(err) {
		t.Errorf("expected NotFound for deleted target, got %v", err)
	}

	// Referencing draft lost its goto block and bumped its version.
	b, err := s.Get(ctx, "i-b")
	if err != nil {
		t.Fatalf("Get(i-b) failed: %v", err)
	}
	if b.Version != 2 {
		t.Errorf("i-b version = %d, expected 2 after repair", b.Version)
	}
	for _, block := range b.DraftContent.Responses {
		if g, ok := block.(flow.GotoBlock); ok && g.TargetID == "i-a" {
			t.Error("dangling goto survived cascade delete")
		}
	}

	// Zero dangling references in the index.
	inbound, err := s.Inbound(ctx, "i-a")
	if err != nil {
		t.Fatalf("Inbound failed: %v", err)
	}
	if len(inbound) != 0 {
		t.Errorf("inbound = %v, expected empty", inbound)
	}
}

func TestCascadeDeleteFreesTriggers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	if _, err := s.DeleteInteraction(ctx, "i-a", true, testStamp); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// The trigger is reusable by a new interaction.
	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithTriggers("start")))
}

func TestDeleteTwiceReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))

	if _, err := s.DeleteInteraction(ctx, "i-a", true, testStamp); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}

	_, err := s.DeleteInteraction(ctx, "i-a", true, testStamp)
	if !flow.IsNotFound(err) {
		t.Fatalf("expected NotFoundError on repeated delete, got %v", err)
	}
}

func TestDeleteUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DeleteInteraction(context.Background(), "i-missing", false, testStamp)
	if !flow.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSelfReferenceDeletesCleanly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// i-a loops to itself; the self-edge must not block or repair anything.
	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithGoto("i-a", "start")))

	result, err := s.DeleteInteraction(ctx, "i-a", true, testStamp)
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}
	if len(result.RepairedSources) != 0 {
		t.Errorf("repaired = %v, expected none for self-reference", result.RepairedSources)
	}
}

func TestRebuildRefs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, newInteraction(t, "i-a", "bot-1", contentWithTriggers("start")))
	mustCreate(t, s, newInteraction(t, "i-b", "bot-1", contentWithGoto("i-a")))

	// Corrupt the index, then rebuild.
	if _, err := s.db.Exec(`DELETE FROM goto_refs`); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}

	if err := s.RebuildRefs(ctx); err != nil {
		t.Fatalf("RebuildRefs failed: %v", err)
	}

	inbound, err := s.Inbound(ctx, "i-a")
	if err != nil {
		t.Fatalf("Inbound failed: %v", err)
	}
	if len(inbound) != 1 || inbound[0].SourceID != "i-b" {
		t.Errorf("inbound after rebuild = %v", inbound)
	}
}
