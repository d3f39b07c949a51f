package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/botloom/botloom/internal/flow"
)

// Revision op tags recorded in the revisions table.
const (
	opCreate        = "create"
	opUpdate        = "update"
	opPublish       = "publish"
	opCascadeRepair = "cascade_repair"
	opDelete        = "delete"
)

// CreateInteraction inserts a new interaction with version 1.
//
// The record must arrive fully formed (ID, hashes, stamps assigned by the
// caller). Trigger claims, reference-index rows, and the initial revision
// are written in the same transaction; bot-wide trigger collisions roll the
// whole insert back with a ValidationError.
func (s *Store) CreateInteraction(ctx context.Context, rec *flow.Interaction) error {
	draftJSON, err := marshalContent(rec.DraftContent)
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interactions
		(id, bot_id, workspace_id, parent_id, name, version,
		 draft_content, draft_hash, created_at, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.BotID,
		rec.WorkspaceID,
		nullableString(rec.ParentID),
		rec.Name,
		rec.Version,
		draftJSON,
		rec.DraftHash,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		rec.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}

	if err := claimTriggers(ctx, tx, rec.BotID, rec.ID, rec.DraftContent.Triggers); err != nil {
		return err
	}

	refs := flow.ExtractRefs(rec.ID, rec.DraftContent.Responses)
	if err := checkRefTargetsLive(ctx, tx, refs); err != nil {
		return err
	}
	if err := insertRefs(ctx, tx, refs); err != nil {
		return err
	}

	if err := appendRevision(ctx, tx, rec.ID, rec.Version, opCreate, draftJSON, rec.UpdatedAt, rec.UpdatedBy); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create interaction: commit: %w", err)
	}
	return nil
}

// UpdateDraft overwrites the draft snapshot using compare-and-swap on
// version. The conditional UPDATE is the only mutual-exclusion primitive:
// a stale expectedVersion never writes anything and surfaces ConflictError.
// Trigger claims, the reference-index diff, and the revision row ride the
// same transaction.
func (s *Store) UpdateDraft(ctx context.Context, id string, content flow.Content, contentHash string, expectedVersion int64, stamp flow.Stamp) (*flow.Interaction, error) {
	draftJSON, err := marshalContent(content)
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	defer tx.Rollback()

	current, err := getInteractionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Deleted() {
		return nil, &flow.NotFoundError{Kind: "interaction", ID: id}
	}

	newVersion := expectedVersion + 1
	res, err := tx.ExecContext(ctx, `
		UPDATE interactions
		SET version = ?, draft_content = ?, draft_hash = ?, updated_at = ?, updated_by = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL
	`,
		newVersion, draftJSON, contentHash, formatTime(stamp.At), stamp.By.ID,
		id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	if affected == 0 {
		return nil, &flow.ConflictError{ID: id, Expected: expectedVersion, Actual: current.Version}
	}

	if err := releaseTriggers(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := claimTriggers(ctx, tx, current.BotID, id, content.Triggers); err != nil {
		return nil, err
	}

	diff := flow.DiffRefs(id, current.DraftContent.Responses, content.Responses)
	if err := checkRefTargetsLive(ctx, tx, diff.Added); err != nil {
		return nil, err
	}
	if err := applyRefDiff(ctx, tx, diff); err != nil {
		return nil, err
	}

	if err := appendRevision(ctx, tx, id, newVersion, opUpdate, draftJSON, stamp.At, stamp.By.ID); err != nil {
		return nil, err
	}

	updated, err := getInteractionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update draft: commit: %w", err)
	}
	return updated, nil
}

// PublishDraft promotes the draft snapshot to published, with the same
// version CAS as UpdateDraft. Publishing an already-Synced interaction is a
// read-only no-op: the current row is returned untouched and no version is
// consumed.
func (s *Store) PublishDraft(ctx context.Context, id string, expectedVersion int64, stamp flow.Stamp) (*flow.Interaction, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish draft: %w", err)
	}
	defer tx.Rollback()

	current, err := getInteractionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Deleted() {
		return nil, &flow.NotFoundError{Kind: "interaction", ID: id}
	}
	if current.Version != expectedVersion {
		return nil, &flow.ConflictError{ID: id, Expected: expectedVersion, Actual: current.Version}
	}
	if current.State() == flow.StateSynced {
		return current, nil
	}

	draftJSON, err := marshalContent(current.DraftContent)
	if err != nil {
		return nil, fmt.Errorf("publish draft: %w", err)
	}

	newVersion := expectedVersion + 1
	res, err := tx.ExecContext(ctx, `
		UPDATE interactions
		SET version = ?, published_content = draft_content, published_hash = draft_hash,
		    published_at = ?, published_by = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL
	`,
		newVersion, formatTime(stamp.At), stamp.By.ID,
		id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("publish draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("publish draft: %w", err)
	}
	if affected == 0 {
		// Raced with another writer inside our own transaction window;
		// SQLite's single-writer model makes this unreachable, but keep
		// the CAS contract honest.
		return nil, &flow.ConflictError{ID: id, Expected: expectedVersion, Actual: current.Version}
	}

	if err := appendRevision(ctx, tx, id, newVersion, opPublish, draftJSON, stamp.At, stamp.By.ID); err != nil {
		return nil, err
	}

	published, err := getInteractionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("publish draft: commit: %w", err)
	}
	return published, nil
}

// DeleteResult reports what a delete touched.
type DeleteResult struct {
	DeletedID string `json:"deleted_id"`

	// RepairedSources lists interactions whose drafts were rewritten to
	// drop references to the deleted target (cascade mode only).
	RepairedSources []string `json:"repaired_sources,omitempty"`
}

// DeleteInteraction soft-deletes an interaction through the deletion guard.
//
// With cascade=false, any inbound reference blocks the delete with a
// ReferenceConflictError carrying the exact referencing set. With
// cascade=true, every referencing draft is repaired (goto blocks dropped,
// fallback jumps cleared), the target is soft-deleted, its trigger claims
// are freed, and the reference index is updated - all in one transaction.
// A failure at any step rolls the whole operation back.
//
// Deleting an already-deleted or unknown id returns NotFoundError.
func (s *Store) DeleteInteraction(ctx context.Context, id string, cascade bool, stamp flow.Stamp) (*DeleteResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete interaction: %w", err)
	}
	defer tx.Rollback()

	target, err := getInteractionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if target.Deleted() {
		return nil, &flow.NotFoundError{Kind: "interaction", ID: id}
	}

	inbound, err := inboundRefsTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if len(inbound) > 0 && !cascade {
		return nil, &flow.ReferenceConflictError{TargetID: id, Refs: inbound}
	}

	result := &DeleteResult{DeletedID: id}

	// Repair every referencing draft before touching the target, so a
	// failure leaves no partial reference removal.
	for _, sourceID := range distinctSources(inbound) {
		if sourceID == id {
			continue // self-reference dies with the target
		}
		if err := repairSource(ctx, tx, sourceID, id, stamp); err != nil {
			return nil, err
		}
		result.RepairedSources = append(result.RepairedSources, sourceID)
	}

	deletedVersion := target.Version + 1
	_, err = tx.ExecContext(ctx, `
		UPDATE interactions
		SET version = ?, deleted_at = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`,
		deletedVersion, formatTime(stamp.At), formatTime(stamp.At), stamp.By.ID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("delete interaction: %w", err)
	}

	if err := releaseTriggers(ctx, tx, id); err != nil {
		return nil, err
	}

	// Drop the target's edges from the index: outbound refs die with it,
	// inbound refs were removed by the draft repair above (or are
	// self-references).
	if _, err := tx.ExecContext(ctx, `DELETE FROM goto_refs WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return nil, fmt.Errorf("delete interaction: clear refs: %w", err)
	}

	draftJSON, err := marshalContent(target.DraftContent)
	if err != nil {
		return nil, fmt.Errorf("delete interaction: %w", err)
	}
	if err := appendRevision(ctx, tx, id, deletedVersion, opDelete, draftJSON, stamp.At, stamp.By.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete interaction: commit: %w", err)
	}
	return result, nil
}

// repairSource rewrites one referencing interaction's draft to drop blocks
// targeting the deleted interaction. Runs inside the cascade transaction.
func repairSource(ctx context.Context, tx *sql.Tx, sourceID, targetID string, stamp flow.Stamp) error {
	source, err := getInteractionTx(ctx, tx, sourceID)
	if err != nil {
		return err
	}

	repaired, changed := flow.StripTarget(source.DraftContent.Responses, targetID)
	if !changed {
		return nil
	}

	content := source.DraftContent
	content.Responses = repaired

	contentHash, err := flow.ContentHash(content)
	if err != nil {
		return fmt.Errorf("cascade repair %s: %w", sourceID, err)
	}
	draftJSON, err := marshalContent(content)
	if err != nil {
		return fmt.Errorf("cascade repair %s: %w", sourceID, err)
	}

	newVersion := source.Version + 1
	_, err = tx.ExecContext(ctx, `
		UPDATE interactions
		SET version = ?, draft_content = ?, draft_hash = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`,
		newVersion, draftJSON, contentHash, formatTime(stamp.At), stamp.By.ID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("cascade repair %s: %w", sourceID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goto_refs WHERE source_id = ? AND target_id = ?`, sourceID, targetID); err != nil {
		return fmt.Errorf("cascade repair %s: clear refs: %w", sourceID, err)
	}

	return appendRevision(ctx, tx, sourceID, newVersion, opCascadeRepair, draftJSON, stamp.At, stamp.By.ID)
}

// RebuildRefs recomputes the whole reference index from live drafts.
// Repair/verification path only; normal writes maintain the index
// incrementally.
func (s *Store) RebuildRefs(ctx context.Context) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("rebuild refs: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM goto_refs`); err != nil {
		return fmt.Errorf("rebuild refs: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, draft_content FROM interactions
		WHERE deleted_at IS NULL
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("rebuild refs: %w", err)
	}

	var allRefs []flow.Ref
	for rows.Next() {
		var id, draftJSON string
		if err := rows.Scan(&id, &draftJSON); err != nil {
			rows.Close()
			return fmt.Errorf("rebuild refs: %w", err)
		}
		content, err := unmarshalContent(draftJSON)
		if err != nil {
			rows.Close()
			return fmt.Errorf("rebuild refs: %s: %w", id, err)
		}
		allRefs = append(allRefs, flow.ExtractRefs(id, content.Responses)...)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rebuild refs: %w", err)
	}
	rows.Close()

	if err := insertRefs(ctx, tx, allRefs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rebuild refs: commit: %w", err)
	}
	return nil
}

// claimTriggers inserts trigger claims for an interaction, rejecting tokens
// already claimed by another live interaction in the bot. The pre-check runs
// inside the surrounding transaction; SQLite's single-writer model makes it
// race-free, and the (bot_id, token) primary key backstops it anyway.
func claimTriggers(ctx context.Context, tx *sql.Tx, botID, interactionID string, tokens []string) error {
	for _, token := range tokens {
		var owner string
		err := tx.QueryRowContext(ctx,
			`SELECT interaction_id FROM triggers WHERE bot_id = ? AND token = ?`,
			botID, token,
		).Scan(&owner)
		switch {
		case err == sql.ErrNoRows:
			// free to claim
		case err != nil:
			return fmt.Errorf("claim trigger %q: %w", token, err)
		case owner != interactionID:
			return &flow.ValidationError{
				Field:   "triggers",
				Message: fmt.Sprintf("trigger %q already used by interaction %s", token, owner),
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO triggers (bot_id, token, interaction_id)
			VALUES (?, ?, ?)
			ON CONFLICT(bot_id, token) DO NOTHING
		`, botID, token, interactionID)
		if err != nil {
			return fmt.Errorf("claim trigger %q: %w", token, err)
		}
	}
	return nil
}

// releaseTriggers frees every trigger claimed by an interaction.
func releaseTriggers(ctx context.Context, tx *sql.Tx, interactionID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE interaction_id = ?`, interactionID); err != nil {
		return fmt.Errorf("release triggers: %w", err)
	}
	return nil
}

// checkRefTargetsLive rejects new references to soft-deleted targets.
// References to ids that do not exist yet are allowed at draft time
// (forward references); the published-graph scan reports them if they are
// still dangling at publish review.
func checkRefTargetsLive(ctx context.Context, tx *sql.Tx, refs []flow.Ref) error {
	for _, r := range refs {
		var deletedAt sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT deleted_at FROM interactions WHERE id = ?`, r.TargetID,
		).Scan(&deletedAt)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("check ref target %s: %w", r.TargetID, err)
		}
		if deletedAt.Valid {
			return &flow.ValidationError{
				Field:   "responses",
				Message: fmt.Sprintf("block %q targets deleted interaction %s", r.Label, r.TargetID),
			}
		}
	}
	return nil
}

func insertRefs(ctx context.Context, tx *sql.Tx, refs []flow.Ref) error {
	for _, r := range refs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goto_refs (source_id, target_id, label)
			VALUES (?, ?, ?)
			ON CONFLICT(source_id, target_id, label) DO NOTHING
		`, r.SourceID, r.TargetID, r.Label)
		if err != nil {
			return fmt.Errorf("insert ref %s->%s: %w", r.SourceID, r.TargetID, err)
		}
	}
	return nil
}

func applyRefDiff(ctx context.Context, tx *sql.Tx, diff flow.RefDiff) error {
	for _, r := range diff.Removed {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM goto_refs WHERE source_id = ? AND target_id = ? AND label = ?`,
			r.SourceID, r.TargetID, r.Label,
		)
		if err != nil {
			return fmt.Errorf("remove ref %s->%s: %w", r.SourceID, r.TargetID, err)
		}
	}
	return insertRefs(ctx, tx, diff.Added)
}

// appendRevision records the post-write snapshot in the append-only audit
// log, inside the same transaction as the write it describes.
func appendRevision(ctx context.Context, tx *sql.Tx, interactionID string, version int64, op, contentJSON string, at time.Time, by string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (interaction_id, version, op, content, written_at, written_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, interactionID, version, op, contentJSON, formatTime(at), by)
	if err != nil {
		return fmt.Errorf("append revision %s v%d: %w", interactionID, version, err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// distinctSources returns the unique source ids of a reference set in
// first-seen order.
func distinctSources(refs []flow.Ref) []string {
	seen := make(map[string]struct{}, len(refs))
	var out []string
	for _, r := range refs {
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		out = append(out, r.SourceID)
	}
	return out
}
