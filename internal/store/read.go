package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/botloom/botloom/internal/flow"
)

// querier is the subset of sql.DB / sql.Tx used by the scan helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const interactionColumns = `
	id, bot_id, workspace_id, parent_id, name, version,
	draft_content, draft_hash, published_content, published_hash,
	created_at, updated_at, updated_by, published_at, published_by, deleted_at
`

// Get returns a live interaction. Unknown and soft-deleted ids both yield
// NotFoundError; soft-deleted rows remain reachable through History.
func (s *Store) Get(ctx context.Context, id string) (*flow.Interaction, error) {
	rec, err := getInteraction(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted() {
		return nil, &flow.NotFoundError{Kind: "interaction", ID: id}
	}
	return rec, nil
}

// getInteractionTx reads any row (deleted included) inside a transaction.
func getInteractionTx(ctx context.Context, tx *sql.Tx, id string) (*flow.Interaction, error) {
	return getInteraction(ctx, tx, id)
}

func getInteraction(ctx context.Context, q querier, id string) (*flow.Interaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE id = ?
	`, id)

	rec, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, &flow.NotFoundError{Kind: "interaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction %s: %w", id, err)
	}
	return rec, nil
}

// List returns a bot's interactions matching the filter, ordered by
// creation time with the id as deterministic tiebreaker.
func (s *Store) List(ctx context.Context, botID string, filter Filter) ([]flow.Interaction, error) {
	where, params := filter.compile(botID)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		`+where+`
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	return collectInteractions(rows)
}

// Inbound returns the reference-index entries targeting an interaction:
// every live (source id, block label) pair referencing it via goto or
// fallback blocks.
func (s *Store) Inbound(ctx context.Context, targetID string) ([]flow.Ref, error) {
	return inboundRefs(ctx, s.db, targetID)
}

func inboundRefsTx(ctx context.Context, tx *sql.Tx, targetID string) ([]flow.Ref, error) {
	return inboundRefs(ctx, tx, targetID)
}

func inboundRefs(ctx context.Context, q querier, targetID string) ([]flow.Ref, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT source_id, target_id, label
		FROM goto_refs
		WHERE target_id = ?
		ORDER BY source_id COLLATE BINARY ASC, label COLLATE BINARY ASC
	`, targetID)
	if err != nil {
		return nil, fmt.Errorf("inbound refs %s: %w", targetID, err)
	}
	defer rows.Close()

	var refs []flow.Ref
	for rows.Next() {
		var r flow.Ref
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.Label); err != nil {
			return nil, fmt.Errorf("inbound refs %s: %w", targetID, err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inbound refs %s: %w", targetID, err)
	}
	return refs, nil
}

// PendingPublication returns the live interactions of a bot whose draft
// content differs from the published snapshot. Never-published counts as
// differing.
func (s *Store) PendingPublication(ctx context.Context, botID string) ([]flow.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE bot_id = ? AND deleted_at IS NULL
		  AND (published_hash IS NULL OR draft_hash <> published_hash)
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, botID)
	if err != nil {
		return nil, fmt.Errorf("pending publication: %w", err)
	}
	defer rows.Close()

	return collectInteractions(rows)
}

// PendingSummary aggregates the pending-publication count per bot across a
// workspace. Bots with nothing pending are absent from the map.
func (s *Store) PendingSummary(ctx context.Context, workspaceID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bot_id, COUNT(*)
		FROM interactions
		WHERE workspace_id = ? AND deleted_at IS NULL
		  AND (published_hash IS NULL OR draft_hash <> published_hash)
		GROUP BY bot_id
		ORDER BY bot_id COLLATE BINARY ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("pending summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var botID string
		var count int
		if err := rows.Scan(&botID, &count); err != nil {
			return nil, fmt.Errorf("pending summary: %w", err)
		}
		summary[botID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending summary: %w", err)
	}
	return summary, nil
}

// ListPublished returns the live interactions of a bot that have a
// published snapshot. Used by the published-graph scan.
func (s *Store) ListPublished(ctx context.Context, botID string) ([]flow.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE bot_id = ? AND deleted_at IS NULL AND published_hash IS NOT NULL
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, botID)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	defer rows.Close()

	return collectInteractions(rows)
}

// Resolve returns id, deleted flag, and existence for a referenced target.
// The published-graph scan uses it to classify dangling references.
func (s *Store) Resolve(ctx context.Context, id string) (exists, deleted bool, err error) {
	var deletedAt sql.NullString
	scanErr := s.db.QueryRowContext(ctx,
		`SELECT deleted_at FROM interactions WHERE id = ?`, id,
	).Scan(&deletedAt)
	if scanErr == sql.ErrNoRows {
		return false, false, nil
	}
	if scanErr != nil {
		return false, false, fmt.Errorf("resolve %s: %w", id, scanErr)
	}
	return true, deletedAt.Valid, nil
}

// Path returns the breadcrumb chain from the root ancestor down to the
// interaction itself. A broken or cyclic parent chain terminates at the
// last resolvable ancestor rather than erroring.
func (s *Store) Path(ctx context.Context, id string) ([]flow.Interaction, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []flow.Interaction{*rec}
	visited := map[string]struct{}{rec.ID: {}}

	for current := rec; current.ParentID != ""; {
		if _, seen := visited[current.ParentID]; seen {
			break
		}
		parent, err := getInteraction(ctx, s.db, current.ParentID)
		if err != nil {
			if flow.IsNotFound(err) {
				break
			}
			return nil, err
		}
		if parent.Deleted() {
			break
		}
		visited[parent.ID] = struct{}{}
		chain = append([]flow.Interaction{*parent}, chain...)
		current = parent
	}
	return chain, nil
}

// History returns the prior snapshots of an interaction, newest first.
// Works for soft-deleted interactions too; the audit trail outlives the
// node.
func (s *Store) History(ctx context.Context, id string) ([]flow.Revision, error) {
	// Existence check against any row, deleted included.
	if _, err := getInteraction(ctx, s.db, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT interaction_id, version, op, content, written_at, written_by
		FROM revisions
		WHERE interaction_id = ?
		ORDER BY version DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	defer rows.Close()

	var revisions []flow.Revision
	for rows.Next() {
		var rev flow.Revision
		var contentJSON, writtenAt string
		if err := rows.Scan(&rev.InteractionID, &rev.Version, &rev.Op, &contentJSON, &writtenAt, &rev.By); err != nil {
			return nil, fmt.Errorf("history %s: %w", id, err)
		}
		if rev.Content, err = unmarshalContent(contentJSON); err != nil {
			return nil, fmt.Errorf("history %s v%d: %w", id, rev.Version, err)
		}
		if rev.At, err = parseTime(writtenAt); err != nil {
			return nil, fmt.Errorf("history %s v%d: %w", id, rev.Version, err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	return revisions, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanInteraction.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row rowScanner) (*flow.Interaction, error) {
	var (
		rec              flow.Interaction
		parentID         sql.NullString
		draftJSON        string
		publishedJSON    sql.NullString
		publishedHash    sql.NullString
		createdAt        string
		updatedAt        string
		publishedAt      sql.NullString
		publishedBy      sql.NullString
		deletedAt        sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.BotID, &rec.WorkspaceID, &parentID, &rec.Name, &rec.Version,
		&draftJSON, &rec.DraftHash, &publishedJSON, &publishedHash,
		&createdAt, &updatedAt, &rec.UpdatedBy, &publishedAt, &publishedBy, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ParentID = parentID.String

	if rec.DraftContent, err = unmarshalContent(draftJSON); err != nil {
		return nil, err
	}
	if publishedJSON.Valid {
		published, err := unmarshalContent(publishedJSON.String)
		if err != nil {
			return nil, err
		}
		rec.PublishedContent = &published
		rec.PublishedHash = publishedHash.String
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if rec.PublishedAt, err = parseNullableTime(publishedAt); err != nil {
		return nil, err
	}
	rec.PublishedBy = publishedBy.String
	if rec.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &rec, nil
}

func collectInteractions(rows *sql.Rows) ([]flow.Interaction, error) {
	// Return empty slice instead of nil
	out := []flow.Interaction{}
	for rows.Next() {
		rec, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}
