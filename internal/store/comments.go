package store

import (
	"context"
	"fmt"

	"github.com/botloom/botloom/internal/flow"
)

// AddComment appends a comment to a live interaction. Comments are strictly
// append-only and sit outside the version CAS: adding one never touches the
// interaction's version or content.
func (s *Store) AddComment(ctx context.Context, c flow.Comment) error {
	// Reject comments on unknown or deleted interactions.
	if _, err := s.Get(ctx, c.InteractionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, interaction_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.InteractionID, c.Author, c.Body, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// Comments returns an interaction's comments oldest first, with the id as
// deterministic tiebreaker. Comments on soft-deleted interactions remain
// readable for audit.
func (s *Store) Comments(ctx context.Context, interactionID string) ([]flow.Comment, error) {
	if _, err := getInteraction(ctx, s.db, interactionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, interaction_id, author, body, created_at
		FROM comments
		WHERE interaction_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, interactionID)
	if err != nil {
		return nil, fmt.Errorf("comments %s: %w", interactionID, err)
	}
	defer rows.Close()

	// Return empty slice instead of nil
	comments := []flow.Comment{}
	for rows.Next() {
		var c flow.Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.InteractionID, &c.Author, &c.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("comments %s: %w", interactionID, err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("comments %s: %w", interactionID, err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("comments %s: %w", interactionID, err)
	}
	return comments, nil
}
