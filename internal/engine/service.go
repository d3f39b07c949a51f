package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/botloom/botloom/internal/flow"
	"github.com/botloom/botloom/internal/store"
)

// Service is the authoring front door. All writes flow through it so that
// validation, identity assignment, and attribution happen in one place.
type Service struct {
	store  *store.Store
	clock  Clock
	ids    flow.IDGenerator
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(g flow.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds a Service over the given store. Defaults: system clock,
// UUIDv7 identifiers, slog default logger.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  SystemClock{},
		ids:    flow.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the caller-supplied fields of a new interaction.
type CreateParams struct {
	BotID       string
	WorkspaceID string
	ParentID    string
	Name        string
	Content     flow.Content
}

// Create validates and persists a new interaction at version 1. The draft
// content hash is computed here; the published snapshot starts empty.
func (s *Service) Create(ctx context.Context, p CreateParams, actor flow.Actor) (*flow.Interaction, error) {
	if err := validateRequired("bot_id", p.BotID); err != nil {
		return nil, err
	}
	if err := validateRequired("workspace_id", p.WorkspaceID); err != nil {
		return nil, err
	}
	if err := validateRequired("name", p.Name); err != nil {
		return nil, err
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := flow.ValidateContent(p.Content); err != nil {
		return nil, err
	}

	hash, err := flow.ContentHash(p.Content)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	rec := &flow.Interaction{
		ID:           s.ids.NewID(),
		BotID:        p.BotID,
		WorkspaceID:  p.WorkspaceID,
		ParentID:     p.ParentID,
		Name:         strings.TrimSpace(p.Name),
		Version:      1,
		DraftContent: p.Content,
		DraftHash:    hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		UpdatedBy:    actor.ID,
	}
	if err := s.store.CreateInteraction(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "interaction created",
		"id", rec.ID, "bot", rec.BotID, "name", rec.Name, "actor", actor.ID)
	return rec, nil
}

// Update replaces the draft content of an interaction, guarded by the
// optimistic version token. On a stale token it returns a ConflictError
// carrying the current version; the caller refetches and resubmits.
func (s *Service) Update(ctx context.Context, id string, content flow.Content, expectedVersion int64, actor flow.Actor) (*flow.Interaction, error) {
	if err := validateRequired("id", id); err != nil {
		return nil, err
	}
	if expectedVersion < 1 {
		return nil, &flow.ValidationError{Field: "expected_version", Message: "must be at least 1"}
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := flow.ValidateContent(content); err != nil {
		return nil, err
	}
	hash, err := flow.ContentHash(content)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.UpdateDraft(ctx, id, content, hash, expectedVersion, s.stamp(actor))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "draft updated",
		"id", rec.ID, "version", rec.Version, "actor", actor.ID)
	return rec, nil
}

// Get returns one interaction, or a NotFoundError for unknown or
// soft-deleted identifiers.
func (s *Service) Get(ctx context.Context, id string) (*flow.Interaction, error) {
	return s.store.Get(ctx, id)
}

// List returns a bot's interactions in deterministic creation order.
func (s *Service) List(ctx context.Context, botID string, filter store.Filter) ([]flow.Interaction, error) {
	if err := validateRequired("bot_id", botID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, botID, filter)
}

// Inbound returns the live references pointing at the given interaction.
func (s *Service) Inbound(ctx context.Context, targetID string) ([]flow.Ref, error) {
	return s.store.Inbound(ctx, targetID)
}

// Delete soft-deletes an interaction. Without cascade it fails with a
// ReferenceConflictError while live references point at the target; with
// cascade it first rewrites every referencing draft to drop the target.
func (s *Service) Delete(ctx context.Context, id string, cascade bool, actor flow.Actor) (*store.DeleteResult, error) {
	if err := validateRequired("id", id); err != nil {
		return nil, err
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	res, err := s.store.DeleteInteraction(ctx, id, cascade, s.stamp(actor))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "interaction deleted",
		"id", res.DeletedID, "cascade", cascade, "repaired", len(res.RepairedSources), "actor", actor.ID)
	return res, nil
}

// Publish promotes the draft snapshot to published, guarded by the version
// token. Publishing an already-synced interaction is a no-op and does not
// bump the version.
func (s *Service) Publish(ctx context.Context, id string, expectedVersion int64, actor flow.Actor) (*flow.Interaction, error) {
	if err := validateRequired("id", id); err != nil {
		return nil, err
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	rec, err := s.store.PublishDraft(ctx, id, expectedVersion, s.stamp(actor))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "interaction published",
		"id", rec.ID, "version", rec.Version, "state", string(rec.State()), "actor", actor.ID)
	return rec, nil
}

// PendingPublication lists a bot's interactions whose draft has diverged
// from the published snapshot, including never-published drafts.
func (s *Service) PendingPublication(ctx context.Context, botID string) ([]flow.Interaction, error) {
	if err := validateRequired("bot_id", botID); err != nil {
		return nil, err
	}
	return s.store.PendingPublication(ctx, botID)
}

// PendingSummary counts pending interactions per bot across a workspace.
func (s *Service) PendingSummary(ctx context.Context, workspaceID string) (map[string]int, error) {
	if err := validateRequired("workspace_id", workspaceID); err != nil {
		return nil, err
	}
	return s.store.PendingSummary(ctx, workspaceID)
}

// Path returns the breadcrumb chain from the root ancestor down to the
// given interaction.
func (s *Service) Path(ctx context.Context, id string) ([]flow.Interaction, error) {
	return s.store.Path(ctx, id)
}

// History returns the revision log of an interaction, newest first. The
// log remains readable after soft deletion.
func (s *Service) History(ctx context.Context, id string) ([]flow.Revision, error) {
	return s.store.History(ctx, id)
}

// AddComment appends a comment to a live interaction.
func (s *Service) AddComment(ctx context.Context, interactionID, body string, actor flow.Actor) (*flow.Comment, error) {
	if err := validateRequired("interaction_id", interactionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, &flow.ValidationError{Field: "body", Message: "must not be empty"}
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	c := flow.Comment{
		ID:            s.ids.NewID(),
		InteractionID: interactionID,
		Author:        actor.ID,
		Body:          body,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Comments lists an interaction's comments, oldest first. Unlike most
// reads this works for soft-deleted interactions.
func (s *Service) Comments(ctx context.Context, interactionID string) ([]flow.Comment, error) {
	return s.store.Comments(ctx, interactionID)
}

func (s *Service) stamp(actor flow.Actor) flow.Stamp {
	return flow.Stamp{At: s.clock.Now(), By: actor}
}

func validateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &flow.ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

func validateActor(actor flow.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return &flow.ValidationError{Field: "actor", Message: "must not be empty"}
	}
	return nil
}
