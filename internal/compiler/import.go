package compiler

import (
	"context"

	"github.com/botloom/botloom/internal/engine"
	"github.com/botloom/botloom/internal/flow"
)

// ImportResult reports what an import created.
type ImportResult struct {
	BotID string `json:"bot_id"`

	// IDs maps interaction names to their assigned stored ids, in the
	// Created order.
	IDs     map[string]string `json:"ids"`
	Created []string          `json:"created"`
}

// Import materializes a compiled definition through the engine as draft
// interactions.
//
// Stored ids are assigned at creation, so goto targets cannot be final on
// the first pass. Interactions are created in declaration order with goto
// targets carrying the referenced NAME; once every id is known, a second
// pass rewrites the referencing drafts with resolved ids. The store treats
// a name-shaped target as a forward reference, so the intermediate state
// is accepted and fully repaired before Import returns.
func Import(ctx context.Context, svc *engine.Service, def *BotDefinition, actor flow.Actor) (*ImportResult, error) {
	res := &ImportResult{
		BotID: def.BotID,
		IDs:   make(map[string]string, len(def.Interactions)),
	}

	byName := func(name string) string { return name }
	for _, ix := range parentFirst(def.Interactions) {
		rec, err := svc.Create(ctx, engine.CreateParams{
			BotID:       def.BotID,
			WorkspaceID: def.WorkspaceID,
			ParentID:    res.IDs[ix.Parent],
			Name:        ix.Name,
			Content:     ix.Content(byName),
		}, actor)
		if err != nil {
			return nil, err
		}
		res.IDs[ix.Name] = rec.ID
		res.Created = append(res.Created, rec.ID)
	}

	byID := func(name string) string { return res.IDs[name] }
	for _, ix := range def.Interactions {
		if !ix.References() {
			continue
		}
		if _, err := svc.Update(ctx, res.IDs[ix.Name], ix.Content(byID), 1, actor); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// parentFirst orders definitions so every interaction is created after
// its parent. The compiler has already rejected unknown parents and
// parent cycles, so the walk always terminates.
func parentFirst(defs []InteractionDef) []InteractionDef {
	byName := make(map[string]InteractionDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	ordered := make([]InteractionDef, 0, len(defs))
	placed := make(map[string]bool, len(defs))
	var place func(d InteractionDef)
	place = func(d InteractionDef) {
		if placed[d.Name] {
			return
		}
		placed[d.Name] = true
		if d.Parent != "" {
			place(byName[d.Parent])
		}
		ordered = append(ordered, d)
	}
	for _, d := range defs {
		place(d)
	}
	return ordered
}
