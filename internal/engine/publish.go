package engine

import (
	"context"
	"sort"

	"github.com/botloom/botloom/internal/flow"
)

// PublishErrors scans a bot's published graph and reports every finding:
// goto/fallback targets that are missing or soft-deleted, plus trigger
// tokens that are malformed or claimed by more than one published
// interaction. Drafts are not inspected; divergence between a draft and
// its published snapshot is the pending-publication view's concern.
func (s *Service) PublishErrors(ctx context.Context, botID string) ([]flow.GraphIssue, error) {
	if err := validateRequired("bot_id", botID); err != nil {
		return nil, err
	}
	published, err := s.store.ListPublished(ctx, botID)
	if err != nil {
		return nil, err
	}

	issues := []flow.GraphIssue{}
	triggerOwners := map[string][]string{}

	// Target resolution is memoized: a hub interaction referenced from
	// many places resolves once.
	type resolution struct{ exists, deleted bool }
	resolved := map[string]resolution{}

	for i := range published {
		rec := &published[i]
		content := rec.PublishedContent
		if content == nil {
			continue
		}

		for _, trig := range content.Triggers {
			if !flow.ValidTrigger(trig) {
				issues = append(issues, flow.GraphIssue{
					Code:          flow.IssueMalformedTrigger,
					InteractionID: rec.ID,
					Trigger:       trig,
				})
				continue
			}
			triggerOwners[trig] = append(triggerOwners[trig], rec.ID)
		}

		for _, ref := range flow.ExtractRefs(rec.ID, content.Responses) {
			r, ok := resolved[ref.TargetID]
			if !ok {
				exists, deleted, err := s.store.Resolve(ctx, ref.TargetID)
				if err != nil {
					return nil, err
				}
				r = resolution{exists: exists, deleted: deleted}
				resolved[ref.TargetID] = r
			}
			switch {
			case !r.exists:
				issues = append(issues, flow.GraphIssue{
					Code:          flow.IssueMissingTarget,
					InteractionID: rec.ID,
					Label:         ref.Label,
					TargetID:      ref.TargetID,
				})
			case r.deleted:
				issues = append(issues, flow.GraphIssue{
					Code:          flow.IssueDeletedTarget,
					InteractionID: rec.ID,
					Label:         ref.Label,
					TargetID:      ref.TargetID,
				})
			}
		}
	}

	// The live-trigger table enforces uniqueness for drafts; published
	// snapshots can still collide when edits reshuffled triggers after a
	// publish, so the scan re-checks them.
	for trig, owners := range triggerOwners {
		if len(owners) < 2 {
			continue
		}
		for _, owner := range owners {
			issues = append(issues, flow.GraphIssue{
				Code:          flow.IssueDuplicateTrigger,
				InteractionID: owner,
				Trigger:       trig,
				Detail:        "claimed by multiple published interactions",
			})
		}
	}

	// Map iteration reshuffles duplicate-trigger findings; sort so the
	// report is stable for diffing and golden snapshots.
	sort.Slice(issues, func(a, b int) bool {
		x, y := issues[a], issues[b]
		if x.InteractionID != y.InteractionID {
			return x.InteractionID < y.InteractionID
		}
		if x.Code != y.Code {
			return x.Code < y.Code
		}
		if x.Trigger != y.Trigger {
			return x.Trigger < y.Trigger
		}
		return x.Label < y.Label
	})

	s.logger.DebugContext(ctx, "published graph scanned",
		"bot", botID, "published", len(published), "issues", len(issues))
	return issues, nil
}
