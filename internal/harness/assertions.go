package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/botloom/botloom/internal/flow"
)

// evaluate checks one assertion against the final graph and returns a
// failure message, or empty on success.
func (h *Harness) evaluate(ctx context.Context, index int, a Assertion) string {
	switch a.Type {
	case AssertState:
		return h.assertState(ctx, index, a)
	case AssertVersion:
		return h.assertVersion(ctx, index, a)
	case AssertPending:
		return h.assertPending(ctx, index, a)
	case AssertInbound:
		return h.assertInbound(ctx, index, a)
	case AssertPublishErrors:
		return h.assertPublishErrors(ctx, index, a)
	case AssertComments:
		return h.assertComments(ctx, index, a)
	default:
		return fmt.Sprintf("assertions[%d]: unknown type %q", index, a.Type)
	}
}

func (h *Harness) assertState(ctx context.Context, index int, a Assertion) string {
	rec, err := h.svc.Get(ctx, h.id(a.Name))
	if err != nil {
		if flow.IsNotFound(err) && a.State == string(flow.StateDeleted) {
			return ""
		}
		return fmt.Sprintf("assertions[%d] state %s: %v", index, a.Name, err)
	}
	if got := string(rec.State()); got != a.State {
		return fmt.Sprintf("assertions[%d] state %s: expected %s, got %s", index, a.Name, a.State, got)
	}
	return ""
}

func (h *Harness) assertVersion(ctx context.Context, index int, a Assertion) string {
	rec, err := h.svc.Get(ctx, h.id(a.Name))
	if err != nil {
		return fmt.Sprintf("assertions[%d] version %s: %v", index, a.Name, err)
	}
	if rec.Version != a.Version {
		return fmt.Sprintf("assertions[%d] version %s: expected %d, got %d", index, a.Name, a.Version, rec.Version)
	}
	return ""
}

func (h *Harness) assertPending(ctx context.Context, index int, a Assertion) string {
	pending, err := h.svc.PendingPublication(ctx, h.bot)
	if err != nil {
		return fmt.Sprintf("assertions[%d] pending: %v", index, err)
	}
	got := make([]string, 0, len(pending))
	for i := range pending {
		got = append(got, pending[i].Name)
	}
	if !sameSet(got, a.Names) {
		return fmt.Sprintf("assertions[%d] pending: expected %v, got %v", index, a.Names, got)
	}
	return ""
}

func (h *Harness) assertInbound(ctx context.Context, index int, a Assertion) string {
	refs, err := h.svc.Inbound(ctx, h.id(a.Name))
	if err != nil {
		return fmt.Sprintf("assertions[%d] inbound %s: %v", index, a.Name, err)
	}
	got := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := h.nameOf(ref.SourceID)
		if name == "" {
			name = ref.SourceID
		}
		got = append(got, name)
	}
	if !sameSet(got, a.Sources) {
		return fmt.Sprintf("assertions[%d] inbound %s: expected %v, got %v", index, a.Name, a.Sources, got)
	}
	return ""
}

func (h *Harness) assertPublishErrors(ctx context.Context, index int, a Assertion) string {
	issues, err := h.svc.PublishErrors(ctx, h.bot)
	if err != nil {
		return fmt.Sprintf("assertions[%d] publish_errors: %v", index, err)
	}
	got := make([]string, 0, len(issues))
	for _, issue := range issues {
		got = append(got, string(issue.Code))
	}
	if !sameSet(got, a.Codes) {
		return fmt.Sprintf("assertions[%d] publish_errors: expected %v, got %v", index, a.Codes, got)
	}
	return ""
}

func (h *Harness) assertComments(ctx context.Context, index int, a Assertion) string {
	comments, err := h.svc.Comments(ctx, h.id(a.Name))
	if err != nil {
		return fmt.Sprintf("assertions[%d] comments %s: %v", index, a.Name, err)
	}
	if len(comments) != a.Count {
		return fmt.Sprintf("assertions[%d] comments %s: expected %d, got %d", index, a.Name, a.Count, len(comments))
	}
	return ""
}

// sameSet compares as multisets, order-insensitively.
func sameSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}
