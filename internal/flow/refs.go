package flow

import "fmt"

// Ref is one directed goto edge: a response block inside SourceID targeting
// another interaction. Label identifies the block for conflict reports.
type Ref struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label"`
}

// ExtractRefs returns the goto references of a block list in block order.
// Goto and fallback blocks with a target contribute one reference each;
// other kinds contribute nothing. Blocks without an explicit label get a
// positional one so conflict reports can always point at the block.
func ExtractRefs(sourceID string, blocks []ResponseBlock) []Ref {
	var refs []Ref
	for i, b := range blocks {
		var target string
		switch v := b.(type) {
		case GotoBlock:
			target = v.TargetID
		case FallbackBlock:
			target = v.TargetID
		}
		if target == "" {
			continue
		}

		label := b.BlockLabel()
		if label == "" {
			label = fmt.Sprintf("%s#%d", b.Kind(), i)
		}
		refs = append(refs, Ref{SourceID: sourceID, TargetID: target, Label: label})
	}
	return refs
}

// RefDiff is the incremental change to the reference index implied by one
// content write.
type RefDiff struct {
	Added   []Ref
	Removed []Ref
}

// DiffRefs computes the index delta between two block lists. The diff is a
// pure function of the contents, so the store can apply it inside the same
// transaction as the write itself.
func DiffRefs(sourceID string, oldBlocks, newBlocks []ResponseBlock) RefDiff {
	oldRefs := ExtractRefs(sourceID, oldBlocks)
	newRefs := ExtractRefs(sourceID, newBlocks)

	oldSet := make(map[Ref]struct{}, len(oldRefs))
	for _, r := range oldRefs {
		oldSet[r] = struct{}{}
	}
	newSet := make(map[Ref]struct{}, len(newRefs))
	for _, r := range newRefs {
		newSet[r] = struct{}{}
	}

	var diff RefDiff
	for _, r := range newRefs {
		if _, ok := oldSet[r]; !ok {
			diff.Added = append(diff.Added, r)
		}
	}
	for _, r := range oldRefs {
		if _, ok := newSet[r]; !ok {
			diff.Removed = append(diff.Removed, r)
		}
	}
	return diff
}

// StripTarget removes goto references to target from a block list: goto
// blocks are dropped, fallback blocks keep their text but lose the jump.
// Returns the repaired list and whether anything changed. Used by cascade
// delete to neutralize inbound references.
func StripTarget(blocks []ResponseBlock, target string) ([]ResponseBlock, bool) {
	out := make([]ResponseBlock, 0, len(blocks))
	changed := false
	for _, b := range blocks {
		switch v := b.(type) {
		case GotoBlock:
			if v.TargetID == target {
				changed = true
				continue
			}
		case FallbackBlock:
			if v.TargetID == target {
				v.TargetID = ""
				changed = true
				if v.Text == "" {
					// Fallback with neither text nor target would be
					// invalid; drop it entirely.
					continue
				}
				out = append(out, v)
				continue
			}
		}
		out = append(out, b)
	}
	return out, changed
}
