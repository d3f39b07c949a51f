package flow

import (
	"fmt"
	"regexp"
)

// triggerPattern constrains trigger tokens: identifier-shaped, so triggers
// can be embedded in flow logic without quoting.
var triggerPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTrigger reports whether the token matches the trigger pattern.
func ValidTrigger(token string) bool {
	return triggerPattern.MatchString(token)
}

// ValidateContent checks the locally-checkable invariants of one snapshot:
// trigger pattern, trigger uniqueness within the snapshot, and block field
// presence. Cross-interaction checks (bot-wide trigger uniqueness, target
// liveness) belong to the store's write transaction.
func ValidateContent(c Content) error {
	seen := make(map[string]struct{}, len(c.Triggers))
	for _, t := range c.Triggers {
		if !ValidTrigger(t) {
			return &ValidationError{
				Field:   "triggers",
				Message: fmt.Sprintf("trigger %q does not match %s", t, triggerPattern.String()),
			}
		}
		if _, dup := seen[t]; dup {
			return &ValidationError{
				Field:   "triggers",
				Message: fmt.Sprintf("duplicate trigger %q", t),
			}
		}
		seen[t] = struct{}{}
	}

	for i, b := range c.Responses {
		if err := validateBlock(i, b); err != nil {
			return err
		}
	}
	return nil
}

func validateBlock(i int, b ResponseBlock) error {
	field := fmt.Sprintf("responses[%d]", i)
	switch v := b.(type) {
	case TextBlock:
		if v.Text == "" {
			return &ValidationError{Field: field, Message: "text block requires text"}
		}
	case GotoBlock:
		if v.TargetID == "" {
			return &ValidationError{Field: field, Message: "goto block requires target_interaction_id"}
		}
	case QuickReplyBlock:
		if v.Prompt == "" {
			return &ValidationError{Field: field, Message: "quickReply block requires prompt"}
		}
		if len(v.Options) == 0 {
			return &ValidationError{Field: field, Message: "quickReply block requires at least one option"}
		}
	case SetAttributeBlock:
		if v.Attribute == "" {
			return &ValidationError{Field: field, Message: "setAttribute block requires attribute"}
		}
	case FallbackBlock:
		if v.Text == "" && v.TargetID == "" {
			return &ValidationError{Field: field, Message: "fallback block requires text or target_interaction_id"}
		}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("unknown block type %T", b)}
	}
	return nil
}
