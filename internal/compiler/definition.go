// Package compiler turns CUE bot definitions into importable interaction
// graphs. A definition file names interactions symbolically; goto and
// fallback targets refer to interaction names and are resolved to stored
// identifiers during import.
package compiler

import "github.com/botloom/botloom/internal/flow"

// BotDefinition is one compiled definition file: a bot, its workspace,
// and its interactions in declaration order.
type BotDefinition struct {
	BotID        string
	WorkspaceID  string
	Interactions []InteractionDef
}

// InteractionDef is one interaction as authored. Goto and Fallback
// targets hold interaction NAMES, not stored ids; Parent likewise.
type InteractionDef struct {
	Name     string
	Parent   string
	Triggers []string
	Blocks   []BlockDef
}

// BlockDef is one authored response block. Exactly one of the kind
// fields is set; the compiler enforces this.
type BlockDef struct {
	Kind  flow.BlockKind
	Label string

	Text      string   // text, fallback
	Goto      string   // goto, fallback: target interaction NAME
	Prompt    string   // quick_reply
	Options   []string // quick_reply
	Attribute string   // set_attribute
	Value     string   // set_attribute
}

// Content assembles the flow content of a definition with goto names
// substituted through resolve. resolve maps an interaction name to its
// stored id; the compiler guarantees every referenced name is defined,
// so resolve never sees an unknown name during import.
func (d InteractionDef) Content(resolve func(name string) string) flow.Content {
	blocks := make([]flow.ResponseBlock, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		switch b.Kind {
		case flow.KindText:
			blocks = append(blocks, flow.TextBlock{Label: b.Label, Text: b.Text})
		case flow.KindGoto:
			blocks = append(blocks, flow.GotoBlock{Label: b.Label, TargetID: resolve(b.Goto)})
		case flow.KindQuickReply:
			blocks = append(blocks, flow.QuickReplyBlock{Label: b.Label, Prompt: b.Prompt, Options: b.Options})
		case flow.KindSetAttribute:
			blocks = append(blocks, flow.SetAttributeBlock{Label: b.Label, Attribute: b.Attribute, Value: b.Value})
		case flow.KindFallback:
			fb := flow.FallbackBlock{Label: b.Label, Text: b.Text}
			if b.Goto != "" {
				fb.TargetID = resolve(b.Goto)
			}
			blocks = append(blocks, fb)
		}
	}
	return flow.Content{Triggers: d.Triggers, Responses: blocks}
}

// References reports whether the definition contains any goto or
// fallback target that needs name resolution.
func (d InteractionDef) References() bool {
	for _, b := range d.Blocks {
		if b.Goto != "" {
			return true
		}
	}
	return false
}
