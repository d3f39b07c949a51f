package flow

import (
	"encoding/json"
	"fmt"
)

// BlockKind discriminates the response block tagged union.
type BlockKind string

const (
	KindText         BlockKind = "text"
	KindGoto         BlockKind = "goto"
	KindQuickReply   BlockKind = "quickReply"
	KindSetAttribute BlockKind = "setAttribute"
	KindFallback     BlockKind = "fallback"
)

// ResponseBlock is a sealed interface over the dialogue action variants.
// Only TextBlock, GotoBlock, QuickReplyBlock, SetAttributeBlock, and
// FallbackBlock implement it. Decoding is discriminated by the "kind"
// field and rejects unknown kinds.
type ResponseBlock interface {
	Kind() BlockKind

	// BlockLabel is the human label identifying this block inside its
	// interaction (used in reference-conflict reports). May be empty.
	BlockLabel() string

	responseBlock() // sealed
}

// TextBlock sends a plain message.
type TextBlock struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

func (TextBlock) Kind() BlockKind      { return KindText }
func (b TextBlock) BlockLabel() string { return b.Label }
func (TextBlock) responseBlock()       {}

// GotoBlock jumps to another interaction. TargetID is a goto reference and
// is tracked by the reference index.
type GotoBlock struct {
	Label    string `json:"label,omitempty"`
	TargetID string `json:"target_interaction_id"`
}

func (GotoBlock) Kind() BlockKind      { return KindGoto }
func (b GotoBlock) BlockLabel() string { return b.Label }
func (GotoBlock) responseBlock()       {}

// QuickReplyBlock offers the end user a tapped choice. Options are plain
// text; routing from an option happens through triggers, not references.
type QuickReplyBlock struct {
	Label   string   `json:"label,omitempty"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func (QuickReplyBlock) Kind() BlockKind      { return KindQuickReply }
func (b QuickReplyBlock) BlockLabel() string { return b.Label }
func (QuickReplyBlock) responseBlock()       {}

// SetAttributeBlock writes a value into the conversation context.
type SetAttributeBlock struct {
	Label     string `json:"label,omitempty"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

func (SetAttributeBlock) Kind() BlockKind      { return KindSetAttribute }
func (b SetAttributeBlock) BlockLabel() string { return b.Label }
func (SetAttributeBlock) responseBlock()       {}

// FallbackBlock handles unmatched input. An empty TargetID is legal and
// means "respond with Text, no jump"; a non-empty TargetID is a reference
// tracked exactly like a goto.
type FallbackBlock struct {
	Label    string `json:"label,omitempty"`
	Text     string `json:"text,omitempty"`
	TargetID string `json:"target_interaction_id,omitempty"`
}

func (FallbackBlock) Kind() BlockKind      { return KindFallback }
func (b FallbackBlock) BlockLabel() string { return b.Label }
func (FallbackBlock) responseBlock()       {}

// MarshalJSON implementations inject the kind discriminator.

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		alias
	}{KindText, alias(b)})
}

func (b GotoBlock) MarshalJSON() ([]byte, error) {
	type alias GotoBlock
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		alias
	}{KindGoto, alias(b)})
}

func (b QuickReplyBlock) MarshalJSON() ([]byte, error) {
	type alias QuickReplyBlock
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		alias
	}{KindQuickReply, alias(b)})
}

func (b SetAttributeBlock) MarshalJSON() ([]byte, error) {
	type alias SetAttributeBlock
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		alias
	}{KindSetAttribute, alias(b)})
}

func (b FallbackBlock) MarshalJSON() ([]byte, error) {
	type alias FallbackBlock
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		alias
	}{KindFallback, alias(b)})
}

// UnmarshalBlock decodes a single response block, dispatching on "kind".
func UnmarshalBlock(data []byte) (ResponseBlock, error) {
	var probe struct {
		Kind BlockKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode block kind: %w", err)
	}

	switch probe.Kind {
	case KindText:
		var b TextBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode text block: %w", err)
		}
		return b, nil
	case KindGoto:
		var b GotoBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode goto block: %w", err)
		}
		return b, nil
	case KindQuickReply:
		var b QuickReplyBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode quickReply block: %w", err)
		}
		return b, nil
	case KindSetAttribute:
		var b SetAttributeBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode setAttribute block: %w", err)
		}
		return b, nil
	case KindFallback:
		var b FallbackBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode fallback block: %w", err)
		}
		return b, nil
	case "":
		return nil, fmt.Errorf("response block missing kind")
	default:
		return nil, fmt.Errorf("unknown response block kind %q", probe.Kind)
	}
}

// UnmarshalJSON decodes Content, dispatching each response block on its
// kind discriminator.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Triggers  []string          `json:"triggers"`
		Responses []json.RawMessage `json:"responses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}

	c.Triggers = raw.Triggers
	c.Responses = make([]ResponseBlock, 0, len(raw.Responses))
	for i, msg := range raw.Responses {
		b, err := UnmarshalBlock(msg)
		if err != nil {
			return fmt.Errorf("responses[%d]: %w", i, err)
		}
		c.Responses = append(c.Responses, b)
	}
	return nil
}

// Clone returns a deep copy of the content. Blocks are value types, so the
// only aliased state is the slices themselves.
func (c Content) Clone() Content {
	out := Content{
		Triggers:  append([]string(nil), c.Triggers...),
		Responses: append([]ResponseBlock(nil), c.Responses...),
	}
	for i, b := range out.Responses {
		if qr, ok := b.(QuickReplyBlock); ok {
			qr.Options = append([]string(nil), qr.Options...)
			out.Responses[i] = qr
		}
	}
	return out
}
