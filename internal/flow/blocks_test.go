package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockMarshalIncludesKind(t *testing.T) {
	tests := []struct {
		name  string
		block ResponseBlock
		kind  string
	}{
		{"text", TextBlock{Text: "hello"}, "text"},
		{"goto", GotoBlock{TargetID: "i-1"}, "goto"},
		{"quickReply", QuickReplyBlock{Prompt: "pick", Options: []string{"a"}}, "quickReply"},
		{"setAttribute", SetAttributeBlock{Attribute: "lang", Value: "en"}, "setAttribute"},
		{"fallback", FallbackBlock{Text: "sorry"}, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.block)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"kind":"`+tt.kind+`"`)
		})
	}
}

func TestContentRoundTrip(t *testing.T) {
	content := Content{
		Triggers: []string{"start", "help"},
		Responses: []ResponseBlock{
			TextBlock{Label: "greeting", Text: "Welcome!"},
			QuickReplyBlock{Prompt: "What next?", Options: []string{"Order", "Support"}},
			SetAttributeBlock{Attribute: "stage", Value: "menu"},
			GotoBlock{Label: "to menu", TargetID: "i-menu"},
			FallbackBlock{Text: "Sorry, try again", TargetID: "i-help"},
		},
	}

	data, err := json.Marshal(content)
	require.NoError(t, err)

	var decoded Content
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, content.Triggers, decoded.Triggers)
	require.Len(t, decoded.Responses, 5)
	assert.Equal(t, content.Responses[0], decoded.Responses[0])
	assert.Equal(t, content.Responses[1], decoded.Responses[1])
	assert.Equal(t, content.Responses[2], decoded.Responses[2])
	assert.Equal(t, content.Responses[3], decoded.Responses[3])
	assert.Equal(t, content.Responses[4], decoded.Responses[4])
}

func TestUnmarshalBlockUnknownKind(t *testing.T) {
	_, err := UnmarshalBlock([]byte(`{"kind":"carousel"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown response block kind")
}

func TestUnmarshalBlockMissingKind(t *testing.T) {
	_, err := UnmarshalBlock([]byte(`{"text":"hi"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind")
}

func TestContentUnmarshalRejectsBadBlock(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"triggers":[],"responses":[{"kind":"nope"}]}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "responses[0]")
}

func TestCloneIsDeep(t *testing.T) {
	original := Content{
		Triggers: []string{"start"},
		Responses: []ResponseBlock{
			QuickReplyBlock{Prompt: "p", Options: []string{"a", "b"}},
		},
	}

	clone := original.Clone()
	clone.Triggers[0] = "changed"
	qr := clone.Responses[0].(QuickReplyBlock)
	qr.Options[0] = "changed"

	assert.Equal(t, "start", original.Triggers[0])
	assert.Equal(t, "a", original.Responses[0].(QuickReplyBlock).Options[0])
}

func TestInteractionState(t *testing.T) {
	draft := Content{Triggers: []string{"start"}}
	draftHash, err := ContentHash(draft)
	require.NoError(t, err)

	i := Interaction{DraftContent: draft, DraftHash: draftHash}
	assert.Equal(t, StateDraftOnly, i.State())

	published := draft.Clone()
	i.PublishedContent = &published
	i.PublishedHash = draftHash
	assert.Equal(t, StateSynced, i.State())

	i.DraftHash = "different"
	assert.Equal(t, StatePending, i.State())

	now := i.CreatedAt
	i.DeletedAt = &now
	assert.Equal(t, StateDeleted, i.State())
}
