package store

import (
	"context"
	"testing"
	"time"

	"github.com/botloom/botloom/internal/flow"
)

// testStamp is a fixed write attribution for deterministic tests.
var testStamp = flow.Stamp{
	At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	By: flow.Actor{ID: "editor-1"},
}

func laterStamp(offset time.Duration) flow.Stamp {
	return flow.Stamp{
		At: testStamp.At.Add(offset),
		By: flow.Actor{ID: "editor-2"},
	}
}

// newTestStore opens a fresh in-memory database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newInteraction builds a fully-formed record the way the engine would.
func newInteraction(t *testing.T, id, botID string, content flow.Content) *flow.Interaction {
	t.Helper()
	hash, err := flow.ContentHash(content)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	return &flow.Interaction{
		ID:           id,
		BotID:        botID,
		WorkspaceID:  "ws-1",
		Name:         "node " + id,
		Version:      1,
		DraftContent: content,
		DraftHash:    hash,
		CreatedAt:    testStamp.At,
		UpdatedAt:    testStamp.At,
		UpdatedBy:    testStamp.By.ID,
	}
}

func mustCreate(t *testing.T, s *Store, rec *flow.Interaction) {
	t.Helper()
	if err := s.CreateInteraction(context.Background(), rec); err != nil {
		t.Fatalf("CreateInteraction(%s) failed: %v", rec.ID, err)
	}
}

func contentWithTriggers(triggers ...string) flow.Content {
	return flow.Content{
		Triggers:  triggers,
		Responses: []flow.ResponseBlock{flow.TextBlock{Text: "hello"}},
	}
}

func contentWithGoto(target string, triggers ...string) flow.Content {
	return flow.Content{
		Triggers: triggers,
		Responses: []flow.ResponseBlock{
			flow.TextBlock{Text: "hello"},
			flow.GotoBlock{Label: "jump", TargetID: target},
		},
	}
}

func mustHash(t *testing.T, c flow.Content) string {
	t.Helper()
	h, err := flow.ContentHash(c)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	return h
}
