package store

import (
	"strings"
	"testing"

	"github.com/botloom/botloom/internal/flow"
)

func TestFilterCompileDefault(t *testing.T) {
	where, params := Filter{}.compile("bot-1")
	if where != "WHERE bot_id = ? AND deleted_at IS NULL" {
		t.Errorf("where = %q", where)
	}
	if len(params) != 1 || params[0] != "bot-1" {
		t.Errorf("params = %v", params)
	}
}

func TestFilterCompileStates(t *testing.T) {
	tests := []struct {
		state    flow.State
		fragment string
	}{
		{flow.StateDraftOnly, "published_hash IS NULL"},
		{flow.StateSynced, "draft_hash = published_hash"},
		{flow.StatePending, "draft_hash <> published_hash"},
		{flow.StateDeleted, "deleted_at IS NOT NULL"},
	}
	for _, tt := range tests {
		where, _ := Filter{State: tt.state}.compile("bot-1")
		if !strings.Contains(where, tt.fragment) {
			t.Errorf("compile(%s) = %q, missing %q", tt.state, where, tt.fragment)
		}
	}
}

func TestFilterCompileNameParameterized(t *testing.T) {
	where, params := Filter{NameContains: "wel%come"}.compile("bot-1")
	if strings.Contains(where, "wel") {
		t.Errorf("name value leaked into SQL text: %q", where)
	}
	if len(params) != 2 {
		t.Fatalf("params = %v", params)
	}
	if params[1] != `%wel\%come%` {
		t.Errorf("LIKE param = %q, expected escaped metacharacters", params[1])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike = %q", got)
	}
}
