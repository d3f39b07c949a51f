package store

import (
	"strings"

	"github.com/botloom/botloom/internal/flow"
)

// Filter narrows List results. Zero value matches every live interaction
// of the bot.
type Filter struct {
	// NameContains matches case-insensitively on the interaction name.
	NameContains string

	// State restricts to one lifecycle state. Empty means any live state;
	// flow.StateDeleted implies IncludeDeleted.
	State flow.State

	// IncludeDeleted keeps soft-deleted interactions in the result.
	IncludeDeleted bool
}

// compile assembles the parameterized WHERE clause. Values are always
// parameterized, never interpolated; the clause text is built only from
// fixed fragments.
func (f Filter) compile(botID string) (where string, params []any) {
	conds := []string{"bot_id = ?"}
	params = append(params, botID)

	switch f.State {
	case flow.StateDraftOnly:
		conds = append(conds, "published_hash IS NULL", "deleted_at IS NULL")
	case flow.StateSynced:
		conds = append(conds, "published_hash IS NOT NULL", "draft_hash = published_hash", "deleted_at IS NULL")
	case flow.StatePending:
		conds = append(conds, "published_hash IS NOT NULL", "draft_hash <> published_hash", "deleted_at IS NULL")
	case flow.StateDeleted:
		conds = append(conds, "deleted_at IS NOT NULL")
	default:
		if !f.IncludeDeleted {
			conds = append(conds, "deleted_at IS NULL")
		}
	}

	if f.NameContains != "" {
		conds = append(conds, "name LIKE ? ESCAPE '\\'")
		params = append(params, "%"+escapeLike(f.NameContains)+"%")
	}

	return "WHERE " + strings.Join(conds, " AND "), params
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
