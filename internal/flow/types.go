package flow

import "time"

// Interaction is one node in a bot's dialogue graph.
//
// It carries two content snapshots: DraftContent, which editors mutate, and
// PublishedContent, which is only ever replaced by an explicit publish.
// Version increments on every successful write and is the compare-and-swap
// token for optimistic concurrency.
type Interaction struct {
	ID          string `json:"id"`
	BotID       string `json:"bot_id"`
	WorkspaceID string `json:"workspace_id"`

	// ParentID links to a structural parent for breadcrumb display.
	// Empty for root interactions. Parent links are not goto references
	// and do not participate in the reference index.
	ParentID string `json:"parent_id,omitempty"`

	Name string `json:"name"`

	// Version is the optimistic-concurrency token. Strictly increasing,
	// never skipped or reused.
	Version int64 `json:"version"`

	DraftContent Content `json:"draft_content"`
	DraftHash    string  `json:"draft_hash"`

	// PublishedContent is nil if the interaction has never been published.
	PublishedContent *Content `json:"published_content,omitempty"`
	PublishedHash    string   `json:"published_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	PublishedBy string     `json:"published_by,omitempty"`

	// DeletedAt is the soft-delete marker. Nil means alive.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Content is one editable snapshot: entry-point triggers plus the ordered
// response block sequence.
type Content struct {
	Triggers  []string        `json:"triggers"`
	Responses []ResponseBlock `json:"responses"`
}

// State describes where an interaction sits in the publish lifecycle.
type State string

const (
	// StateDraftOnly means the interaction has never been published.
	StateDraftOnly State = "draft_only"

	// StateSynced means draft and published content are identical.
	StateSynced State = "synced"

	// StatePending means the draft has diverged from the published snapshot.
	StatePending State = "pending_publication"

	// StateDeleted is terminal; no operation transitions out of it.
	StateDeleted State = "deleted"
)

// State derives the lifecycle state from the stored hashes.
func (i *Interaction) State() State {
	switch {
	case i.DeletedAt != nil:
		return StateDeleted
	case i.PublishedContent == nil:
		return StateDraftOnly
	case i.DraftHash == i.PublishedHash:
		return StateSynced
	default:
		return StatePending
	}
}

// Deleted reports whether the interaction is soft-deleted.
func (i *Interaction) Deleted() bool { return i.DeletedAt != nil }

// Comment is an append-only annotation on an interaction. Comments are not
// versioned and do not participate in the publish lifecycle.
type Comment struct {
	ID            string    `json:"id"`
	InteractionID string    `json:"interaction_id"`
	Author        string    `json:"author"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

// Actor identifies the user performing a write. Supplied by the caller;
// authentication is external by contract.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Stamp is the write attribution recorded on every successful mutation.
type Stamp struct {
	At time.Time
	By Actor
}

// Revision is one historical snapshot of an interaction, appended on every
// successful write. Read-only: there is no revert operation.
type Revision struct {
	InteractionID string    `json:"interaction_id"`
	Version       int64     `json:"version"`
	Op            string    `json:"op"` // "create", "update", "publish", "cascade_repair", "delete"
	Content       Content   `json:"content"`
	At            time.Time `json:"at"`
	By            string    `json:"by"`
}
