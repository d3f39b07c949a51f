// Package store provides SQLite-backed durable storage for the interaction
// graph.
//
// The store owns every atomic boundary in the engine:
//
//   - Optimistic concurrency: update and publish are a single conditional
//     UPDATE ... WHERE id = ? AND version = ? (compare-and-swap on version).
//     A stale writer always gets a ConflictError; lost updates are impossible.
//   - Reference index: the goto_refs table is a derived adjacency map
//     (target -> referencing source/label pairs). It is maintained
//     incrementally from response-block diffs inside the same transaction as
//     every content write, never recomputed ambiently. RebuildRefs exists as
//     a repair/verification path.
//   - Trigger uniqueness: the triggers table has PRIMARY KEY (bot_id, token)
//     over live interactions, so bot-wide trigger collisions are rejected by
//     the database inside the writing transaction.
//   - Cascade delete: inbound-check, draft repair of every referencing
//     interaction, and the soft delete commit or roll back as one
//     transaction. Partial reference repair is never left visible.
//   - Revisions: every successful write appends a historical snapshot row.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Content hashes are computed in internal/flow via canonical JSON and
// SHA-256 with domain separation.
package store
