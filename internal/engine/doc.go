// Package engine exposes the authoring operations of the interaction
// graph: drafting, publication, deletion with cascade repair, and the
// derived consistency checks. It validates input, assigns identities and
// timestamps, and delegates the transactional semantics to the store.
package engine
