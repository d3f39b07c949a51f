// Package flow defines the domain model for the interaction graph:
// interactions (dialogue nodes), their draft/published content snapshots,
// the tagged union of response blocks, and the pure functions that derive
// goto references and content hashes from them.
//
// # Content identity
//
// Draft and published snapshots are compared by a domain-separated SHA-256
// hash over canonical JSON (RFC 8785 subset). Canonical serialization is the
// ONLY serialization used for hash computation; see canonical.go.
//
// # References
//
// Goto and fallback response blocks carry a target interaction ID. Reference
// extraction and diffing are pure functions over the block list (refs.go),
// so the store can maintain its reference index as a function of content
// writes rather than as ambient mutable state.
//
// # Errors
//
// All engine error kinds live here: ValidationError, ConflictError,
// ReferenceConflictError, NotFoundError, and the collected GraphIssue report
// items. Error text is language-neutral; user-facing wording is produced by
// callers from the Code fields.
package flow
