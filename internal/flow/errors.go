package flow

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects malformed input before any persistence. The engine
// never retries these.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError rejects a write whose expectedVersion is stale. The caller
// must re-fetch and resubmit; the engine never merges or retries.
type ConflictError struct {
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: expected %d, stored %d", e.ID, e.Expected, e.Actual)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ReferenceConflictError blocks a non-cascade delete. Refs carries the exact
// referencing interactions and block labels so the caller can offer a
// cascade or a manual fix-up.
type ReferenceConflictError struct {
	TargetID string
	Refs     []Ref
}

func (e *ReferenceConflictError) Error() string {
	labels := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		labels[i] = fmt.Sprintf("%s/%s", r.SourceID, r.Label)
	}
	return fmt.Sprintf("cannot delete %s: referenced by %s", e.TargetID, strings.Join(labels, ", "))
}

// IsReferenceConflict reports whether err is (or wraps) a ReferenceConflictError.
func IsReferenceConflict(err error) bool {
	var re *ReferenceConflictError
	return errors.As(err, &re)
}

// NotFoundError reports an unknown or already-deleted id.
type NotFoundError struct {
	Kind string // "interaction", "comment", "bot"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IssueCode categorizes published-graph validation findings.
type IssueCode string

const (
	// IssueMissingTarget flags a goto/fallback whose target id does not exist.
	IssueMissingTarget IssueCode = "MISSING_TARGET"

	// IssueDeletedTarget flags a goto/fallback pointing at a soft-deleted
	// interaction.
	IssueDeletedTarget IssueCode = "DELETED_TARGET"

	// IssueDuplicateTrigger flags a trigger claimed by more than one
	// published interaction in the bot.
	IssueDuplicateTrigger IssueCode = "DUPLICATE_TRIGGER"

	// IssueMalformedTrigger flags a published trigger that fails the
	// trigger pattern.
	IssueMalformedTrigger IssueCode = "MALFORMED_TRIGGER"
)

// GraphIssue is one finding from the published-graph scan. Issues are
// collected into a report, never thrown: the scan is a bulk read over a
// whole graph and a single failure would hide the rest.
type GraphIssue struct {
	Code          IssueCode `json:"code"`
	InteractionID string    `json:"interaction_id"`
	Label         string    `json:"label,omitempty"`   // offending block, for target issues
	TargetID      string    `json:"target_id,omitempty"`
	Trigger       string    `json:"trigger,omitempty"` // offending trigger token
	Detail        string    `json:"detail,omitempty"`
}

func (i GraphIssue) String() string {
	switch i.Code {
	case IssueMissingTarget, IssueDeletedTarget:
		return fmt.Sprintf("%s: %s/%s -> %s", i.Code, i.InteractionID, i.Label, i.TargetID)
	case IssueDuplicateTrigger, IssueMalformedTrigger:
		return fmt.Sprintf("%s: %s trigger %q", i.Code, i.InteractionID, i.Trigger)
	default:
		return fmt.Sprintf("%s: %s", i.Code, i.InteractionID)
	}
}
