package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one authoring test scenario.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Bot and Workspace scope the scenario's interactions. Both have
	// defaults so small scenarios stay small.
	Bot       string `yaml:"bot,omitempty"`
	Workspace string `yaml:"workspace,omitempty"`

	// Steps is the authoring sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final graph.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one authoring operation. Op selects the operation; the other
// fields apply per op. Interactions are addressed by scenario-local
// name, never by stored id.
type Step struct {
	// Op is one of "create", "update", "publish", "delete", "comment".
	Op string `yaml:"op"`

	// Actor performs the write. Required.
	Actor string `yaml:"actor"`

	// Name addresses the interaction.
	Name string `yaml:"name"`

	// Parent is the parent interaction's name (create only).
	Parent string `yaml:"parent,omitempty"`

	// Triggers and Respond define content (create and update).
	Triggers []string   `yaml:"triggers,omitempty"`
	Respond  []BlockDef `yaml:"respond,omitempty"`

	// Version is the optimistic token for update and publish. Zero
	// means "the version the harness last observed", so scenarios only
	// spell out versions when testing staleness.
	Version int64 `yaml:"version,omitempty"`

	// Cascade applies to delete.
	Cascade bool `yaml:"cascade,omitempty"`

	// Body applies to comment.
	Body string `yaml:"body,omitempty"`

	// Expect validates the step outcome. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// BlockDef is one response block in scenario YAML. Exactly one kind
// field is set. Goto targets are interaction NAMES; a name the scenario
// never creates passes through verbatim, which is how scenarios express
// dangling references.
type BlockDef struct {
	Label string `yaml:"label,omitempty"`

	Text       string         `yaml:"text,omitempty"`
	Goto       string         `yaml:"goto,omitempty"`
	QuickReply *QuickReplyDef `yaml:"quick_reply,omitempty"`
	Set        *SetDef        `yaml:"set,omitempty"`
	Fallback   *FallbackDef   `yaml:"fallback,omitempty"`
}

// QuickReplyDef configures a quick reply block.
type QuickReplyDef struct {
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
}

// SetDef configures an attribute assignment block.
type SetDef struct {
	Attribute string `yaml:"attribute"`
	Value     string `yaml:"value"`
}

// FallbackDef configures a fallback block.
type FallbackDef struct {
	Text string `yaml:"text,omitempty"`
	Goto string `yaml:"goto,omitempty"`
}

// ExpectClause states the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected error kind: "validation", "conflict",
	// "reference_conflict", or "not_found". Empty means success.
	Error string `yaml:"error,omitempty"`

	// Version is the expected version after a successful step.
	Version int64 `yaml:"version,omitempty"`
}

// Assertion validates the final graph state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name addresses an interaction (state, version, inbound, comments).
	Name string `yaml:"name,omitempty"`

	// State is the expected lifecycle state (state).
	State string `yaml:"state,omitempty"`

	// Version is the expected version (version).
	Version int64 `yaml:"version,omitempty"`

	// Names is the expected pending set (pending), order-insensitive.
	Names []string `yaml:"names,omitempty"`

	// Sources is the expected inbound source set (inbound).
	Sources []string `yaml:"sources,omitempty"`

	// Codes is the expected publish finding code multiset
	// (publish_errors).
	Codes []string `yaml:"codes,omitempty"`

	// Count is the expected comment count (comments).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertVersion       = "version"
	AssertPending       = "pending"
	AssertInbound       = "inbound"
	AssertPublishErrors = "publish_errors"
	AssertComments      = "comments"
)

// Step op constants.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpPublish = "publish"
	OpDelete  = "delete"
	OpComment = "comment"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping an
// assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Bot == "" {
		s.Bot = "bot-1"
	}
	if s.Workspace == "" {
		s.Workspace = "ws-1"
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	if step.Actor == "" {
		return fmt.Errorf("steps[%d]: actor is required", index)
	}
	if step.Name == "" {
		return fmt.Errorf("steps[%d]: name is required", index)
	}

	switch step.Op {
	case OpCreate, OpUpdate:
		if len(step.Respond) == 0 {
			return fmt.Errorf("steps[%d]: %s requires respond blocks", index, step.Op)
		}
		for j, b := range step.Respond {
			if err := validateBlockDef(index, j, &b); err != nil {
				return err
			}
		}
	case OpPublish, OpDelete:
		// Addressed by name only.
	case OpComment:
		if step.Body == "" {
			return fmt.Errorf("steps[%d]: comment requires body", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Expect != nil && step.Expect.Error != "" {
		switch step.Expect.Error {
		case "validation", "conflict", "reference_conflict", "not_found":
		default:
			return fmt.Errorf("steps[%d]: unknown expected error kind %q", index, step.Expect.Error)
		}
	}
	return nil
}

func validateBlockDef(step, index int, b *BlockDef) error {
	set := 0
	if b.Text != "" {
		set++
	}
	if b.Goto != "" {
		set++
	}
	if b.QuickReply != nil {
		set++
	}
	if b.Set != nil {
		set++
	}
	if b.Fallback != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d].respond[%d]: exactly one of text, goto, quick_reply, set, fallback", step, index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertState:
		if a.Name == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: state requires name and state", index)
		}
	case AssertVersion:
		if a.Name == "" || a.Version < 1 {
			return fmt.Errorf("assertions[%d]: version requires name and version >= 1", index)
		}
	case AssertPending, AssertPublishErrors:
		// Empty expectation lists are meaningful: "nothing pending",
		// "no findings".
	case AssertInbound:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: inbound requires name", index)
		}
	case AssertComments:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: comments requires name", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
