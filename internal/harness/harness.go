package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/botloom/botloom/internal/engine"
	"github.com/botloom/botloom/internal/flow"
	"github.com/botloom/botloom/internal/store"
	"github.com/botloom/botloom/internal/testutil"
)

// scenarioEpoch anchors every scenario clock so traces are identical
// across runs and machines.
var scenarioEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Harness executes one scenario against a fresh in-memory store.
type Harness struct {
	svc *engine.Service
	bot string

	// ids maps scenario-local interaction names to stored ids.
	ids map[string]string

	// versions tracks the last version the harness observed per name,
	// used when a step omits its token.
	versions map[string]int64
}

// Event is one entry in the scenario trace: the step that ran and how
// it came out.
type Event struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Name    string `json:"name"`
	Actor   string `json:"actor"`
	Outcome string `json:"outcome"` // "ok" or the error kind
	Version int64  `json:"version,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	Passed   bool
	Trace    []Event
	Failures []string
}

// Run executes a scenario and returns its result. Run only returns an
// error for harness-level problems (store setup, malformed steps); step
// failures and assertion failures land in Result.Failures.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		svc: engine.New(st,
			engine.WithClock(testutil.NewTickingClock(scenarioEpoch, time.Second)),
			engine.WithIDGenerator(testutil.NewSequentialIDs("ix")),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
		bot:      scenario.Bot,
		ids:      make(map[string]string),
		versions: make(map[string]int64),
	}

	ctx := context.Background()
	result := &Result{Passed: true}

	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, scenario, i, step)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, *event)

		if fail := checkExpectation(i, step, event); fail != "" {
			result.Passed = false
			result.Failures = append(result.Failures, fail)
		}
	}

	for i, a := range scenario.Assertions {
		if fail := h.evaluate(ctx, i, a); fail != "" {
			result.Passed = false
			result.Failures = append(result.Failures, fail)
		}
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, scenario *Scenario, seq int, step Step) (*Event, error) {
	event := &Event{
		Seq:   seq,
		Op:    step.Op,
		Name:  step.Name,
		Actor: step.Actor,
	}
	actor := flow.Actor{ID: step.Actor}

	var rec *flow.Interaction
	var err error
	switch step.Op {
	case OpCreate:
		rec, err = h.svc.Create(ctx, engine.CreateParams{
			BotID:       scenario.Bot,
			WorkspaceID: scenario.Workspace,
			ParentID:    h.ids[step.Parent],
			Name:        step.Name,
			Content:     h.content(step),
		}, actor)
		if err == nil {
			h.ids[step.Name] = rec.ID
		}

	case OpUpdate:
		rec, err = h.svc.Update(ctx, h.id(step.Name), h.content(step), h.token(step), actor)

	case OpPublish:
		rec, err = h.svc.Publish(ctx, h.id(step.Name), h.token(step), actor)

	case OpDelete:
		var res *store.DeleteResult
		res, err = h.svc.Delete(ctx, h.id(step.Name), step.Cascade, actor)
		if err == nil {
			// Cascade repairs bump source versions; refresh every
			// tracked interaction the delete touched.
			for _, srcID := range res.RepairedSources {
				if name := h.nameOf(srcID); name != "" {
					if src, getErr := h.svc.Get(ctx, srcID); getErr == nil {
						h.versions[name] = src.Version
					}
				}
			}
			delete(h.versions, step.Name)
		}

	case OpComment:
		_, err = h.svc.AddComment(ctx, h.id(step.Name), step.Body, actor)

	default:
		return nil, fmt.Errorf("steps[%d]: unknown op %q", seq, step.Op)
	}

	if err != nil {
		event.Outcome = errorKind(err)
		return event, nil
	}
	event.Outcome = "ok"
	if rec != nil {
		event.Version = rec.Version
		h.versions[step.Name] = rec.Version
	}
	return event, nil
}

// content assembles a step's flow content, resolving goto names through
// the id registry. Unregistered names pass through verbatim so scenarios
// can express dangling targets.
func (h *Harness) content(step Step) flow.Content {
	blocks := make([]flow.ResponseBlock, 0, len(step.Respond))
	for _, b := range step.Respond {
		switch {
		case b.Text != "":
			blocks = append(blocks, flow.TextBlock{Label: b.Label, Text: b.Text})
		case b.Goto != "":
			blocks = append(blocks, flow.GotoBlock{Label: b.Label, TargetID: h.id(b.Goto)})
		case b.QuickReply != nil:
			blocks = append(blocks, flow.QuickReplyBlock{
				Label:   b.Label,
				Prompt:  b.QuickReply.Prompt,
				Options: b.QuickReply.Options,
			})
		case b.Set != nil:
			blocks = append(blocks, flow.SetAttributeBlock{
				Label:     b.Label,
				Attribute: b.Set.Attribute,
				Value:     b.Set.Value,
			})
		case b.Fallback != nil:
			fb := flow.FallbackBlock{Label: b.Label, Text: b.Fallback.Text}
			if b.Fallback.Goto != "" {
				fb.TargetID = h.id(b.Fallback.Goto)
			}
			blocks = append(blocks, fb)
		}
	}
	return flow.Content{Triggers: step.Triggers, Responses: blocks}
}

// id resolves a scenario name to its stored id, or returns the name
// itself when nothing was created under it.
func (h *Harness) id(name string) string {
	if id, ok := h.ids[name]; ok {
		return id
	}
	return name
}

func (h *Harness) nameOf(id string) string {
	for name, known := range h.ids {
		if known == id {
			return name
		}
	}
	return ""
}

// token picks the version token for a step: the explicit one, or the
// last version the harness observed for the name.
func (h *Harness) token(step Step) int64 {
	if step.Version != 0 {
		return step.Version
	}
	return h.versions[step.Name]
}

func checkExpectation(seq int, step Step, event *Event) string {
	wantErr := ""
	if step.Expect != nil {
		wantErr = step.Expect.Error
	}

	if wantErr == "" {
		if event.Outcome != "ok" {
			return fmt.Sprintf("steps[%d] %s %s: expected success, got %s", seq, step.Op, step.Name, event.Outcome)
		}
		if step.Expect != nil && step.Expect.Version != 0 && event.Version != step.Expect.Version {
			return fmt.Sprintf("steps[%d] %s %s: expected version %d, got %d",
				seq, step.Op, step.Name, step.Expect.Version, event.Version)
		}
		return ""
	}

	if event.Outcome != wantErr {
		return fmt.Sprintf("steps[%d] %s %s: expected %s, got %s", seq, step.Op, step.Name, wantErr, event.Outcome)
	}
	return ""
}

// errorKind maps engine errors to the scenario vocabulary.
func errorKind(err error) string {
	switch {
	case flow.IsValidation(err):
		return "validation"
	case flow.IsConflict(err):
		return "conflict"
	case flow.IsReferenceConflict(err):
		return "reference_conflict"
	case flow.IsNotFound(err):
		return "not_found"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
