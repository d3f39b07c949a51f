package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/botloom/botloom/internal/flow"
)

// CompileFile reads a CUE definition file and compiles it.
func CompileFile(path string) (*BotDefinition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return CompileBytes(path, src)
}

// CompileBytes compiles CUE source into a BotDefinition. filename is
// used for error positions only.
func CompileBytes(filename string, src []byte) (*BotDefinition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileBot(v.LookupPath(cue.ParsePath("bot")))
}

func compileBot(v cue.Value) (*BotDefinition, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "bot", Message: "bot struct is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &BotDefinition{}

	botID, err := requireString(v, "id")
	if err != nil {
		return nil, err
	}
	def.BotID = botID

	wsID, err := requireString(v, "workspace")
	if err != nil {
		return nil, err
	}
	def.WorkspaceID = wsID

	ixVal := v.LookupPath(cue.ParsePath("interaction"))
	if !ixVal.Exists() {
		return nil, &CompileError{
			Field:   "interaction",
			Message: "at least one interaction is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := ixVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ix, err := compileInteraction(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		def.Interactions = append(def.Interactions, *ix)
	}
	if len(def.Interactions) == 0 {
		return nil, &CompileError{
			Field:   "interaction",
			Message: "at least one interaction is required",
			Pos:     v.Pos(),
		}
	}

	if err := checkGraph(def); err != nil {
		return nil, err
	}
	return def, nil
}

func compileInteraction(name string, v cue.Value) (*InteractionDef, error) {
	def := &InteractionDef{Name: name}

	if parentVal := v.LookupPath(cue.ParsePath("parent")); parentVal.Exists() {
		parent, err := parentVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Parent = parent
	}

	trigVal := v.LookupPath(cue.ParsePath("triggers"))
	if trigVal.Exists() {
		trigIter, err := trigVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for trigIter.Next() {
			trig, err := trigIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if !flow.ValidTrigger(trig) {
				return nil, &CompileError{
					Field:   fmt.Sprintf("interaction.%s.triggers", name),
					Message: fmt.Sprintf("trigger %q is not identifier-shaped", trig),
					Pos:     trigIter.Value().Pos(),
				}
			}
			def.Triggers = append(def.Triggers, trig)
		}
	}

	respVal := v.LookupPath(cue.ParsePath("respond"))
	if !respVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("interaction.%s.respond", name),
			Message: "respond list is required",
			Pos:     v.Pos(),
		}
	}
	respIter, err := respVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; respIter.Next(); i++ {
		block, err := compileBlock(name, i, respIter.Value())
		if err != nil {
			return nil, err
		}
		def.Blocks = append(def.Blocks, *block)
	}
	if len(def.Blocks) == 0 {
		return nil, &CompileError{
			Field:   fmt.Sprintf("interaction.%s.respond", name),
			Message: "at least one response block is required",
			Pos:     v.Pos(),
		}
	}
	return def, nil
}

// compileBlock maps one respond entry to a BlockDef. The entry's kind is
// inferred from which fields are present: {text}, {goto}, {quick_reply},
// {set}, {fallback}.
func compileBlock(ixName string, idx int, v cue.Value) (*BlockDef, error) {
	field := fmt.Sprintf("interaction.%s.respond[%d]", ixName, idx)
	block := &BlockDef{}

	if labelVal := v.LookupPath(cue.ParsePath("label")); labelVal.Exists() {
		label, err := labelVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		block.Label = label
	}

	switch {
	case v.LookupPath(cue.ParsePath("quick_reply")).Exists():
		qr := v.LookupPath(cue.ParsePath("quick_reply"))
		prompt, err := requireString(qr, "prompt")
		if err != nil {
			return nil, err
		}
		block.Kind = flow.KindQuickReply
		block.Prompt = prompt

		optsVal := qr.LookupPath(cue.ParsePath("options"))
		if !optsVal.Exists() {
			return nil, &CompileError{
				Field:   field,
				Message: "quick_reply requires options",
				Pos:     qr.Pos(),
			}
		}
		optIter, err := optsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for optIter.Next() {
			opt, err := optIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			block.Options = append(block.Options, opt)
		}

	case v.LookupPath(cue.ParsePath("set")).Exists():
		set := v.LookupPath(cue.ParsePath("set"))
		attr, err := requireString(set, "attribute")
		if err != nil {
			return nil, err
		}
		val, err := requireString(set, "value")
		if err != nil {
			return nil, err
		}
		block.Kind = flow.KindSetAttribute
		block.Attribute = attr
		block.Value = val

	case v.LookupPath(cue.ParsePath("fallback")).Exists():
		fb := v.LookupPath(cue.ParsePath("fallback"))
		block.Kind = flow.KindFallback
		if textVal := fb.LookupPath(cue.ParsePath("text")); textVal.Exists() {
			text, err := textVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			block.Text = text
		}
		if gotoVal := fb.LookupPath(cue.ParsePath("goto")); gotoVal.Exists() {
			target, err := gotoVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			block.Goto = target
		}
		if block.Text == "" && block.Goto == "" {
			return nil, &CompileError{
				Field:   field,
				Message: "fallback requires text or goto",
				Pos:     fb.Pos(),
			}
		}

	case v.LookupPath(cue.ParsePath("goto")).Exists():
		target, err := v.LookupPath(cue.ParsePath("goto")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		block.Kind = flow.KindGoto
		block.Goto = target

	case v.LookupPath(cue.ParsePath("text")).Exists():
		text, err := v.LookupPath(cue.ParsePath("text")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		block.Kind = flow.KindText
		block.Text = text

	default:
		return nil, &CompileError{
			Field:   field,
			Message: "block must set one of: text, goto, quick_reply, set, fallback",
			Pos:     v.Pos(),
		}
	}
	return block, nil
}

// checkGraph enforces the cross-interaction invariants that the store
// would otherwise reject one write at a time: unique triggers across the
// definition, goto and parent names that resolve, no duplicate names.
func checkGraph(def *BotDefinition) error {
	names := make(map[string]struct{}, len(def.Interactions))
	for _, ix := range def.Interactions {
		if _, dup := names[ix.Name]; dup {
			return &CompileError{
				Field:   "interaction",
				Message: fmt.Sprintf("duplicate interaction name %q", ix.Name),
			}
		}
		names[ix.Name] = struct{}{}
	}

	triggers := make(map[string]string)
	for _, ix := range def.Interactions {
		for _, trig := range ix.Triggers {
			if owner, taken := triggers[trig]; taken {
				return &CompileError{
					Field:   fmt.Sprintf("interaction.%s.triggers", ix.Name),
					Message: fmt.Sprintf("trigger %q already claimed by %q", trig, owner),
				}
			}
			triggers[trig] = ix.Name
		}
	}

	parents := make(map[string]string, len(def.Interactions))
	for _, ix := range def.Interactions {
		if ix.Parent != "" {
			if _, ok := names[ix.Parent]; !ok {
				return &CompileError{
					Field:   fmt.Sprintf("interaction.%s.parent", ix.Name),
					Message: fmt.Sprintf("unknown parent %q", ix.Parent),
				}
			}
			if ix.Parent == ix.Name {
				return &CompileError{
					Field:   fmt.Sprintf("interaction.%s.parent", ix.Name),
					Message: "interaction cannot be its own parent",
				}
			}
			parents[ix.Name] = ix.Parent
		}
		for i, b := range ix.Blocks {
			if b.Goto == "" {
				continue
			}
			if _, ok := names[b.Goto]; !ok {
				return &CompileError{
					Field:   fmt.Sprintf("interaction.%s.respond[%d]", ix.Name, i),
					Message: fmt.Sprintf("goto references unknown interaction %q", b.Goto),
				}
			}
		}
	}

	// Parent chains must be acyclic or breadcrumb walks never reach a
	// root.
	for name := range parents {
		seen := map[string]bool{name: true}
		for cur := parents[name]; cur != ""; cur = parents[cur] {
			if seen[cur] {
				return &CompileError{
					Field:   fmt.Sprintf("interaction.%s.parent", name),
					Message: fmt.Sprintf("parent cycle through %q", cur),
				}
			}
			seen[cur] = true
		}
	}
	return nil
}

func requireString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("%s is required", path),
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError is a definition error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError surfaces the first positioned error from a CUE error
// list.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
