package livediff

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

// ChangeHint is the caller's per-render knowledge about the inputs. The zero
// value is the Unknown hint: nothing is confirmed unchanged, as on a first
// render. HintUnchanged builds the KnownUnchanged form, listing the inputs
// whose values are confirmed identical to the previous render.
type ChangeHint struct {
	known     bool
	unchanged map[string]bool
}

// HintUnknown returns the no-prior-render hint.
func HintUnknown() ChangeHint { return ChangeHint{} }

// HintUnchanged returns a hint confirming the given inputs unchanged. An
// empty list is still a known state: it confirms nothing unchanged, but
// constant slots rendered once are assumed stable under any known hint.
func HintUnchanged(names ...string) ChangeHint {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return ChangeHint{known: true, unchanged: m}
}

// Unknown reports whether no prior-render information is available.
func (h ChangeHint) Unknown() bool { return !h.known }

// Unchanged reports whether the named input is confirmed unchanged.
func (h ChangeHint) Unchanged(name string) bool { return h.known && h.unchanged[name] }

// Render evaluates a compiled template against the current bindings. Slots
// whose declared inputs are all confirmed unchanged by the hint are skipped
// and emitted as Absent; tainted slots always evaluate; constant slots
// evaluate only under an Unknown hint. Any slot failure aborts the whole
// render.
func Render(c *CompiledTemplate, bindings map[string]interface{}, hint ChangeHint) (*RenderTree, error) {
	if c == nil {
		return nil, fmt.Errorf("render: nil template")
	}
	dynamics, err := renderSlots(c, bindings, hint, true)
	if err != nil {
		return nil, err
	}
	return &RenderTree{
		Statics:     c.Statics(),
		Dynamics:    dynamics,
		Fingerprint: c.fingerprint,
	}, nil
}

// renderSlots produces the dynamics array for one level. Tracked is false for
// collapsed nested blocks, which re-evaluate unconditionally whenever their
// enclosing slot does.
func renderSlots(c *CompiledTemplate, bindings map[string]interface{}, hint ChangeHint, tracked bool) ([]RenderedValue, error) {
	dynamics := make([]RenderedValue, 0, len(c.statics)-1)
	for _, s := range c.slots {
		if !s.output {
			// Side-effect entries replay inside the programs of the slots
			// that follow them, so there is nothing to emit — but they run
			// on every render, so their inputs are required even when every
			// following slot is skipped.
			for _, name := range s.inputs {
				if _, ok := bindings[name]; !ok {
					return nil, missingInput(name, bindings)
				}
			}
			continue
		}
		if tracked && shouldSkip(s.dep, hint) {
			dynamics = append(dynamics, Absent)
			continue
		}
		v, err := evalSlot(c, s, bindings)
		if err != nil {
			return nil, err
		}
		dynamics = append(dynamics, v)
	}
	return dynamics, nil
}

// shouldSkip applies the per-slot recompute policy against the hint.
func shouldSkip(dep Dependency, hint ChangeHint) bool {
	if dep.Tainted || hint.Unknown() {
		return false
	}
	if len(dep.Reads) == 0 {
		// Constant or purely local: once rendered, stable for the session.
		return true
	}
	for _, name := range dep.Reads {
		if !hint.Unchanged(name) {
			return false
		}
	}
	return true
}

// evalSlot computes one slot's value. Every named input the slot can touch
// must be present in the bindings before anything executes.
func evalSlot(c *CompiledTemplate, s *slot, bindings map[string]interface{}) (RenderedValue, error) {
	for _, name := range s.inputs {
		if _, ok := bindings[name]; !ok {
			return nil, missingInput(name, bindings)
		}
	}

	if s.block != nil {
		return evalBlock(c, s, bindings)
	}

	if s.directName != "" {
		switch v := bindings[s.directName].(type) {
		case *RenderTree:
			// The input already is a rendered sub-tree; embed it as-is.
			return v, nil
		case SafeText:
			return TextValue(c.escape(v)), nil
		case template.HTML:
			return TextValue(c.escape(v)), nil
		}
	}

	var buf bytes.Buffer
	if err := s.prog.Execute(&buf, bindings); err != nil {
		return nil, renderError(s, bindings, err)
	}
	return TextValue(buf.String()), nil
}

// evalBlock renders a collapsed nested block: its slots evaluate
// unconditionally, and the whole region folds into one pre-escaped value of
// the enclosing level. The block's statics were escaped at authoring time and
// its slot programs escape their own output, so the flattened text is safe.
func evalBlock(c *CompiledTemplate, s *slot, bindings map[string]interface{}) (RenderedValue, error) {
	dynamics, err := renderSlots(s.block, bindings, HintUnknown(), false)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if err := flattenParts(&b, s.block.statics, dynamics); err != nil {
		return nil, err
	}
	return TextValue(c.escape(SafeText(b.String()))), nil
}

// missingKeyRe matches the execution error text/template produces for a map
// lookup rejected under missingkey=error. Inputs the analyzer could prove are
// checked up front; this catches reads reached only through local variables.
var missingKeyRe = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

// renderError converts a program execution failure into the library's error
// types where possible.
func renderError(s *slot, bindings map[string]interface{}, err error) error {
	if m := missingKeyRe.FindStringSubmatch(err.Error()); m != nil {
		return missingInput(m[1], bindings)
	}
	return fmt.Errorf("slot %d: %w", s.index, err)
}
