package livediff

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"text/template/parse"
)

// scopeState distinguishes a root-level compilation unit, which produces an
// independently tracked render tree, from a nested block that is collapsed
// into a single slot of its enclosing level.
type scopeState int

const (
	scopeRoot scopeState = iota
	scopeNested
)

// CompiledTemplate is the immutable result of compiling one event stream:
// the static skeleton, the ordered dynamic slots, and the shape fingerprint.
// A compiled template is safe to share across concurrent renders.
type CompiledTemplate struct {
	statics     []string
	slots       []*slot
	fingerprint string
	state       scopeState
	escape      EscapeFunc
}

// Statics returns a copy of the static skeleton. Its length is always one
// greater than the number of output slots, including for zero-slot templates.
func (c *CompiledTemplate) Statics() []string {
	out := make([]string, len(c.statics))
	copy(out, c.statics)
	return out
}

// Fingerprint returns the shape fingerprint of the template. Nested blocks
// have no independent fingerprint and return "".
func (c *CompiledTemplate) Fingerprint() string { return c.fingerprint }

// IsRoot reports whether this unit was compiled at the root level. Only root
// units carry a fingerprint and participate in slot-level change tracking;
// a nested unit is collapsed into a slot of its enclosing level.
func (c *CompiledTemplate) IsRoot() bool { return c.state == scopeRoot }

// NumSlots returns the number of output slots.
func (c *CompiledTemplate) NumSlots() int {
	n := 0
	for _, s := range c.slots {
		if s.output {
			n++
		}
	}
	return n
}

// SlotDependency returns the compile-time dependency classification of the
// output slot at the given dense index.
func (c *CompiledTemplate) SlotDependency(index int) (Dependency, bool) {
	for _, s := range c.slots {
		if s.output && s.index == index {
			reads := make([]string, len(s.dep.Reads))
			copy(reads, s.dep.Reads)
			return Dependency{Tainted: s.dep.Tainted, Reads: reads}, true
		}
	}
	return Dependency{}, false
}

// slot is one compiled entry of a template level. Output slots carry a dense
// index and either an evaluation program or a collapsed nested block;
// side-effect entries carry index -1 and are replayed as the prelude of every
// later program at the same level.
type slot struct {
	index      int
	output     bool
	dep        Dependency
	inputs     []string           // all named inputs evaluation can touch
	src        string             // program source, for diagnostics
	prog       *template.Template // nil for block slots
	block      *CompiledTemplate  // non-nil for collapsed nested blocks
	directName string             // set when the expression is a bare input read
}

// compileConfig carries the compile-time options.
type compileConfig struct {
	minifyStatics bool
	escape        EscapeFunc
}

// CompileOption adjusts compilation behavior.
type CompileOption func(*compileConfig)

// WithMinifiedStatics minifies the static skeleton at compile time, so every
// render and every transmitted tree carries the smaller form. The fingerprint
// is computed over the minified statics.
func WithMinifiedStatics() CompileOption {
	return func(cfg *compileConfig) { cfg.minifyStatics = true }
}

// WithEscaper replaces the default ToSafeText collaborator used for binding
// values that bypass program evaluation (pre-escaped values and collapsed
// nested blocks).
func WithEscaper(fn EscapeFunc) CompileOption {
	return func(cfg *compileConfig) { cfg.escape = fn }
}

// levelBuilder accumulates one nesting level while consuming events.
type levelBuilder struct {
	state   scopeState
	pending strings.Builder
	statics []string
	slots   []*slot
	prelude []string // side-effect sources seen so far at this level
	outputs int
}

// Compile consumes an ordered parse-event stream and produces a compiled
// template. Text events extend the pending static run; each output expression
// closes the run and claims the next dense slot index; side-effect
// expressions are recorded in order without touching the static/dynamic
// pairing. Block begin/end events compile a nested level and collapse it into
// a single output slot of the enclosing level.
func Compile(events []ParseEvent, opts ...CompileOption) (*CompiledTemplate, error) {
	cfg := compileConfig{escape: ToSafeText}
	for _, opt := range opts {
		opt(&cfg)
	}

	stack := []*levelBuilder{{state: scopeRoot}}

	for _, ev := range events {
		lb := stack[len(stack)-1]
		switch ev.Kind {
		case EventText:
			lb.pending.WriteString(ev.Text)

		case EventSideEffect:
			if ev.Expr == nil {
				return nil, compileErrorf("side-effect event without expression")
			}
			s, err := buildSideEffectSlot(ev.Expr)
			if err != nil {
				return nil, err
			}
			lb.slots = append(lb.slots, s)
			lb.prelude = append(lb.prelude, s.src)

		case EventOutput:
			if ev.Expr == nil {
				return nil, compileErrorf("output event without expression")
			}
			s, err := buildOutputSlot(ev.Expr, lb)
			if err != nil {
				return nil, err
			}
			lb.addOutput(s)

		case EventBlockBegin:
			stack = append(stack, &levelBuilder{state: scopeNested})

		case EventBlockEnd:
			if len(stack) == 1 {
				return nil, compileErrorf("block end without matching begin")
			}
			nested := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			enclosing := stack[len(stack)-1]
			enclosing.addOutput(collapseBlock(nested.finish(cfg)))

		default:
			return nil, compileErrorf("unknown event kind %d", ev.Kind)
		}
	}

	if len(stack) != 1 {
		return nil, compileErrorf("unterminated block: %d level(s) left open", len(stack)-1)
	}

	c := stack[0].finish(cfg)
	c.fingerprint = fingerprintStatics(c.statics)
	return c, nil
}

// addOutput closes the pending static run and appends an output slot with the
// next dense index.
func (lb *levelBuilder) addOutput(s *slot) {
	lb.statics = append(lb.statics, lb.pending.String())
	lb.pending.Reset()
	s.index = lb.outputs
	lb.outputs++
	lb.slots = append(lb.slots, s)
}

// finish closes the final static run and freezes the level. The interleave
// invariant holds by construction: exactly one static run per output slot,
// plus the trailing run.
func (lb *levelBuilder) finish(cfg compileConfig) *CompiledTemplate {
	statics := append(lb.statics, lb.pending.String())
	if cfg.minifyStatics {
		for i, s := range statics {
			statics[i] = minifyStatic(s)
		}
	}
	return &CompiledTemplate{
		statics: statics,
		slots:   lb.slots,
		state:   lb.state,
		escape:  cfg.escape,
	}
}

// buildSideEffectSlot compiles a non-counted side-effect entry. Its
// dependency is recorded only so that enclosing blocks and later programs can
// account for the inputs it reads.
func buildSideEffectSlot(expr parse.Node) (*slot, error) {
	dep, inputs, err := analyzeExpr(expr)
	if err != nil {
		return nil, err
	}
	return &slot{
		index:  -1,
		dep:    dep,
		inputs: inputs,
		src:    expr.String(),
	}, nil
}

// buildOutputSlot analyzes an output expression and compiles its evaluation
// program. The program source is the concatenation of every side-effect
// declaration seen so far at this level plus the expression itself: template
// variables only live for a single execution, so the declarations are
// replayed as a prelude whenever a later slot actually evaluates.
func buildOutputSlot(expr parse.Node, lb *levelBuilder) (*slot, error) {
	dep, inputs, err := analyzeExpr(expr)
	if err != nil {
		return nil, err
	}

	src := strings.Join(lb.prelude, "") + expr.String()
	prog, err := template.New(fmt.Sprintf("slot%d", lb.outputs)).
		Option("missingkey=error").
		Parse(src)
	if err != nil {
		return nil, &CompileError{Reason: fmt.Sprintf("slot %d program %q", lb.outputs, src), Err: err}
	}

	// The prelude executes together with the slot, so its inputs are required
	// whenever this slot is. The dependency itself stays the slot's own.
	inputs = unionInputs(inputs, lb.preludeInputs())

	return &slot{
		output:     true,
		dep:        dep,
		inputs:     inputs,
		src:        src,
		prog:       prog,
		directName: bareInputName(expr),
	}, nil
}

func (lb *levelBuilder) preludeInputs() []string {
	var names []string
	for _, s := range lb.slots {
		if s.index == -1 {
			names = unionInputs(names, s.inputs)
		}
	}
	return names
}

// collapseBlock turns a compiled nested level into one output slot of the
// enclosing level. The block's own slots lose any independent change
// tracking: to the enclosing analyzer the region is just another
// sub-expression, so its taint folds in sticky and its read-sets union.
func collapseBlock(nested *CompiledTemplate) *slot {
	dep := Dependency{Reads: []string{}}
	var inputs []string
	for _, s := range nested.slots {
		if s.dep.Tainted {
			dep.Tainted = true
		}
		dep.Reads = unionInputs(dep.Reads, s.dep.Reads)
		inputs = unionInputs(inputs, s.inputs)
	}
	if dep.Tainted {
		dep.Reads = nil
	}
	return &slot{
		output: true,
		dep:    dep,
		inputs: inputs,
		src:    "(block)",
		block:  nested,
	}
}

// unionInputs merges two sorted name lists, keeping the result sorted and
// duplicate-free.
func unionInputs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}

// bareInputName reports the input name when the expression is a plain
// {{.name}} read with no pipeline around it, and "" otherwise. Bare reads get
// a direct lookup at render time so that pre-escaped values and nested render
// trees carried in the bindings pass through without re-rendering.
func bareInputName(expr parse.Node) string {
	action, ok := expr.(*parse.ActionNode)
	if !ok || action.Pipe == nil {
		return ""
	}
	if len(action.Pipe.Decl) != 0 || len(action.Pipe.Cmds) != 1 {
		return ""
	}
	cmd := action.Pipe.Cmds[0]
	if len(cmd.Args) != 1 {
		return ""
	}
	field, ok := cmd.Args[0].(*parse.FieldNode)
	if !ok || len(field.Ident) != 1 {
		return ""
	}
	return field.Ident[0]
}
