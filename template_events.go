package livediff

import (
	"text/template"
	"text/template/parse"
)

// ParseEvents tokenizes Go template source into the ordered event stream the
// compiler consumes. Literal text becomes text events; actions that only
// declare variables become side-effect events; every other top-level
// construct (field actions, if, range, with, template invocations) becomes an
// output expression carrying its parse node.
//
// This is a convenience front-end; callers with their own template syntax can
// produce the event stream directly.
func ParseEvents(src string) ([]ParseEvent, error) {
	tmpl, err := template.New("source").Parse(src)
	if err != nil {
		return nil, &CompileError{Reason: "template parse", Err: err}
	}
	if tmpl.Tree == nil || tmpl.Tree.Root == nil {
		return nil, compileErrorf("template has no parse tree")
	}

	var events []ParseEvent
	for _, node := range tmpl.Tree.Root.Nodes {
		switch n := node.(type) {
		case *parse.TextNode:
			events = append(events, TextEvent(string(n.Text)))

		case *parse.ActionNode:
			// An action with declarations prints nothing; it exists to bind
			// locals for later expressions at this level.
			if n.Pipe != nil && len(n.Pipe.Decl) > 0 {
				events = append(events, SideEffectEvent(n))
			} else {
				events = append(events, OutputEvent(n))
			}

		case *parse.IfNode, *parse.RangeNode, *parse.WithNode, *parse.TemplateNode:
			events = append(events, OutputEvent(node))

		case *parse.CommentNode:
			// dropped

		default:
			return nil, compileErrorf("unsupported top-level node %T", node)
		}
	}
	return events, nil
}

// CompileString parses template source and compiles it in one step.
func CompileString(src string, opts ...CompileOption) (*CompiledTemplate, error) {
	events, err := ParseEvents(src)
	if err != nil {
		return nil, err
	}
	return Compile(events, opts...)
}
