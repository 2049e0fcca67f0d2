package livediff

import (
	"sort"
	"text/template/parse"
)

// Dependency is the compile-time classification of one dynamic slot. Either
// the slot is Tainted (its value cannot be tracked against specific named
// inputs and must be recomputed on every render), or it Reads a fixed set of
// named inputs. Reads may be empty: the slot depends on no external input at
// all (a constant or purely local expression).
type Dependency struct {
	Tainted bool
	Reads   []string
}

// analysis accumulates the taint flag and read-set while walking one slot's
// expression tree. Taint is sticky: once set it is never downgraded.
type analysis struct {
	tainted bool
	reads   map[string]bool
}

// exprScope tracks names bound inside the slot's own expression (range and
// with declarations) together with whether dot has been rebound away from the
// root bindings. References to bound names are tracked locals, not taint.
type exprScope struct {
	parent     *exprScope
	vars       map[string]bool
	dotRebound bool
}

func (s *exprScope) bound(name string) bool {
	for c := s; c != nil; c = c.parent {
		if c.vars[name] {
			return true
		}
	}
	return false
}

// dotIsInputs reports whether dot still refers to the root bindings at this
// scope, i.e. no enclosing range/with has rebound it.
func (s *exprScope) dotIsInputs() bool {
	for c := s; c != nil; c = c.parent {
		if c.dotRebound {
			return false
		}
	}
	return true
}

func (s *exprScope) child(dotRebound bool, names ...string) *exprScope {
	vars := make(map[string]bool, len(names))
	for _, n := range names {
		vars[n] = true
	}
	return &exprScope{parent: s, vars: vars, dotRebound: dotRebound}
}

// analyzeExpr classifies one slot expression without executing it. It returns
// the Dependency used by the render-time skip decision, plus the full list of
// named inputs the expression can touch (collected even when tainted, so the
// renderer can fail fast on absent inputs before evaluating anything).
func analyzeExpr(expr parse.Node) (Dependency, []string, error) {
	a := &analysis{reads: make(map[string]bool)}
	root := &exprScope{vars: make(map[string]bool)}
	if err := walkExpr(expr, root, a); err != nil {
		return Dependency{}, nil, err
	}

	names := make([]string, 0, len(a.reads))
	for n := range a.reads {
		names = append(names, n)
	}
	sort.Strings(names)

	if a.tainted {
		return Dependency{Tainted: true}, names, nil
	}
	return Dependency{Reads: names}, names, nil
}

// walkExpr is the recursive classification walk. Rules, per node kind:
//
//   - a field access rooted at dot reads a named input (the first ident);
//     deeper idents are member access on that input's value
//   - a variable that was not bound inside this expression taints the slot:
//     it may have been computed from anything
//   - bare $ and bare dot at the un-rebound level read the whole bindings
//     wholesale, which is untrackable, so they taint
//   - template invocations splice in another lexical scope and taint
//     unconditionally
//   - range and with introduce their declared variables (and rebind dot) only
//     within their own body; the constructs themselves never taint
//   - if is dispatch on its pipe: taint carries over from the pipe only,
//     while each branch contributes its read-set but not its taint
//   - everything else recurses, folding taint (sticky) and unioning reads
func walkExpr(node parse.Node, sc *exprScope, a *analysis) error {
	switch n := node.(type) {
	case nil:
		return nil

	case *parse.ListNode:
		if n == nil {
			return nil
		}
		for _, child := range n.Nodes {
			if err := walkExpr(child, sc, a); err != nil {
				return err
			}
		}
		return nil

	case *parse.TextNode, *parse.CommentNode:
		return nil

	case *parse.ActionNode:
		return walkExpr(n.Pipe, sc, a)

	case *parse.PipeNode:
		if n == nil {
			return nil
		}
		for _, cmd := range n.Cmds {
			if err := walkExpr(cmd, sc, a); err != nil {
				return err
			}
		}
		// Declarations bind for code that follows the pipe; record them so
		// sibling references inside the same expression resolve as locals.
		for _, decl := range n.Decl {
			if len(decl.Ident) > 0 {
				sc.vars[decl.Ident[0]] = true
			}
		}
		return nil

	case *parse.CommandNode:
		for _, arg := range n.Args {
			if err := walkExpr(arg, sc, a); err != nil {
				return err
			}
		}
		return nil

	case *parse.FieldNode:
		if sc.dotIsInputs() && len(n.Ident) > 0 {
			a.reads[n.Ident[0]] = true
		}
		return nil

	case *parse.ChainNode:
		return walkExpr(n.Node, sc, a)

	case *parse.VariableNode:
		if len(n.Ident) == 0 {
			return nil
		}
		name := n.Ident[0]
		if name == "$" {
			// $.name reaches a specific named input from any nesting depth;
			// bare $ grabs the whole bindings and cannot be tracked.
			if len(n.Ident) > 1 {
				a.reads[n.Ident[1]] = true
			} else {
				a.tainted = true
			}
			return nil
		}
		if !sc.bound(name) {
			a.tainted = true
		}
		return nil

	case *parse.DotNode:
		if sc.dotIsInputs() {
			a.tainted = true
		}
		return nil

	case *parse.IdentifierNode, *parse.StringNode, *parse.NumberNode,
		*parse.BoolNode, *parse.NilNode:
		return nil

	case *parse.IfNode:
		return walkIf(n, sc, a)

	case *parse.RangeNode:
		return walkIteration(n.Pipe, n.List, n.ElseList, sc, a)

	case *parse.WithNode:
		return walkIteration(n.Pipe, n.List, n.ElseList, sc, a)

	case *parse.TemplateNode:
		a.tainted = true
		// Still walk the argument pipe so its input reads are collected for
		// the renderer's fail-fast check.
		return walkExpr(n.Pipe, sc, a)

	case *parse.BreakNode, *parse.ContinueNode:
		return nil

	default:
		return compileErrorf("unsupported expression node %T", node)
	}
}

// walkIf handles the two-branch dispatch rule: the pipe is walked normally,
// each branch is walked with taint isolated and only its reads folded back.
func walkIf(n *parse.IfNode, sc *exprScope, a *analysis) error {
	if err := walkExpr(n.Pipe, sc, a); err != nil {
		return err
	}
	for _, branch := range []*parse.ListNode{n.List, n.ElseList} {
		if branch == nil {
			continue
		}
		ba := &analysis{reads: make(map[string]bool)}
		if err := walkExpr(branch, sc, ba); err != nil {
			return err
		}
		for name := range ba.reads {
			a.reads[name] = true
		}
	}
	return nil
}

// walkIteration handles range and with: the collection/context pipe is walked
// in the current scope, the body in a child scope where the declared variables
// are bound and dot refers to the bound value. The else branch keeps the
// outer dot.
func walkIteration(pipe *parse.PipeNode, list, elseList *parse.ListNode, sc *exprScope, a *analysis) error {
	for _, cmd := range pipe.Cmds {
		if err := walkExpr(cmd, sc, a); err != nil {
			return err
		}
	}

	var names []string
	for _, decl := range pipe.Decl {
		if len(decl.Ident) > 0 {
			names = append(names, decl.Ident[0])
		}
	}
	body := sc.child(true, names...)
	if err := walkExpr(list, body, a); err != nil {
		return err
	}
	return walkExpr(elseList, sc, a)
}
