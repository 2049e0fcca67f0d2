package livediff

import (
	"errors"
	"strings"
	"testing"
	"text/template"
	"text/template/parse"

	"github.com/google/go-cmp/cmp"
)

// mustCompile parses and compiles template source, failing the test on error.
func mustCompile(t *testing.T, src string, opts ...CompileOption) *CompiledTemplate {
	t.Helper()
	c, err := CompileString(src, opts...)
	if err != nil {
		t.Fatalf("CompileString(%q) error: %v", src, err)
	}
	return c
}

// mustExpr parses a single-action template and returns its expression node,
// for building event streams by hand.
func mustExpr(t *testing.T, action string) parse.Node {
	t.Helper()
	tmpl, err := template.New("expr").Parse(action)
	if err != nil {
		t.Fatalf("parse %q: %v", action, err)
	}
	if len(tmpl.Tree.Root.Nodes) != 1 {
		t.Fatalf("parse %q: expected one node, got %d", action, len(tmpl.Tree.Root.Nodes))
	}
	return tmpl.Tree.Root.Nodes[0]
}

func TestCompileStaticSlotInterleave(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		wantStatics []string
	}{
		{
			name:        "text around one slot",
			template:    "foo{{123}}bar",
			wantStatics: []string{"foo", "bar"},
		},
		{
			name:        "slot only",
			template:    "{{123}}",
			wantStatics: []string{"", ""},
		},
		{
			name:        "leading slot",
			template:    "{{.name}} says hi",
			wantStatics: []string{"", " says hi"},
		},
		{
			name:        "trailing slot",
			template:    "hi {{.name}}",
			wantStatics: []string{"hi ", ""},
		},
		{
			name:        "two slots",
			template:    "foo{{123}}bar{{456}}baz",
			wantStatics: []string{"foo", "bar", "baz"},
		},
		{
			name:        "adjacent slots",
			template:    "{{.a}}{{.b}}",
			wantStatics: []string{"", "", ""},
		},
		{
			name:        "static only",
			template:    "<p>nothing dynamic</p>",
			wantStatics: []string{"<p>nothing dynamic</p>"},
		},
		{
			name:        "empty template",
			template:    "",
			wantStatics: []string{""},
		},
		{
			name:        "side effect does not count",
			template:    "a{{$x := .v}}b{{$x}}c",
			wantStatics: []string{"ab", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCompile(t, tt.template)
			if diff := cmp.Diff(tt.wantStatics, c.Statics()); diff != "" {
				t.Errorf("statics mismatch (-want +got):\n%s", diff)
			}
			if got, want := len(c.Statics()), c.NumSlots()+1; got != want {
				t.Errorf("len(statics) = %d, want NumSlots()+1 = %d", got, want)
			}
			if !c.IsRoot() {
				t.Error("IsRoot() = false for a root compilation")
			}
			if c.Fingerprint() == "" {
				t.Error("root template has empty fingerprint")
			}
		})
	}
}

func TestCompileBlockCollapsesIntoOneSlot(t *testing.T) {
	events := []ParseEvent{
		TextEvent("<ul>"),
		BlockBeginEvent(),
		TextEvent("<li>"),
		OutputEvent(mustExpr(t, "{{.item}}")),
		TextEvent("</li>"),
		BlockEndEvent(),
		TextEvent("</ul>"),
	}
	c, err := Compile(events)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	if diff := cmp.Diff([]string{"<ul>", "</ul>"}, c.Statics()); diff != "" {
		t.Errorf("statics mismatch (-want +got):\n%s", diff)
	}
	if c.NumSlots() != 1 {
		t.Fatalf("NumSlots() = %d, want 1", c.NumSlots())
	}

	dep, ok := c.SlotDependency(0)
	if !ok {
		t.Fatal("SlotDependency(0) not found")
	}
	if dep.Tainted {
		t.Error("block slot tainted, want Reads")
	}
	if diff := cmp.Diff([]string{"item"}, dep.Reads); diff != "" {
		t.Errorf("block slot reads (-want +got):\n%s", diff)
	}
}

func TestCompileUnbalancedBlocks(t *testing.T) {
	tests := []struct {
		name   string
		events []ParseEvent
	}{
		{
			name:   "end without begin",
			events: []ParseEvent{TextEvent("x"), BlockEndEvent()},
		},
		{
			name:   "unterminated begin",
			events: []ParseEvent{BlockBeginEvent(), TextEvent("x")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.events)
			var cerr *CompileError
			if !errors.As(err, &cerr) {
				t.Fatalf("Compile error = %v, want *CompileError", err)
			}
		})
	}
}

func TestCompileEventWithoutExpression(t *testing.T) {
	_, err := Compile([]ParseEvent{{Kind: EventOutput}})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Compile error = %v, want *CompileError", err)
	}
}

func TestCompileMinifiedStatics(t *testing.T) {
	src := "<div>\n    <p>  hello  </p>\n</div>{{.name}}"
	c := mustCompile(t, src, WithMinifiedStatics())
	plain := mustCompile(t, src)

	got := c.Statics()[0]
	if got == plain.Statics()[0] {
		t.Errorf("minified static unchanged: %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("minified static still contains newlines: %q", got)
	}
	if c.Fingerprint() == plain.Fingerprint() {
		t.Error("minified and plain statics share a fingerprint")
	}
}

func TestParseEventsKinds(t *testing.T) {
	events, err := ParseEvents("a{{$x := .v}}{{.b}}{{if .c}}y{{end}}z")
	if err != nil {
		t.Fatalf("ParseEvents error: %v", err)
	}
	var kinds []EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventText, EventSideEffect, EventOutput, EventOutput, EventText}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("event kinds (-want +got):\n%s", diff)
	}
}
