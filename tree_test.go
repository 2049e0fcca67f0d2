package livediff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlattenRejectsAbsent(t *testing.T) {
	tree := &RenderTree{
		Statics:  []string{"a", "b"},
		Dynamics: []RenderedValue{Absent},
	}
	if _, err := tree.Flatten(); err == nil {
		t.Fatal("Flatten of a diff tree succeeded")
	}
}

func TestFlattenInterleaves(t *testing.T) {
	tree := &RenderTree{
		Statics:  []string{"a", "b", "c"},
		Dynamics: []RenderedValue{TextValue("1"), TextValue("2")},
	}
	flat, err := tree.Flatten()
	if err != nil {
		t.Fatalf("Flatten error: %v", err)
	}
	if want := "a1b2c"; flat != want {
		t.Errorf("Flatten = %q, want %q", flat, want)
	}
}

func TestOverlayOnto(t *testing.T) {
	c := mustCompile(t, "{{.a}} and {{.b}}")
	bindings := map[string]interface{}{"a": "x", "b": "y"}

	full := mustRender(t, c, bindings, HintUnknown())

	bindings["b"] = "z"
	diff := mustRender(t, c, bindings, HintUnchanged("a"))

	resolved, err := diff.OverlayOnto(full)
	if err != nil {
		t.Fatalf("OverlayOnto error: %v", err)
	}
	if got := dynamicsAsStrings(t, resolved); !cmp.Equal([]string{"x", "z"}, got) {
		t.Errorf("resolved dynamics = %v, want [x z]", got)
	}

	flat, err := resolved.Flatten()
	if err != nil {
		t.Fatalf("Flatten error: %v", err)
	}
	if want := "x and z"; flat != want {
		t.Errorf("Flatten = %q, want %q", flat, want)
	}
}

func TestOverlayShapeMismatch(t *testing.T) {
	a := mustRender(t, mustCompile(t, "x{{.v}}"), map[string]interface{}{"v": 1}, HintUnknown())
	b := mustRender(t, mustCompile(t, "y{{.v}}"), map[string]interface{}{"v": 1}, HintUnknown())

	if _, err := b.OverlayOnto(a); err == nil {
		t.Fatal("OverlayOnto across different shapes succeeded")
	}
	if _, err := b.OverlayOnto(nil); err == nil {
		t.Fatal("OverlayOnto(nil) succeeded")
	}
}

func TestMarshalWireFormat(t *testing.T) {
	c := mustCompile(t, "a{{.x}}b{{.y}}c")
	bindings := map[string]interface{}{"x": 1, "y": 2}

	full := mustRender(t, c, bindings, HintUnknown())
	raw, err := json.Marshal(full)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	want := map[string]interface{}{
		"s": []interface{}{"a", "b", "c"},
		"f": c.Fingerprint(),
		"0": "1",
		"1": "2",
	}
	if diff := cmp.Diff(want, wire); diff != "" {
		t.Errorf("wire format (-want +got):\n%s", diff)
	}

	// Absent entries disappear from the wire entirely.
	partial := mustRender(t, c, bindings, HintUnchanged("x"))
	raw, err = json.Marshal(partial)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(raw), `"0"`) {
		t.Errorf("wire form carries an absent slot: %s", raw)
	}
	if !strings.Contains(string(raw), `"1"`) {
		t.Errorf("wire form lost the evaluated slot: %s", raw)
	}
}

func TestWireRoundTrip(t *testing.T) {
	inner := mustRender(t, mustCompile(t, "[{{.n}}]"), map[string]interface{}{"n": 7}, HintUnknown())
	c := mustCompile(t, "a{{.x}}b{{.y}}c{{.widget}}d")
	bindings := map[string]interface{}{"x": 1, "y": 2, "widget": inner}

	tests := []struct {
		name string
		hint ChangeHint
	}{
		{"full render", HintUnknown()},
		{"diff with absent slot", HintUnchanged("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := mustRender(t, c, bindings, tt.hint)
			raw, err := json.Marshal(sent)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			var got RenderTree
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if diff := cmp.Diff(sent, &got); diff != "" {
				t.Errorf("round trip (-sent +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalRejectsMalformedWire(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no statics", `{"0":"x","f":"abc"}`},
		{"empty statics", `{"s":[]}`},
		{"non-string slot", `{"s":["a","b"],"0":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tree RenderTree
			if err := json.Unmarshal([]byte(tt.raw), &tree); err == nil {
				t.Fatalf("Unmarshal(%s) succeeded", tt.raw)
			}
		})
	}
}

func TestMarshalNestedTree(t *testing.T) {
	inner := mustRender(t, mustCompile(t, "[{{.n}}]"), map[string]interface{}{"n": 7}, HintUnknown())
	outer := mustRender(t, mustCompile(t, "<div>{{.widget}}</div>"),
		map[string]interface{}{"widget": inner}, HintUnknown())

	raw, err := json.Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var wire struct {
		Nested map[string]interface{} `json:"0"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if diff := cmp.Diff([]interface{}{"[", "]"}, wire.Nested["s"]); diff != "" {
		t.Errorf("nested statics (-want +got):\n%s", diff)
	}
}
