package livediff

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RenderedValue is one rendered dynamic entry: escaped text, an Absent marker
// (the previous value is still valid and no new value is carried), or a
// nested render tree.
type RenderedValue interface {
	renderedValue()
}

// TextValue is an escaped text dynamic entry.
type TextValue string

func (TextValue) renderedValue() {}

// AbsentValue marks a slot whose inputs were all confirmed unchanged; the
// consumer substitutes the value from the previous tree positionally.
type AbsentValue struct{}

func (AbsentValue) renderedValue() {}

// Absent is the shared unchanged marker.
var Absent AbsentValue

// RenderTree is the result of one render invocation: the static skeleton,
// one rendered value per output slot, and the template's shape fingerprint.
// A tree is built fresh on every render and never mutated afterwards.
type RenderTree struct {
	Statics     []string
	Dynamics    []RenderedValue
	Fingerprint string
}

func (*RenderTree) renderedValue() {}

// Flatten interleaves statics and dynamics into the full output text. It is
// only valid for a tree rendered with an Unknown hint: an Absent entry means
// the caller is holding a diff, not a full render, and flattening it would
// silently drop content, so it is rejected.
func (t *RenderTree) Flatten() (string, error) {
	var b strings.Builder
	if err := flattenParts(&b, t.Statics, t.Dynamics); err != nil {
		return "", err
	}
	return b.String(), nil
}

func flattenParts(b *strings.Builder, statics []string, dynamics []RenderedValue) error {
	if len(statics) != len(dynamics)+1 {
		return fmt.Errorf("flatten: %d statics for %d dynamics", len(statics), len(dynamics))
	}
	for i, s := range statics {
		b.WriteString(s)
		if i >= len(dynamics) {
			break
		}
		switch v := dynamics[i].(type) {
		case TextValue:
			b.WriteString(string(v))
		case *RenderTree:
			if err := flattenParts(b, v.Statics, v.Dynamics); err != nil {
				return err
			}
		case AbsentValue:
			return fmt.Errorf("flatten: absent value at slot %d; tree is a diff, not a full render", i)
		default:
			return fmt.Errorf("flatten: unknown dynamic value %T at slot %d", dynamics[i], i)
		}
	}
	return nil
}

// OverlayOnto resolves a diff tree against the previous full tree, replacing
// every Absent entry with the value at the same position in prev. The two
// trees must share a fingerprint; a shape change means the diff is invalid
// and the caller needs a full re-render instead.
func (t *RenderTree) OverlayOnto(prev *RenderTree) (*RenderTree, error) {
	if prev == nil {
		return nil, fmt.Errorf("overlay: no previous tree")
	}
	if t.Fingerprint != prev.Fingerprint {
		return nil, fmt.Errorf("overlay: shape changed (%s -> %s), full render required",
			prev.Fingerprint, t.Fingerprint)
	}
	if len(t.Dynamics) != len(prev.Dynamics) {
		return nil, fmt.Errorf("overlay: %d dynamics vs %d in previous tree",
			len(t.Dynamics), len(prev.Dynamics))
	}

	out := &RenderTree{
		Statics:     t.Statics,
		Dynamics:    make([]RenderedValue, len(t.Dynamics)),
		Fingerprint: t.Fingerprint,
	}
	for i, d := range t.Dynamics {
		if _, absent := d.(AbsentValue); absent {
			out.Dynamics[i] = prev.Dynamics[i]
		} else {
			out.Dynamics[i] = d
		}
	}
	return out, nil
}

// MarshalJSON emits the compact wire form: statics under "s", the fingerprint
// under "f", and dynamics under their dense slot index. Absent entries are
// omitted entirely; the receiving side keeps its previous value for any index
// it does not see.
func (t *RenderTree) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(t.Dynamics)+2)
	m["s"] = t.Statics
	if t.Fingerprint != "" {
		m["f"] = t.Fingerprint
	}
	for i, d := range t.Dynamics {
		switch v := d.(type) {
		case AbsentValue:
			// omitted
		case TextValue:
			m[strconv.Itoa(i)] = string(v)
		case *RenderTree:
			m[strconv.Itoa(i)] = v
		default:
			return nil, fmt.Errorf("marshal: unknown dynamic value %T at slot %d", d, i)
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON. Dynamics are
// sized from the statics; any slot index missing from the payload decodes as
// Absent, matching the omission on the sending side. Nested trees are
// recognized by their object form.
func (t *RenderTree) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s, ok := raw["s"]
	if !ok {
		return fmt.Errorf(`unmarshal: no "s" statics entry`)
	}
	var statics []string
	if err := json.Unmarshal(s, &statics); err != nil {
		return fmt.Errorf("unmarshal: statics: %w", err)
	}
	if len(statics) == 0 {
		return fmt.Errorf("unmarshal: empty statics")
	}

	var fingerprint string
	if f, ok := raw["f"]; ok {
		if err := json.Unmarshal(f, &fingerprint); err != nil {
			return fmt.Errorf("unmarshal: fingerprint: %w", err)
		}
	}

	dynamics := make([]RenderedValue, len(statics)-1)
	for i := range dynamics {
		entry, ok := raw[strconv.Itoa(i)]
		if !ok {
			dynamics[i] = Absent
			continue
		}
		if len(entry) > 0 && entry[0] == '{' {
			nested := new(RenderTree)
			if err := json.Unmarshal(entry, nested); err != nil {
				return fmt.Errorf("unmarshal: slot %d: %w", i, err)
			}
			dynamics[i] = nested
			continue
		}
		var text string
		if err := json.Unmarshal(entry, &text); err != nil {
			return fmt.Errorf("unmarshal: slot %d: %w", i, err)
		}
		dynamics[i] = TextValue(text)
	}

	t.Statics = statics
	t.Dynamics = dynamics
	t.Fingerprint = fingerprint
	return nil
}
