package livediff

import (
	"fmt"
	"log"
	"strings"
)

// RenderAnalyzer inspects rendered trees and warns about templates that
// defeat the incremental update optimization: a tainted slot is recomputed
// and resent on every render, so a tainted slot carrying a large chunk of
// markup means the static/dynamic split is doing no work for that region.
type RenderAnalyzer struct {
	// MinChunkSize is the smallest dynamic value considered "large".
	MinChunkSize int
	// Enabled controls whether findings are logged.
	Enabled bool
}

// NewRenderAnalyzer creates an analyzer with default settings.
func NewRenderAnalyzer() *RenderAnalyzer {
	return &RenderAnalyzer{
		MinChunkSize: 100,
		Enabled:      true,
	}
}

// AnalyzeRender checks one render result against its compiled template and
// logs advisory findings. It never alters the tree.
func (a *RenderAnalyzer) AnalyzeRender(c *CompiledTemplate, tree *RenderTree, name string) {
	if !a.Enabled || c == nil || tree == nil {
		return
	}
	findings := a.findings(c, tree)
	if len(findings) == 0 {
		return
	}
	log.Printf("render analyzer: template %q", name)
	for _, f := range findings {
		log.Println("  " + f)
	}
	log.Println("  fix: move fixed markup into literal text, or reference named inputs directly so the slot becomes trackable")
}

// findings collects the individual issue strings for a render.
func (a *RenderAnalyzer) findings(c *CompiledTemplate, tree *RenderTree) []string {
	var out []string
	for i, d := range tree.Dynamics {
		text, ok := d.(TextValue)
		if !ok || len(text) < a.MinChunkSize {
			continue
		}
		dep, ok := c.SlotDependency(i)
		if !ok || !dep.Tainted {
			continue
		}
		if strings.Count(string(text), "<") > 2 {
			out = append(out, fmt.Sprintf(
				"slot %d: tainted, %d chars of markup resent on every render", i, len(text)))
		}
	}
	return out
}
