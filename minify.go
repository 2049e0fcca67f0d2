package livediff

import (
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

// staticMinifier lazily builds the shared HTML minifier. Compilation is the
// only caller, so one process-wide instance is enough.
func staticMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", html.Minify)
	})
	return minifier
}

// minifyStatic shrinks one static run at compile time. A run with no markup
// in it only needs its whitespace collapsed; anything with a tag goes through
// the HTML minifier. A run the minifier cannot handle is kept as written;
// minification never fails a compile.
func minifyStatic(static string) string {
	if !strings.Contains(static, "<") {
		return collapseWhitespace(static)
	}
	minified, err := staticMinifier().String("text/html", static)
	if err != nil {
		return static
	}
	return minified
}

// collapseWhitespace trims a text-only run and folds internal whitespace runs
// into single spaces.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
