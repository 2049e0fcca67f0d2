package livediff

import (
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

// SafeText is text that is already escaped and safe to emit verbatim.
// Binding values of this type (or of template.HTML) pass through rendering
// unchanged; everything else is HTML-escaped on the way out.
type SafeText string

// EscapeFunc converts an arbitrary value into escaped text. ToSafeText is the
// default; Compile accepts a replacement via WithEscaper.
type EscapeFunc func(v interface{}) SafeText

// ToSafeText converts a value into escaped text. Already-escaped values
// (SafeText, template.HTML) pass through unchanged, raw strings are
// HTML-escaped, and anything else is formatted with %v and then escaped.
func ToSafeText(v interface{}) SafeText {
	switch t := v.(type) {
	case SafeText:
		return t
	case template.HTML:
		return SafeText(t)
	case string:
		return SafeText(template.HTMLEscapeString(t))
	case fmt.Stringer:
		return SafeText(template.HTMLEscapeString(t.String()))
	default:
		return SafeText(template.HTMLEscapeString(fmt.Sprintf("%v", v)))
	}
}

// Sanitized runs untrusted HTML through a bluemonday policy and marks the
// result as safe. Useful for binding values that should keep a restricted
// subset of markup instead of being fully escaped.
func Sanitized(policy *bluemonday.Policy, html string) SafeText {
	return SafeText(policy.Sanitize(html))
}
