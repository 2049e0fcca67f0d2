// Package livediff compiles markup templates into an incrementally
// re-renderable static/dynamic tree.
//
// A template is compiled once into a static skeleton plus a list of dynamic
// slots. Each slot's expression is analyzed at compile time to determine which
// named inputs it reads. At render time the caller supplies the current input
// bindings together with a change hint describing which inputs are confirmed
// unchanged since the previous render; slots whose inputs are all unchanged
// are skipped and marked Absent in the resulting tree, so a consumer that
// retains the previous tree only has to transmit or apply the values that
// actually changed.
//
// Expressions are represented as text/template parse nodes, and slot
// evaluation uses html/template so that all produced values are HTML-escaped
// unless explicitly marked safe.
package livediff
