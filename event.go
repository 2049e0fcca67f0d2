package livediff

import "text/template/parse"

// EventKind identifies the kind of a ParseEvent.
type EventKind int

const (
	// EventText is a run of literal template text.
	EventText EventKind = iota
	// EventOutput is an embedded expression whose value appears in the output.
	EventOutput
	// EventSideEffect is an embedded expression executed purely for its side
	// effects (typically a local variable declaration); it produces no output
	// and is not counted as a dynamic slot.
	EventSideEffect
	// EventBlockBegin opens a nested markup block passed inline to the
	// enclosing expression.
	EventBlockBegin
	// EventBlockEnd closes the innermost open block.
	EventBlockEnd
)

// String returns a short name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventOutput:
		return "output"
	case EventSideEffect:
		return "side-effect"
	case EventBlockBegin:
		return "block-begin"
	case EventBlockEnd:
		return "block-end"
	}
	return "unknown"
}

// ParseEvent is one ordered event of a tokenized template, as produced by a
// template front-end. Text carries the literal run for EventText; Expr carries
// the parsed expression for EventOutput and EventSideEffect.
type ParseEvent struct {
	Kind EventKind
	Text string
	Expr parse.Node
}

// TextEvent builds a literal text event.
func TextEvent(text string) ParseEvent {
	return ParseEvent{Kind: EventText, Text: text}
}

// OutputEvent builds an output expression event.
func OutputEvent(expr parse.Node) ParseEvent {
	return ParseEvent{Kind: EventOutput, Expr: expr}
}

// SideEffectEvent builds a side-effect expression event.
func SideEffectEvent(expr parse.Node) ParseEvent {
	return ParseEvent{Kind: EventSideEffect, Expr: expr}
}

// BlockBeginEvent opens a nested block.
func BlockBeginEvent() ParseEvent {
	return ParseEvent{Kind: EventBlockBegin}
}

// BlockEndEvent closes the innermost open block.
func BlockEndEvent() ParseEvent {
	return ParseEvent{Kind: EventBlockEnd}
}
