package trace

import "time"

// Event is one record in the trace stream. Span begin/end pairs share
// a SpanID; point events get their own.
type Event struct {
	Time     time.Time // wall clock at emission
	Seq      uint64    // assigned by the tracer on emit
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for a root span
	Name     string // "compile", "build:anvil.xml", "main.c"
	Detail   string // free-form annotation, often empty
}

// Kind distinguishes span boundaries from instant events.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	// KindPoint is an instant with no duration, such as a source file
	// found up to date.
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}
