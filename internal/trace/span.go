package trace

import (
	"sync/atomic"
	"time"
)

// Span brackets one timed operation. A span obtained from a disabled
// tracer is inert: End and ID work but nothing is emitted.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
}

// Begin opens a span and emits its begin event. parent is the ID of
// the enclosing span, 0 at the root. A nil tracer, a disabled tracer,
// or a filtered-out scope all yield an inert span, so callers never
// need to branch on whether tracing is on.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}

	id := nextSpanID()
	now := time.Now()

	t.Emit(&Event{
		Time:     now,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   id,
		ParentID: parent,
		Name:     name,
	})

	return &Span{
		tracer:  t,
		id:      id,
		parent:  parent,
		scope:   scope,
		name:    name,
		started: now,
	}
}

// End closes the span, emitting its end event, and returns how long it
// was open. detail is carried on the end event verbatim.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}

	dur := time.Since(s.started)

	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
	})

	return dur
}

// ID returns the span's identifier, 0 when inert.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Counters are process-global so span IDs stay unique across nested
// prebuild runs.
var (
	globalSeq   uint64
	globalSpans uint64
)

func nextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}

func nextSpanID() uint64 {
	return atomic.AddUint64(&globalSpans, 1)
}
