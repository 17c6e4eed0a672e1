package buildpipeline

import (
	"time"

	"anvil/internal/trace"
)

// TraceSink turns the pipeline's progress events into trace spans. A
// working status opens a span, done or error closes it, and the strict
// nesting of the pipeline (stages inside a build, files inside the
// compile stage, dependent builds inside the prebuild stage) falls out
// of a span stack.
type TraceSink struct {
	tracer trace.Tracer
	root   *trace.Span
	stack  []traceEntry
}

type traceEntry struct {
	span *trace.Span
	file string // non-empty for per-file spans
}

// NewTraceSink opens the root build span and returns a sink that hangs
// every stage under it. Call Finish once the build has returned.
func NewTraceSink(t trace.Tracer, label string) *TraceSink {
	return &TraceSink{
		tracer: t,
		root:   trace.Begin(t, trace.ScopeBuild, label, 0),
	}
}

func (s *TraceSink) OnEvent(ev Event) {
	switch {
	case ev.Status == StatusQueued:
		// Queued announcements size progress displays; they carry no timing.
	case ev.File != "":
		s.fileEvent(ev)
	case ev.Status == StatusWorking:
		s.push(trace.Begin(s.tracer, trace.ScopeStage, string(ev.Stage), s.parent()), "")
	default:
		s.closeStage(ev)
	}
}

// Finish closes anything still open and ends the root span. Spans stay
// open past their stage only when the build bails out mid-stage, e.g.
// on a cancelled context.
func (s *TraceSink) Finish(detail string) {
	for len(s.stack) > 0 {
		s.pop().span.End("")
	}
	s.root.End(detail)
}

func (s *TraceSink) fileEvent(ev Event) {
	switch ev.Status {
	case StatusWorking:
		s.push(trace.Begin(s.tracer, trace.ScopeFile, ev.File, s.parent()), ev.File)
	case StatusDone, StatusError:
		if top := s.top(); top != nil && top.file == ev.File {
			s.pop().span.End(errDetail(ev.Err))
			return
		}
		// Done without a working phase means the file was already current.
		s.tracer.Emit(&trace.Event{
			Time:     time.Now(),
			Kind:     trace.KindPoint,
			Scope:    trace.ScopeFile,
			ParentID: s.parent(),
			Name:     ev.File,
			Detail:   "up to date",
		})
	}
}

// closeStage ends the innermost open stage span with the given name,
// closing any file span left open above it first.
func (s *TraceSink) closeStage(ev Event) {
	for len(s.stack) > 0 {
		entry := s.pop()
		if entry.file == "" {
			entry.span.End(errDetail(ev.Err))
			return
		}
		entry.span.End("")
	}
}

func (s *TraceSink) push(span *trace.Span, file string) {
	s.stack = append(s.stack, traceEntry{span: span, file: file})
}

func (s *TraceSink) pop() traceEntry {
	entry := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return entry
}

func (s *TraceSink) top() *traceEntry {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// parent returns the span the next event should nest under.
func (s *TraceSink) parent() uint64 {
	if top := s.top(); top != nil {
		return top.span.ID()
	}
	return s.root.ID()
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
