package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatText   Format = iota // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// StreamTracer writes events immediately to an io.Writer.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	start  time.Time
}

// NewStreamTracer creates a new StreamTracer.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{
		w:      w,
		level:  level,
		format: format,
		start:  time.Now(),
	}
}

// Emit writes an event to the output. Write errors are dropped so a
// full disk never fails the build itself.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}

	ev.Seq = nextSeq()

	t.mu.Lock()
	defer t.mu.Unlock()

	var data []byte
	switch t.format {
	case FormatNDJSON:
		data = renderNDJSON(ev)
	default:
		data = renderText(ev, ev.Time.Sub(t.start))
	}
	_, _ = t.w.Write(data)
}

// Flush ensures all buffered data is written. The stream writes
// immediately, so this only forwards to the writer's own Flush.
func (t *StreamTracer) Flush() error {
	if flusher, ok := t.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close flushes and closes the writer if it implements io.Closer.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if closer, ok := t.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Level returns the current tracing level.
func (t *StreamTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *StreamTracer) Enabled() bool {
	return t.level > LevelOff
}

// renderNDJSON formats an event as newline-delimited JSON.
func renderNDJSON(ev *Event) []byte {
	type jsonEvent struct {
		Time     string `json:"time"`
		Seq      uint64 `json:"seq"`
		Kind     string `json:"kind"`
		Scope    string `json:"scope"`
		SpanID   uint64 `json:"span_id"`
		ParentID uint64 `json:"parent_id,omitempty"`
		Name     string `json:"name"`
		Detail   string `json:"detail,omitempty"`
	}

	j := jsonEvent{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Name:     ev.Name,
		Detail:   ev.Detail,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// renderText formats an event as human-readable text:
// [elapsed] [indent]arrow name (detail)
func renderText(ev *Event, elapsed time.Duration) []byte {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%9.3fms] ", float64(elapsed.Microseconds())/1000))

	if ev.ParentID > 0 {
		sb.WriteString("  ")
	}

	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("\u2192 ") // →
	case KindSpanEnd:
		sb.WriteString("\u2190 ") // ←
	case KindPoint:
		sb.WriteString("\u2022 ") // •
	}

	sb.WriteString(ev.Name)

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
