package trace

// nopTracer discards everything. Inert spans carry it so their End is
// a cheap no-op.
type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop is the shared disabled tracer.
var Nop Tracer = nopTracer{}
