// Package prof wires the runtime profilers behind one start/stop pair.
package prof

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options selects which profiles a session captures. Empty paths are
// skipped.
type Options struct {
	CPUPath   string // CPU profile, sampled while the session runs
	MemPath   string // heap profile, written on Stop
	TracePath string // runtime execution trace
}

// Session holds the profilers started by Start until Stop is called.
type Session struct {
	cpu     *os.File
	trace   *os.File
	memPath string
	stopped bool
}

// Start enables the requested profilers. On error, anything already
// started is torn down again.
func Start(opts Options) (*Session, error) {
	s := &Session{memPath: opts.MemPath}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpu = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.shutdown()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.shutdown()
			return nil, err
		}
		s.trace = f
	}

	return s, nil
}

// Stop ends the session: the execution trace and CPU profile are
// stopped and, when requested, a heap profile is written. Safe to call
// more than once.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	s.shutdown()

	if s.memPath == "" {
		return nil
	}
	return writeMem(s.memPath)
}

// shutdown stops the running profilers in reverse start order.
func (s *Session) shutdown() {
	if s.trace != nil {
		trace.Stop()
		_ = s.trace.Close()
		s.trace = nil
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		_ = s.cpu.Close()
		s.cpu = nil
	}
}

// writeMem captures a heap profile after a forced collection, so the
// numbers reflect live data rather than garbage.
func writeMem(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
