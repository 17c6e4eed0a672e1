package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives the event stream. Emit must be safe for concurrent
// use; the pipeline reports prebuild progress from worker goroutines.
type Tracer interface {
	Emit(ev *Event)

	// Flush forces buffered events out.
	Flush() error

	// Close flushes and releases the output.
	Close() error

	Level() Level

	// Enabled is false only for the nop tracer. Callers use it to skip
	// event construction entirely.
	Enabled() bool
}

// Config describes where trace output goes and how much of it.
type Config struct {
	Level      Level
	Output     io.Writer // wins over OutputPath when set
	OutputPath string    // file path, or "-" for stderr
}

// New builds a tracer for cfg. At LevelOff it returns Nop without
// touching the output. An OutputPath ending in ".ndjson" switches the
// stream to newline-delimited JSON; anything else gets readable text.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	format := FormatText
	if strings.HasSuffix(cfg.OutputPath, ".ndjson") {
		format = FormatNDJSON
	}
	return NewStreamTracer(w, cfg.Level, format), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}
