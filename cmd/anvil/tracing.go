package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anvil/internal/trace"
)

// setupTracing reads the trace flags and initializes the tracer. The
// returned cleanup flushes and closes the trace output.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	root := cmd.Root()

	tracePath, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	if tracePath == "" {
		return trace.Nop, func() {}, nil
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}
	tracer, err := trace.New(trace.Config{Level: level, OutputPath: tracePath})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = tracer.Flush()
		_ = tracer.Close()
	}
	return tracer, cleanup, nil
}
