package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pix8/internal/trace"
)

// setupTracing reads the trace flags and builds a tracer. The returned
// cleanup flushes the tracer; call it when the command finishes.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	root := cmd.Root()

	output, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// a bare --trace path implies file-level tracing
	if level == trace.LevelOff && output != "" {
		level = trace.LevelFile
	}

	tracer, err := trace.New(trace.Config{Level: level, OutputPath: output})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
