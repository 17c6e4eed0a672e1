// Package trace records what the build pipeline spends its time on.
//
// Events are spans: a begin/end pair around a whole build, a pipeline
// stage, or a single source file. Dependent-project builds nest their
// spans under the parent's prebuild stage, so the output reads as a
// tree of the entire build.
//
// # Usage
//
// The build command switches tracing on:
//
//	anvil build --trace=- --trace-level=phase
//
// # Levels
//
// Verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelPhase: build and stage boundaries
//   - LevelDetail: everything, including per-file compiles
//
// # Spans
//
// Callers bracket work with Begin and End:
//
//	span := trace.Begin(t, trace.ScopeStage, "compile", parentID)
//	defer span.End("")
//
// The build pipeline derives its spans from the progress event stream,
// so tracing needs no extra instrumentation there.
package trace
