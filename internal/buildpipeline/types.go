package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageResolve covers document resolution and plan extraction.
	StageResolve Stage = "resolve"
	// StagePreOps runs the plan's pre-build commands.
	StagePreOps Stage = "pre-ops"
	// StageFolders prepares the output tree.
	StageFolders Stage = "folders"
	// StagePrebuilds builds dependent projects.
	StagePrebuilds Stage = "prebuilds"
	// StageCompile compiles the source files.
	StageCompile Stage = "compile"
	// StageArchive produces a static library.
	StageArchive Stage = "archive"
	// StageLink links an executable or shared library.
	StageLink Stage = "link"
	// StageExtract converts the linked image to a raw or hex format.
	StageExtract Stage = "extract"
	// StagePostOps runs the plan's post-build commands.
	StagePostOps Stage = "post-ops"
)

// Status captures where a task stands within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a source file (or for the overall pipeline
// when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings records how long each stage took. The zero value is ready to
// use; stages that never ran are simply absent.
type Timings struct {
	byStage map[Stage]time.Duration
}

// Set stores the duration for a stage, replacing any earlier value.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.byStage == nil {
		t.byStage = make(map[Stage]time.Duration)
	}
	t.byStage[stage] = dur
}

// Has reports whether the stage ran.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.byStage[stage]
	return ok
}

// Duration returns the recorded duration, 0 when the stage never ran.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.byStage[stage]
}

// Sum adds up the durations of the given stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.byStage[stage]
	}
	return total
}
