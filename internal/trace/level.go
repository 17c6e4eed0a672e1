package trace

import (
	"fmt"
	"strings"
)

// Level selects how much of the build gets traced.
type Level uint8

const (
	LevelOff Level = iota
	// LevelPhase covers builds and pipeline stages.
	LevelPhase
	// LevelDetail adds per-file events inside the compile stage.
	LevelDetail
)

// ShouldEmit reports whether events at the given scope pass the level's
// filter.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeStage
	case LevelDetail:
		return true
	}
	return false
}

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// ParseLevel reads a level name as given on the command line. Matching
// is case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LevelOff, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|phase|detail)", s)
}

// Scope grades events from coarse to fine. The ordering matters:
// ShouldEmit compares against it.
type Scope uint8

const (
	// ScopeBuild spans a whole project build, dependent projects
	// included.
	ScopeBuild Scope = iota + 1
	// ScopeStage spans one pipeline stage.
	ScopeStage
	// ScopeFile spans one source file inside the compile stage.
	ScopeFile
)

func (s Scope) String() string {
	switch s {
	case ScopeBuild:
		return "build"
	case ScopeStage:
		return "stage"
	case ScopeFile:
		return "file"
	default:
		return "unknown"
	}
}
