// Package plan turns a resolved build document into the concrete plan
// the pipeline executes: artifact naming, flag lists, include paths,
// source files, link objects, sub-project builds, and pre/post
// commands. Extraction reads a fully literal tree; the only outside
// state it consults is the filesystem, to verify that sources and
// prebuild documents exist and to capture modification times.
package plan

import (
	"errors"
	"time"
)

var (
	// ErrInvalidSource marks a source entry whose path is missing,
	// whose extension is not a recognized kind, or whose file does not
	// exist.
	ErrInvalidSource = errors.New("invalid source file")
	// ErrArtifactSpec marks a document that cannot describe a complete
	// artifact: missing attributes, empty flag or command entries, or a
	// broken prebuild reference.
	ErrArtifactSpec = errors.New("artifact specification")
)

// Kind classifies a source file by the toolchain front end it needs.
type Kind int

const (
	KindAssembly Kind = iota
	KindC
	KindCPP
)

func (k Kind) String() string {
	switch k {
	case KindAssembly:
		return "assembly"
	case KindC:
		return "c"
	case KindCPP:
		return "c++"
	default:
		return "unknown"
	}
}

// FlagSet holds the five flag categories passed to the toolchain,
// accumulated project scope first, then configuration, toolchain, and
// file scope. Order within a list is significant: later flags override
// earlier ones when the compiler sees them.
type FlagSet struct {
	Assembly []string
	Common   []string // shared by C and C++ compiles
	C        []string
	CPP      []string
	Link     []string
}

// SourceFile is one compilation unit. Files are identified by filename
// alone; the plan never holds two entries with the same filename.
type SourceFile struct {
	Path     string
	Filename string
	Base     string // filename up to the first dot, names the object
	Kind     Kind
	// Optimization and Debugging override the plan defaults when
	// non-empty. Flags carries file-scope additions; its Link list is
	// always empty.
	Optimization string
	Debugging    string
	Flags        FlagSet
	ModTime      time.Time
}

// Op is an external command together with the exit status that counts
// as success.
type Op struct {
	Command string
	Result  int
}

// PreBuild describes a dependent project built before this one. Fields
// the document does not set inherit the invoking build's values.
type PreBuild struct {
	Dir           string
	Document      string
	Configuration string
	Clean         bool
	Prebuilds     bool
	Subs          []string
}

// Plan is everything the pipeline needs to produce one artifact.
type Plan struct {
	Artifact  string // base name, lib-prefixed for default libraries
	Extension string // empty when the artifact carries none
	FullName  string
	Library   bool

	// Compile defaults; individual sources may override them.
	Optimization string
	Debugging    string

	Flags    FlagSet
	Includes []string
	Objects  []string
	Sources  []SourceFile

	Prebuilds []PreBuild
	PreOps    []Op
	PostOps   []Op
}

// Source returns the entry whose filename matches name.
func (p *Plan) Source(name string) (SourceFile, bool) {
	for _, src := range p.Sources {
		if src.Filename == name {
			return src, true
		}
	}
	return SourceFile{}, false
}
