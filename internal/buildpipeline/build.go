// Package buildpipeline orchestrates a build from document to artifact:
// resolution, pre-build commands, output folders, dependent projects,
// incremental compilation, archive or link, and post-build commands.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anvil/internal/deps"
	"anvil/internal/fsutil"
	"anvil/internal/plan"
	"anvil/internal/resolve"
	"anvil/internal/toolchain"
	"anvil/internal/vars"
)

// Defaults applied when a request leaves them empty.
const (
	// DefaultDocument is the build document filename.
	DefaultDocument = "anvil.xml"
	// DefaultConfiguration is the configuration built when none is named.
	DefaultConfiguration = "Release"
)

var (
	// ErrPreOp reports a pre-build command exiting with an unexpected status.
	ErrPreOp = errors.New("pre-build command failed")
	// ErrPostOp reports a post-build command exiting with an unexpected
	// status. The artifact is kept.
	ErrPostOp = errors.New("post-build command failed")
	// ErrCompile reports a failed compile.
	ErrCompile = errors.New("compile failed")
	// ErrArchive reports a failed static-library archive.
	ErrArchive = errors.New("archive failed")
	// ErrLink reports a failed link.
	ErrLink = errors.New("link failed")
	// ErrExtract reports a failed objcopy extraction.
	ErrExtract = errors.New("extract failed")
)

// Request configures one build invocation.
type Request struct {
	// Dir is the project directory the build runs in. Empty means the
	// current directory. Document is resolved relative to it.
	Dir           string
	Document      string
	Configuration string

	Clean      bool
	Prebuilds  bool   // descend into dependent projects
	SingleFile string // compile only this source filename, skip linking

	Subs     []string // key:value substitution pairs
	DictFile string
	// Dict is the base dictionary the invocation seeds over. Dependent
	// builds receive a clone of their parent's resolved dictionary here.
	Dict vars.Dict

	Runner   toolchain.Runner
	FS       fsutil.FS
	Progress ProgressSink
}

// Result reports what a build produced.
type Result struct {
	// Artifact is the produced file, relative to the project directory.
	// Empty when nothing was linked or archived.
	Artifact string
	// Compiled counts the sources that were actually compiled.
	Compiled int
	Timings  Timings
}

func (req *Request) normalize() {
	if req.Document == "" {
		req.Document = DefaultDocument
	}
	if req.Configuration == "" {
		req.Configuration = DefaultConfiguration
	}
	if req.FS == nil {
		req.FS = fsutil.OS{}
	}
	if req.Runner == nil {
		req.Runner = &toolchain.ExecRunner{}
	}
}

// Build runs the whole pipeline for one project. The context is
// consulted between stages only; a tool that has started always runs to
// completion.
func Build(ctx context.Context, req Request) (Result, error) {
	var result Result
	req.normalize()

	// Document paths are relative to the project directory, so the
	// whole pipeline runs inside it. Dependent builds nest the same way
	// and the previous directory is restored on every exit path.
	if req.Dir != "" && req.Dir != "." {
		prev, err := os.Getwd()
		if err != nil {
			return result, err
		}
		if err := os.Chdir(req.Dir); err != nil {
			return result, fmt.Errorf("enter %s: %w", req.Dir, err)
		}
		defer func() {
			_ = os.Chdir(prev)
		}()
	}

	res, p, err := resolveStage(&req, &result)
	if err != nil {
		return result, err
	}
	if err := preOpStage(ctx, &req, p, &result); err != nil {
		return result, err
	}
	forced, err := folderStage(ctx, &req, &result)
	if err != nil {
		return result, err
	}
	if err := prebuildStage(ctx, &req, res, p, &result); err != nil {
		return result, err
	}
	if err := compileStage(ctx, &req, res, p, forced, &result); err != nil {
		return result, err
	}

	// A single-file compile never links and never runs post commands.
	if req.SingleFile != "" {
		return result, nil
	}
	// A library with nothing newly compiled is already current.
	if !p.Library || result.Compiled > 0 {
		if err := artifactStage(ctx, &req, res, p, &result); err != nil {
			return result, err
		}
	}
	return result, postOpStage(ctx, &req, p, &result)
}

// Inspect resolves a document and extracts its plan without touching
// the output tree or running any tool besides the toolchain probe. It
// is the read-only front half of Build.
func Inspect(req Request) (*resolve.Result, *plan.Plan, error) {
	var result Result
	req.normalize()
	if req.Dir != "" && req.Dir != "." {
		prev, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		if err := os.Chdir(req.Dir); err != nil {
			return nil, nil, fmt.Errorf("enter %s: %w", req.Dir, err)
		}
		defer func() {
			_ = os.Chdir(prev)
		}()
	}
	return resolveStage(&req, &result)
}

// resolveStage resolves the document and extracts the plan, validating
// a single-file request against the source list.
func resolveStage(req *Request, result *Result) (*resolve.Result, *plan.Plan, error) {
	start := time.Now()
	emitStage(req.Progress, StageResolve, StatusWorking, nil, 0)

	d := req.Dict
	if d == nil {
		d = vars.Dict{}
	}
	if err := resolve.Seed(d, req.Configuration, req.Subs); err != nil {
		emitStage(req.Progress, StageResolve, StatusError, err, 0)
		return nil, nil, err
	}
	res, err := resolve.Resolve(resolve.Request{
		Document:      req.Document,
		Configuration: req.Configuration,
		Dict:          d,
		DictFile:      req.DictFile,
		Runner:        req.Runner,
	})
	if err != nil {
		emitStage(req.Progress, StageResolve, StatusError, err, 0)
		return nil, nil, err
	}
	p, err := plan.Extract(res, plan.Parent{
		Document:      req.Document,
		Configuration: req.Configuration,
		Clean:         req.Clean,
		Prebuilds:     req.Prebuilds,
		Subs:          req.Subs,
	}, req.FS)
	if err != nil {
		emitStage(req.Progress, StageResolve, StatusError, err, 0)
		return nil, nil, err
	}
	if req.SingleFile != "" {
		if _, ok := p.Source(req.SingleFile); !ok {
			err := fmt.Errorf("%w: %s is not in the source list", plan.ErrInvalidSource, req.SingleFile)
			emitStage(req.Progress, StageResolve, StatusError, err, 0)
			return nil, nil, err
		}
	}

	result.Timings.Set(StageResolve, time.Since(start))
	emitStage(req.Progress, StageResolve, StatusDone, nil, result.Timings.Duration(StageResolve))
	if req.SingleFile == "" {
		emitQueued(req.Progress, p)
	} else {
		emitFile(req.Progress, req.SingleFile, StageCompile, StatusQueued, nil, 0)
	}
	return res, p, nil
}

func preOpStage(ctx context.Context, req *Request, p *plan.Plan, result *Result) error {
	if len(p.PreOps) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	emitStage(req.Progress, StagePreOps, StatusWorking, nil, 0)
	for _, op := range p.PreOps {
		if err := runOp(req.Runner, op, ErrPreOp); err != nil {
			emitStage(req.Progress, StagePreOps, StatusError, err, 0)
			return err
		}
	}
	result.Timings.Set(StagePreOps, time.Since(start))
	emitStage(req.Progress, StagePreOps, StatusDone, nil, result.Timings.Duration(StagePreOps))
	return nil
}

// folderStage prepares <config>/src. Cleaning recreates the whole
// configuration directory; a missing output tree upgrades the build to
// a forced full compile.
func folderStage(ctx context.Context, req *Request, result *Result) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	start := time.Now()
	emitStage(req.Progress, StageFolders, StatusWorking, nil, 0)

	forced := req.Clean
	objDir := filepath.Join(req.Configuration, "src")
	if req.Clean {
		if err := req.FS.RemoveAll(req.Configuration); err != nil {
			emitStage(req.Progress, StageFolders, StatusError, err, 0)
			return false, fmt.Errorf("clean %s: %w", req.Configuration, err)
		}
		if err := req.FS.MkdirAll(objDir); err != nil {
			emitStage(req.Progress, StageFolders, StatusError, err, 0)
			return false, fmt.Errorf("create %s: %w", objDir, err)
		}
	} else if !req.FS.Exists(objDir) {
		forced = true
		if err := req.FS.MkdirAll(objDir); err != nil {
			emitStage(req.Progress, StageFolders, StatusError, err, 0)
			return false, fmt.Errorf("create %s: %w", objDir, err)
		}
	}

	result.Timings.Set(StageFolders, time.Since(start))
	emitStage(req.Progress, StageFolders, StatusDone, nil, result.Timings.Duration(StageFolders))
	return forced, nil
}

// prebuildStage builds dependent projects in declaration order. Each
// child receives a clone of the parent's resolved dictionary; the
// child's final dictionary is merged back so later siblings see what it
// collected.
func prebuildStage(ctx context.Context, req *Request, res *resolve.Result, p *plan.Plan, result *Result) error {
	if !req.Prebuilds || len(p.Prebuilds) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	emitStage(req.Progress, StagePrebuilds, StatusWorking, nil, 0)
	for _, pb := range p.Prebuilds {
		child := Request{
			Dir:           pb.Dir,
			Document:      pb.Document,
			Configuration: pb.Configuration,
			Clean:         pb.Clean,
			Prebuilds:     pb.Prebuilds,
			Subs:          pb.Subs,
			Dict:          res.Dict.Clone(),
			Runner:        req.Runner,
			FS:            req.FS,
			Progress:      req.Progress,
		}
		if _, err := Build(ctx, child); err != nil {
			err = fmt.Errorf("prebuild %s: %w", pb.Dir, err)
			emitStage(req.Progress, StagePrebuilds, StatusError, err, 0)
			return err
		}
		res.Dict.Merge(child.Dict)
	}
	result.Timings.Set(StagePrebuilds, time.Since(start))
	emitStage(req.Progress, StagePrebuilds, StatusDone, nil, result.Timings.Duration(StagePrebuilds))
	return nil
}

// compileStage compiles every stale source, or exactly the named one in
// single-file mode. Each successful compile refreshes the dependency
// snapshot.
func compileStage(ctx context.Context, req *Request, res *resolve.Result, p *plan.Plan, forced bool, result *Result) error {
	start := time.Now()
	emitStage(req.Progress, StageCompile, StatusWorking, nil, 0)

	objDir := filepath.Join(req.Configuration, "src")
	tracker := deps.NewTracker(req.FS)
	includes := includeArgs(p.Includes)

	for _, src := range p.Sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if req.SingleFile != "" {
			// The named file builds unconditionally; the rest not at all.
			if src.Filename != req.SingleFile {
				continue
			}
		} else if !forced && !tracker.Stale(objDir, src.Base) {
			emitFile(req.Progress, src.Filename, StageCompile, StatusDone, nil, 0)
			continue
		}

		emitFile(req.Progress, src.Filename, StageCompile, StatusWorking, nil, 0)
		fileStart := time.Now()
		obj := filepath.Join(objDir, src.Base+".o")
		listing, err := req.Runner.Compile(compilerFor(res.Toolchain, src.Kind), compileArgs(p, src, includes, obj), obj)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCompile, src.Path, err)
			emitFile(req.Progress, src.Filename, StageCompile, StatusError, err, 0)
			emitStage(req.Progress, StageCompile, StatusError, err, 0)
			return err
		}
		if err := tracker.Record(objDir, src.Base, src.Path, deps.ParseListing(listing)); err != nil {
			emitFile(req.Progress, src.Filename, StageCompile, StatusError, err, 0)
			emitStage(req.Progress, StageCompile, StatusError, err, 0)
			return err
		}
		result.Compiled++
		emitFile(req.Progress, src.Filename, StageCompile, StatusDone, nil, time.Since(fileStart))
	}

	result.Timings.Set(StageCompile, time.Since(start))
	emitStage(req.Progress, StageCompile, StatusDone, nil, result.Timings.Duration(StageCompile))
	return nil
}

// artifactStage archives or links the plan's objects and, for bin/hex
// executables, extracts the final image from the intermediate elf.
func artifactStage(ctx context.Context, req *Request, res *resolve.Result, p *plan.Plan, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcObjs := objectPaths(req.Configuration, p)

	if p.Library {
		out := filepath.Join(req.Configuration, p.FullName)
		if p.Extension == "so" || p.Extension == "dll" {
			args := []string{"-shared"}
			args = appendFlagList(args, p.Flags.Link)
			args = append(args, "-o", out)
			args = append(args, srcObjs...)
			args = append(args, p.Objects...)
			if err := runStage(req, result, StageLink, res.Toolchain.CXX(), args, ErrLink, p.FullName); err != nil {
				return err
			}
		} else {
			args := []string{"-r", out}
			args = append(args, srcObjs...)
			args = append(args, p.Objects...)
			if err := runStage(req, result, StageArchive, res.Toolchain.AR(), args, ErrArchive, p.FullName); err != nil {
				return err
			}
		}
		result.Artifact = out
		return nil
	}

	// Executables link with g++; bin and hex images link to an
	// intermediate elf first.
	out := filepath.Join(req.Configuration, p.FullName)
	raw := p.Extension == "bin" || p.Extension == "hex"
	if raw {
		out = filepath.Join(req.Configuration, p.Artifact+".elf")
	}
	var args []string
	args = appendFlagList(args, p.Flags.Link)
	args = append(args, srcObjs...)
	if len(p.Objects) > 0 {
		// Grouping lets the declared objects resolve symbols in any order.
		args = append(args, "-Wl,--start-group")
		args = append(args, p.Objects...)
		args = append(args, "-Wl,--end-group")
	}
	args = append(args, "-o", out)
	if err := runStage(req, result, StageLink, res.Toolchain.CXX(), args, ErrLink, p.Artifact); err != nil {
		return err
	}
	result.Artifact = out

	if raw {
		final := filepath.Join(req.Configuration, p.FullName)
		format := "binary"
		if p.Extension == "hex" {
			format = "ihex"
		}
		args := []string{"-O", format, out, final}
		if err := runStage(req, result, StageExtract, res.Toolchain.Objcopy(), args, ErrExtract, p.FullName); err != nil {
			return err
		}
		result.Artifact = final
	}
	return nil
}

// postOpStage runs every post command regardless of individual
// failures; the last failure is reported and the artifact is kept.
func postOpStage(ctx context.Context, req *Request, p *plan.Plan, result *Result) error {
	if len(p.PostOps) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	emitStage(req.Progress, StagePostOps, StatusWorking, nil, 0)
	var failed error
	for _, op := range p.PostOps {
		if err := runOp(req.Runner, op, ErrPostOp); err != nil {
			failed = err
		}
	}
	result.Timings.Set(StagePostOps, time.Since(start))
	if failed != nil {
		emitStage(req.Progress, StagePostOps, StatusError, failed, 0)
		return failed
	}
	emitStage(req.Progress, StagePostOps, StatusDone, nil, result.Timings.Duration(StagePostOps))
	return nil
}

// runOp shells out one command and compares its exit status with the
// expected result.
func runOp(r toolchain.Runner, op plan.Op, fail error) error {
	code, err := r.Shell(op.Command)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", fail, op.Command, err)
	}
	if code != op.Result {
		return fmt.Errorf("%w: %s exited %d, expected %d", fail, op.Command, code, op.Result)
	}
	return nil
}

// runStage runs one artifact tool, bracketing it with progress events
// and recording its stage duration.
func runStage(req *Request, result *Result, stage Stage, name string, args []string, fail error, label string) error {
	start := time.Now()
	emitStage(req.Progress, stage, StatusWorking, nil, 0)
	if err := req.Runner.Run(name, args); err != nil {
		err = fmt.Errorf("%w: %s: %v", fail, label, err)
		emitStage(req.Progress, stage, StatusError, err, 0)
		return err
	}
	result.Timings.Set(stage, time.Since(start))
	emitStage(req.Progress, stage, StatusDone, nil, result.Timings.Duration(stage))
	return nil
}

func compilerFor(spec toolchain.Spec, kind plan.Kind) string {
	// Assembly rides the C++ driver, which hands .s files to the
	// assembler itself.
	if kind == plan.KindC {
		return spec.CC()
	}
	return spec.CXX()
}

// compileArgs assembles one compile invocation: optimization, debug
// level, -Wall -c, the kind's flag lists with file-scope entries after
// each, include paths, dependency emission, source, output.
func compileArgs(p *plan.Plan, src plan.SourceFile, includes []string, obj string) []string {
	args := make([]string, 0, 32)
	opt := p.Optimization
	if src.Optimization != "" {
		opt = src.Optimization
	}
	args = appendSplit(args, opt)
	dbg := p.Debugging
	if src.Debugging != "" {
		dbg = src.Debugging
	}
	args = appendSplit(args, dbg)
	args = append(args, "-Wall", "-c")

	switch src.Kind {
	case plan.KindAssembly:
		args = appendFlagList(args, p.Flags.Assembly)
		args = appendFlagList(args, src.Flags.Assembly)
	case plan.KindC:
		args = appendFlagList(args, p.Flags.Common)
		args = appendFlagList(args, src.Flags.Common)
		args = appendFlagList(args, p.Flags.C)
		args = appendFlagList(args, src.Flags.C)
	default:
		args = appendFlagList(args, p.Flags.Common)
		args = appendFlagList(args, src.Flags.Common)
		args = appendFlagList(args, p.Flags.CPP)
		args = appendFlagList(args, src.Flags.CPP)
	}

	args = append(args, includes...)
	args = append(args, "-MMD", src.Path, "-o", obj)
	return args
}

func includeArgs(paths []string) []string {
	args := make([]string, 0, len(paths))
	for _, path := range paths {
		args = append(args, "-I"+path)
	}
	return args
}

// objectPaths returns the object file for every planned source.
func objectPaths(configuration string, p *plan.Plan) []string {
	objs := make([]string, 0, len(p.Sources))
	for _, src := range p.Sources {
		objs = append(objs, filepath.Join(configuration, "src", src.Base+".o"))
	}
	return objs
}

// appendSplit splits one flag string on whitespace so entries like
// "-isystem /opt/include" become separate arguments.
func appendSplit(args []string, flag string) []string {
	return append(args, strings.Fields(flag)...)
}

func appendFlagList(args []string, flags []string) []string {
	for _, flag := range flags {
		args = appendSplit(args, flag)
	}
	return args
}

func emitStage(sink ProgressSink, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func emitFile(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// emitQueued announces every planned source so progress displays can
// size themselves before compilation starts.
func emitQueued(sink ProgressSink, p *plan.Plan) {
	if sink == nil {
		return
	}
	for _, src := range p.Sources {
		sink.OnEvent(Event{File: src.Filename, Stage: StageCompile, Status: StatusQueued})
	}
}
