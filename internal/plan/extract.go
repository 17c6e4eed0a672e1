package plan

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"anvil/internal/document"
	"anvil/internal/fsutil"
	"anvil/internal/resolve"
)

// Optimization applied when the configuration does not choose one.
// Debugging has no default; absent means no debug flag at all.
const defaultOptimization = "-O0"

// wildcardSuffix marks a source path that expands to a directory scan.
const wildcardSuffix = "/*"

// Parent carries the invoking build's settings. Prebuild descriptors
// inherit any field they do not override.
type Parent struct {
	Document      string
	Configuration string
	Clean         bool
	Prebuilds     bool
	Subs          []string
}

// Extract reads the resolved tree into an executable plan.
func Extract(res *resolve.Result, parent Parent, fs fsutil.FS) (*Plan, error) {
	p := &Plan{Optimization: defaultOptimization}
	root := res.Root
	cfg := res.Configuration

	if err := artifactNames(p, root); err != nil {
		return nil, err
	}
	if t, ok := cfg.ChildText("optimization"); ok {
		p.Optimization = t
	}
	if t, ok := cfg.ChildText("debugging"); ok {
		p.Debugging = t
	}

	if err := collectFlags(&p.Flags, root, true); err != nil {
		return nil, err
	}
	if err := collectFlags(&p.Flags, cfg, true); err != nil {
		return nil, err
	}

	if obj := root.Find("objects"); obj != nil {
		for _, n := range obj.FindAll("obj") {
			if n.Text == "" {
				continue
			}
			p.Objects = append(p.Objects, n.Text)
		}
	}

	if err := collectPrebuilds(p, root, parent, fs); err != nil {
		return nil, err
	}

	if inc := root.Find("includes"); inc != nil {
		for _, n := range inc.FindAll("path") {
			p.Includes = append(p.Includes, n.Text)
		}
		// System include paths ride along as common compiler flags.
		for _, n := range inc.FindAll("isys") {
			p.Flags.Common = append(p.Flags.Common, "-isystem "+n.Text)
		}
	}

	// Toolchain flags come last of the scopes, after any isys entries.
	if res.ToolchainNode != nil {
		if err := collectFlags(&p.Flags, res.ToolchainNode, true); err != nil {
			return nil, err
		}
	}

	if err := collectSources(p, root, fs); err != nil {
		return nil, err
	}

	var err error
	if p.PreOps, err = collectOps(root, "pre_op"); err != nil {
		return nil, err
	}
	if p.PostOps, err = collectOps(root, "post_op"); err != nil {
		return nil, err
	}
	return p, nil
}

// artifactNames splits the declared artifact into base and extension.
// The text before the first dot is the base; an extension element
// supplies the extension when the name itself has none. A library with
// no extension at all defaults to the static-archive convention.
func artifactNames(p *Plan, root *document.Node) error {
	name, ok := root.Attr["artifact"]
	if !ok || name == "" {
		return fmt.Errorf("%w: document has no artifact attribute", ErrArtifactSpec)
	}
	base, ext, hasExt := strings.Cut(name, ".")
	p.Artifact = base
	if hasExt {
		p.Extension = ext
	} else if t, ok := root.ChildText("extension"); ok {
		p.Extension = t
	}

	kind, ok := root.Attr["type"]
	if !ok {
		return fmt.Errorf("%w: document has no type attribute", ErrArtifactSpec)
	}
	p.Library = kind == "library"
	if p.Library && p.Extension == "" {
		if !strings.HasPrefix(p.Artifact, "lib") {
			p.Artifact = "lib" + p.Artifact
		}
		p.Extension = "a"
	}

	p.FullName = p.Artifact
	if p.Extension != "" {
		p.FullName = p.Artifact + "." + p.Extension
	}
	return nil
}

// collectFlags appends the scope's flag elements to the set. Link flags
// are only read where link is true; they have no file scope.
func collectFlags(set *FlagSet, scope *document.Node, link bool) error {
	var err error
	if set.Assembly, err = appendFlags(set.Assembly, scope, "aflag"); err != nil {
		return err
	}
	if set.Common, err = appendFlags(set.Common, scope, "ccflag"); err != nil {
		return err
	}
	if set.C, err = appendFlags(set.C, scope, "cflag"); err != nil {
		return err
	}
	if set.CPP, err = appendFlags(set.CPP, scope, "cppflag"); err != nil {
		return err
	}
	if !link {
		return nil
	}
	set.Link, err = appendFlags(set.Link, scope, "lflag")
	return err
}

func appendFlags(list []string, scope *document.Node, tag string) ([]string, error) {
	for _, n := range scope.FindAll(tag) {
		if n.Text == "" {
			return nil, fmt.Errorf("%w: empty <%s> in <%s>", ErrArtifactSpec, tag, scope.Tag)
		}
		list = append(list, n.Text)
	}
	return list, nil
}

func collectSources(p *Plan, root *document.Node, fs fsutil.FS) error {
	src := root.Find("sources")
	if src == nil {
		return nil
	}
	for _, entry := range src.FindAll("file") {
		path, ok := entry.Attr["path"]
		if !ok || path == "" {
			return fmt.Errorf("%w: source entry without a path", ErrInvalidSource)
		}
		if strings.HasSuffix(path, wildcardSuffix) {
			if err := expandWildcard(p, entry, strings.TrimSuffix(path, wildcardSuffix), fs); err != nil {
				return err
			}
			continue
		}
		file, err := newSourceFile(entry, path, fs)
		if err != nil {
			return err
		}
		appendSource(p, file)
	}
	return nil
}

// expandWildcard adds every recognized source in dir, minus excluded
// names, as an entry with no per-file overrides. A later explicit entry
// for one of these files replaces it in place.
func expandWildcard(p *Plan, entry *document.Node, dir string, fs fsutil.FS) error {
	var excludes []string
	for _, ex := range entry.FindAll("exclude") {
		excludes = append(excludes, ex.Text)
	}
	names, err := fs.ReadDirNames(dir)
	if err != nil {
		return fmt.Errorf("%w: wildcard %s: %v", ErrInvalidSource, dir, err)
	}
	for _, name := range names {
		if _, ok := sourceKind(name); !ok {
			continue
		}
		if excluded(excludes, name) {
			continue
		}
		file, err := newSourceFile(nil, filepath.Join(dir, name), fs)
		if err != nil {
			return err
		}
		appendSource(p, file)
	}
	return nil
}

func excluded(excludes []string, name string) bool {
	for _, ex := range excludes {
		if ex == name {
			return true
		}
	}
	return false
}

// newSourceFile builds the entry for one path. entry may be nil for
// wildcard matches, which carry no overrides.
func newSourceFile(entry *document.Node, path string, fs fsutil.FS) (SourceFile, error) {
	kind, ok := sourceKind(path)
	if !ok {
		return SourceFile{}, fmt.Errorf("%w: %s has no recognized extension", ErrInvalidSource, path)
	}
	if !fs.Exists(path) {
		return SourceFile{}, fmt.Errorf("%w: %s not found", ErrInvalidSource, path)
	}
	mtime, err := fs.MTime(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("%w: %s: %v", ErrInvalidSource, path, err)
	}
	name := filepath.Base(path)
	base, _, _ := strings.Cut(name, ".")
	file := SourceFile{
		Path:     path,
		Filename: name,
		Base:     base,
		Kind:     kind,
		ModTime:  mtime,
	}
	if entry == nil {
		return file, nil
	}
	if t, ok := entry.ChildText("optimization"); ok && t != "" {
		file.Optimization = t
	}
	if t, ok := entry.ChildText("debugging"); ok && t != "" {
		file.Debugging = t
	}
	if err := collectFlags(&file.Flags, entry, false); err != nil {
		return SourceFile{}, err
	}
	return file, nil
}

// sourceKind infers the front end from the final extension.
func sourceKind(name string) (Kind, bool) {
	switch filepath.Ext(name) {
	case ".s":
		return KindAssembly, true
	case ".c":
		return KindC, true
	case ".cpp":
		return KindCPP, true
	}
	return 0, false
}

// appendSource inserts by filename identity: a duplicate replaces the
// existing entry, keeping its list position.
func appendSource(p *Plan, file SourceFile) {
	for i := range p.Sources {
		if p.Sources[i].Filename == file.Filename {
			p.Sources[i] = file
			return
		}
	}
	p.Sources = append(p.Sources, file)
}

func collectPrebuilds(p *Plan, root *document.Node, parent Parent, fs fsutil.FS) error {
	pre := root.Find("prebuilds")
	if pre == nil {
		return nil
	}
	for _, proj := range pre.FindAll("project") {
		pb, err := newPreBuild(proj, parent, fs)
		if err != nil {
			return err
		}
		p.Prebuilds = append(p.Prebuilds, pb)
	}
	return nil
}

func newPreBuild(proj *document.Node, parent Parent, fs fsutil.FS) (PreBuild, error) {
	dir, ok := proj.Attr["path"]
	if !ok || dir == "" {
		return PreBuild{}, fmt.Errorf("%w: prebuild without a path", ErrArtifactSpec)
	}
	pb := PreBuild{
		Dir:           dir,
		Document:      parent.Document,
		Configuration: parent.Configuration,
		Clean:         parent.Clean,
		Prebuilds:     parent.Prebuilds,
	}
	if t, ok := proj.ChildText("configfile"); ok {
		pb.Document = t
	}
	doc := filepath.Join(dir, pb.Document)
	if !fs.Exists(doc) {
		return PreBuild{}, fmt.Errorf("%w: prebuild document %s not found", ErrArtifactSpec, doc)
	}
	if t, ok := proj.ChildText("configuration"); ok {
		pb.Configuration = t
	}
	if t, ok := proj.ChildText("clean"); ok {
		pb.Clean = t == "1"
	}
	if t, ok := proj.ChildText("prebuilds"); ok {
		pb.Prebuilds = t == "1"
	}
	// The child works on its own copy of the substitution pairs; its
	// additions never leak back into the parent or into siblings.
	pb.Subs = append(pb.Subs, parent.Subs...)
	for _, sub := range proj.FindAll("sub") {
		if sub.Text == "" {
			continue
		}
		if !strings.Contains(sub.Text, ":") {
			return PreBuild{}, fmt.Errorf("%w: prebuild sub %q is not key:value", ErrArtifactSpec, sub.Text)
		}
		pb.Subs = append(pb.Subs, sub.Text)
	}
	return pb, nil
}

func collectOps(root *document.Node, tag string) ([]Op, error) {
	var ops []Op
	for _, n := range root.FindAll(tag) {
		if n.Text == "" {
			return nil, fmt.Errorf("%w: empty <%s> command", ErrArtifactSpec, tag)
		}
		op := Op{Command: n.Text}
		if want, ok := n.Attr["result"]; ok {
			code, err := strconv.Atoi(want)
			if err != nil {
				return nil, fmt.Errorf("%w: <%s> result %q is not a number", ErrArtifactSpec, tag, want)
			}
			op.Result = code
		}
		ops = append(ops, op)
	}
	return ops, nil
}
