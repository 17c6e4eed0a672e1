// Package deps persists per-source-file modification-time snapshots and
// decides compile staleness from them.
package deps

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"anvil/internal/fsutil"
)

// Tracker reads and writes dependency snapshots. A snapshot holds one
// timestamp:path line for the source file followed by one line per
// dependency the last compile reported.
type Tracker struct {
	fs fsutil.FS
}

// NewTracker returns a Tracker backed by the given filesystem.
func NewTracker(fs fsutil.FS) *Tracker {
	return &Tracker{fs: fs}
}

// SnapshotPath returns the snapshot location for a source base name.
func SnapshotPath(dir, base string) string {
	return filepath.Join(dir, base+".mtime")
}

// Record writes the snapshot for one compiled source file.
func (t *Tracker) Record(dir, base, source string, depPaths []string) error {
	var b strings.Builder
	mtime, err := t.fs.MTime(source)
	if err != nil {
		return fmt.Errorf("record %s: %w", source, err)
	}
	b.WriteString(stamp(mtime))
	b.WriteByte(':')
	b.WriteString(source)
	b.WriteByte('\n')
	for _, dep := range depPaths {
		mtime, err := t.fs.MTime(dep)
		if err != nil {
			return fmt.Errorf("record %s: %w", dep, err)
		}
		b.WriteString(stamp(mtime))
		b.WriteByte(':')
		b.WriteString(dep)
		b.WriteByte('\n')
	}
	if err := t.fs.WriteFile(SnapshotPath(dir, base), []byte(b.String())); err != nil {
		return fmt.Errorf("write snapshot for %s: %w", base, err)
	}
	return nil
}

// Stale reports whether the source file needs recompiling: no snapshot,
// an unreadable or missing recorded path, or any timestamp mismatch.
// The first mismatch decides; remaining entries are not checked.
func (t *Tracker) Stale(dir, base string) bool {
	data, err := t.fs.ReadFile(SnapshotPath(dir, base))
	if err != nil {
		return true
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		recorded, path, ok := strings.Cut(line, ":")
		if !ok {
			return true
		}
		mtime, err := t.fs.MTime(path)
		if err != nil {
			return true
		}
		if stamp(mtime) != recorded {
			return true
		}
	}
	return false
}

// ParseListing extracts dependency paths from a compiler-emitted
// dependency listing. The first two tokens are the object target and
// the source file itself; tokens carrying a line-continuation marker
// are noise.
func ParseListing(listing string) []string {
	fields := strings.Fields(listing)
	if len(fields) <= 2 {
		return nil
	}
	var deps []string
	for _, tok := range fields[2:] {
		if strings.Contains(tok, `\`) {
			continue
		}
		deps = append(deps, tok)
	}
	return deps
}

func stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}
