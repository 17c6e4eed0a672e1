// Package vars implements the substitution dictionary that resolves
// {key} references in build documents.
package vars

import (
	"fmt"
	"sort"
	"strings"
)

// Pending is the reserved value for keys that are declared but cannot be
// resolved yet. References to a pending key are deferred rather than
// failed until the final substitution pass.
const Pending = "<pending>"

// Dict maps substitution keys to string values. Later writes win.
type Dict map[string]string

// Clone returns an independent copy of d.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge copies every entry of src into d, overwriting existing keys.
func (d Dict) Merge(src Dict) {
	for k, v := range src {
		d[k] = v
	}
}

// Mode selects how Expand treats keys that are missing or pending.
type Mode int

const (
	// Optional keeps unresolvable references as literal {key} text.
	Optional Mode = iota
	// Required fails on missing keys but defers pending ones.
	Required
	// Final fails on missing keys and on pending ones.
	Final
)

// MissingKeyError reports a reference to a key absent from the dictionary.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no substitution for {%s}", e.Key)
}

// UnresolvedError reports keys whose values could not be brought to a
// literal form.
type UnresolvedError struct {
	Keys []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved references: %s", strings.Join(e.Keys, ", "))
}

// Expand replaces every {key} reference in s with its dictionary value.
// Replacement is a single pass; replacement text is not rescanned. A `{`
// without a closing `}` is kept verbatim.
func Expand(s string, d Dict, mode Mode) (string, error) {
	if !strings.Contains(s, "{") {
		return s, nil
	}
	var b strings.Builder
	rest := s
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end += open
		b.WriteString(rest[:open])
		key := rest[open+1 : end]
		val, ok := d[key]
		switch {
		case !ok:
			if mode != Optional {
				return "", &MissingKeyError{Key: key}
			}
			b.WriteString(rest[open : end+1])
		case val == Pending:
			if mode == Final {
				return "", &UnresolvedError{Keys: []string{key}}
			}
			b.WriteString(rest[open : end+1])
		default:
			b.WriteString(val)
		}
		rest = rest[end+1:]
	}
}

// References returns the keys referenced by {key} occurrences in s.
func References(s string) []string {
	var out []string
	rest := s
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			return out
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			return out
		}
		out = append(out, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// SplitPair splits a key:value assignment on its first colon.
func SplitPair(s string) (key, value string, ok bool) {
	i := strings.Index(s, ":")
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

const maxReconcilePasses = 10

// Reconcile re-expands every dictionary value against the dictionary
// itself until none contains a reference. Values may forward- and
// backward-reference other keys. References to pending keys are left in
// place for the final pass. Values that still reference resolvable keys
// after the pass limit, which covers reference cycles, fail with an
// UnresolvedError naming the offending keys.
func Reconcile(d Dict) error {
	for pass := 0; pass < maxReconcilePasses; pass++ {
		changed := false
		leftover := false
		for k, v := range d {
			if v == Pending || !strings.Contains(v, "{") {
				continue
			}
			next, err := Expand(v, d, Optional)
			if err != nil {
				return err
			}
			if next != v {
				d[k] = next
				changed = true
			}
			if strings.Contains(next, "{") && !deferredOnly(next, d) {
				leftover = true
			}
		}
		if !leftover {
			return nil
		}
		if !changed {
			break
		}
	}
	return &UnresolvedError{Keys: unresolvedKeys(d)}
}

// deferredOnly reports whether every reference in s points at a key whose
// value is the pending sentinel.
func deferredOnly(s string, d Dict) bool {
	for _, key := range References(s) {
		if d[key] != Pending {
			return false
		}
	}
	return true
}

func unresolvedKeys(d Dict) []string {
	var keys []string
	for k, v := range d {
		if v == Pending || !strings.Contains(v, "{") {
			continue
		}
		if deferredOnly(v, d) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
