// Package toolchain models the compiler binding a build runs against:
// where its binaries live, how their names are prefixed, and how the
// build invokes them.
package toolchain

import (
	"errors"
	"fmt"
)

// Native is the reserved toolchain name for the host's own compilers.
// A native toolchain is trusted to exist and is never probed.
const Native = "native"

// ErrUnavailable reports that a toolchain's compiler did not answer a
// version query.
var ErrUnavailable = errors.New("toolchain unavailable")

// Spec is one resolved toolchain binding: the declared name, an
// optional directory holding the binaries, and an optional name prefix
// such as "arm-none-eabi-".
type Spec struct {
	Name      string
	Path      string
	Prefix    string
	Available bool
}

// IsNative reports whether the spec names the reserved host toolchain.
func (s Spec) IsNative() bool { return s.Name == Native }

// CommandPrefix returns the string prepended to a bare tool name (gcc,
// ar, objcopy) to form the command for this toolchain.
func (s Spec) CommandPrefix() string {
	switch {
	case s.Path != "" && s.Prefix != "":
		return s.Path + "/" + s.Prefix
	case s.Path != "":
		return s.Path + "/"
	default:
		return s.Prefix
	}
}

// CC returns the C compiler command.
func (s Spec) CC() string { return s.CommandPrefix() + "gcc" }

// CXX returns the C++ compiler command, also used as the link driver.
func (s Spec) CXX() string { return s.CommandPrefix() + "g++" }

// AR returns the static archiver command.
func (s Spec) AR() string { return s.CommandPrefix() + "ar" }

// Objcopy returns the image extraction command.
func (s Spec) Objcopy() string { return s.CommandPrefix() + "objcopy" }

// Probe establishes the spec's availability by asking its C compiler
// for a version. Native toolchains skip the query and are always
// considered available.
func Probe(r Runner, s Spec) (Spec, error) {
	if s.IsNative() {
		s.Available = true
		return s, nil
	}
	if err := r.Probe(s.CC()); err != nil {
		return s, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.CC(), err)
	}
	s.Available = true
	return s, nil
}
