// Package version carries the build identity stamped into anvil
// binaries. Release builds override the variables with -ldflags; a
// plain `go build` leaves everything but Version empty.
package version

import "github.com/fatih/color"

const (
	major = "1"
	minor = "0"
	patch = "8"
)

var (
	// Version is the release number, each component colored for
	// terminal display.
	Version = color.New(color.FgYellow, color.Bold).Sprint(major) + "." +
		color.New(color.FgGreen, color.Bold).Sprint(minor) + "." +
		color.New(color.FgBlue, color.Bold).Sprint(patch)

	// GitCommit and GitMessage identify the commit the binary was
	// built from.
	GitCommit  = ""
	GitMessage = ""

	// BuildDate is ISO-8601 when stamped.
	BuildDate = ""
)
