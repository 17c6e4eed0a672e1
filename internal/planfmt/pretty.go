package planfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"anvil/internal/plan"
	"anvil/internal/resolve"
)

// PrettyOpts configures the human-readable rendering.
type PrettyOpts struct {
	Color bool
}

// Pretty writes the plan in a compact, scannable layout: the artifact
// line, the flag groups that are set, then one row per source with the
// object it produces.
func Pretty(w io.Writer, p *plan.Plan, res *resolve.Result, document, configuration string, opts PrettyOpts) {
	head := fmt.Sprint
	dim := fmt.Sprint
	if opts.Color {
		head = color.New(color.Bold).Sprint
		dim = color.New(color.FgCyan).Sprint
	}

	kind := "executable"
	if p.Library {
		kind = "library"
	}
	fmt.Fprintf(w, "%s (%s) from %s, configuration %s\n", head(p.FullName), kind, document, configuration)
	fmt.Fprintf(w, "toolchain %s\n\n", res.Toolchain.Name)

	fmt.Fprintf(w, "%s %s\n", dim("optimization"), p.Optimization)
	if p.Debugging != "" {
		fmt.Fprintf(w, "%s    %s\n", dim("debugging"), p.Debugging)
	}
	printFlags(w, dim, p.Flags)

	if len(p.Includes) > 0 {
		fmt.Fprintf(w, "%s %s\n", dim("includes"), strings.Join(p.Includes, " "))
	}
	if len(p.Objects) > 0 {
		fmt.Fprintf(w, "%s  %s\n", dim("objects"), strings.Join(p.Objects, " "))
	}

	fmt.Fprintf(w, "\n%s\n", head("sources"))
	for _, src := range p.Sources {
		line := fmt.Sprintf("  %-8s %s", src.Kind, src.Path)
		var overrides []string
		if src.Optimization != "" {
			overrides = append(overrides, src.Optimization)
		}
		if src.Debugging != "" {
			overrides = append(overrides, src.Debugging)
		}
		if len(overrides) > 0 {
			line += " (" + strings.Join(overrides, " ") + ")"
		}
		fmt.Fprintln(w, line)
	}

	if len(p.Prebuilds) > 0 {
		fmt.Fprintf(w, "\n%s\n", head("prebuilds"))
		for _, pb := range p.Prebuilds {
			fmt.Fprintf(w, "  %s (%s, %s)\n", pb.Dir, pb.Document, pb.Configuration)
		}
	}
	printOps(w, head, "pre", p.PreOps)
	printOps(w, head, "post", p.PostOps)
}

func printFlags(w io.Writer, dim func(...any) string, f plan.FlagSet) {
	rows := []struct {
		label string
		list  []string
	}{
		{"aflags  ", f.Assembly},
		{"ccflags ", f.Common},
		{"cflags  ", f.C},
		{"cppflags", f.CPP},
		{"lflags  ", f.Link},
	}
	for _, row := range rows {
		if len(row.list) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", dim(row.label), strings.Join(row.list, " "))
	}
}

func printOps(w io.Writer, head func(...any) string, label string, ops []plan.Op) {
	if len(ops) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", head(label))
	for _, op := range ops {
		if op.Result != 0 {
			fmt.Fprintf(w, "  %s (expect %d)\n", op.Command, op.Result)
			continue
		}
		fmt.Fprintf(w, "  %s\n", op.Command)
	}
}
