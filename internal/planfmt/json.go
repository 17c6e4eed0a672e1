// Package planfmt renders an extracted build plan for humans and tools.
// The pipeline's own types carry no serialization concerns; the mirror
// structs here define the stable output shape.
package planfmt

import (
	"encoding/json"
	"io"
	"path/filepath"

	"fortio.org/safecast"

	"anvil/internal/plan"
	"anvil/internal/resolve"
)

// ArtifactJSON describes the build product.
type ArtifactJSON struct {
	Name      string `json:"name"`
	Extension string `json:"extension,omitempty"`
	FullName  string `json:"full_name"`
	Library   bool   `json:"library"`
}

// FlagsJSON lists the flag groups in the order they reach the tools.
type FlagsJSON struct {
	Assembly []string `json:"aflags,omitempty"`
	Common   []string `json:"ccflags,omitempty"`
	C        []string `json:"cflags,omitempty"`
	CPP      []string `json:"cppflags,omitempty"`
	Link     []string `json:"lflags,omitempty"`
}

// SourceJSON describes one source file and the object it produces.
type SourceJSON struct {
	Index        uint32    `json:"index"`
	Path         string    `json:"path"`
	Kind         string    `json:"kind"`
	Object       string    `json:"object"`
	Optimization string    `json:"optimization,omitempty"`
	Debugging    string    `json:"debugging,omitempty"`
	Flags        FlagsJSON `json:"flags,omitempty"`
}

// PreBuildJSON describes one dependent project.
type PreBuildJSON struct {
	Path          string   `json:"path"`
	Document      string   `json:"document"`
	Configuration string   `json:"configuration"`
	Clean         bool     `json:"clean"`
	Prebuilds     bool     `json:"prebuilds"`
	Subs          []string `json:"subs,omitempty"`
}

// OpJSON describes one shell command and its expected exit status.
type OpJSON struct {
	Command string `json:"command"`
	Result  int    `json:"result"`
}

// PlanOutput is the root structure of the JSON rendering.
type PlanOutput struct {
	Document      string            `json:"document"`
	Configuration string            `json:"configuration"`
	Toolchain     string            `json:"toolchain"`
	Artifact      ArtifactJSON      `json:"artifact"`
	Optimization  string            `json:"optimization"`
	Debugging     string            `json:"debugging,omitempty"`
	Flags         FlagsJSON         `json:"flags"`
	Includes      []string          `json:"includes,omitempty"`
	Objects       []string          `json:"objects,omitempty"`
	Sources       []SourceJSON      `json:"sources"`
	SourceCount   uint32            `json:"source_count"`
	Prebuilds     []PreBuildJSON    `json:"prebuilds,omitempty"`
	PreOps        []OpJSON          `json:"pre_ops,omitempty"`
	PostOps       []OpJSON          `json:"post_ops,omitempty"`
	Dict          map[string]string `json:"dict,omitempty"`
}

// BuildPlanOutput assembles the output structure without serializing it.
func BuildPlanOutput(p *plan.Plan, res *resolve.Result, document, configuration string) (PlanOutput, error) {
	out := PlanOutput{
		Document:      document,
		Configuration: configuration,
		Toolchain:     res.Toolchain.Name,
		Artifact: ArtifactJSON{
			Name:      p.Artifact,
			Extension: p.Extension,
			FullName:  p.FullName,
			Library:   p.Library,
		},
		Optimization: p.Optimization,
		Debugging:    p.Debugging,
		Flags:        makeFlags(p.Flags),
		Includes:     p.Includes,
		Objects:      p.Objects,
		Dict:         map[string]string(res.Dict),
	}

	out.Sources = make([]SourceJSON, 0, len(p.Sources))
	for i, src := range p.Sources {
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			return PlanOutput{}, err
		}
		out.Sources = append(out.Sources, SourceJSON{
			Index:        idx,
			Path:         src.Path,
			Kind:         src.Kind.String(),
			Object:       filepath.Join(configuration, "src", src.Base+".o"),
			Optimization: src.Optimization,
			Debugging:    src.Debugging,
			Flags:        makeFlags(src.Flags),
		})
	}
	count, err := safecast.Conv[uint32](len(out.Sources))
	if err != nil {
		return PlanOutput{}, err
	}
	out.SourceCount = count

	for _, pb := range p.Prebuilds {
		out.Prebuilds = append(out.Prebuilds, PreBuildJSON{
			Path:          pb.Dir,
			Document:      pb.Document,
			Configuration: pb.Configuration,
			Clean:         pb.Clean,
			Prebuilds:     pb.Prebuilds,
			Subs:          pb.Subs,
		})
	}
	out.PreOps = makeOps(p.PreOps)
	out.PostOps = makeOps(p.PostOps)
	return out, nil
}

func makeFlags(f plan.FlagSet) FlagsJSON {
	return FlagsJSON{
		Assembly: f.Assembly,
		Common:   f.Common,
		C:        f.C,
		CPP:      f.CPP,
		Link:     f.Link,
	}
}

func makeOps(ops []plan.Op) []OpJSON {
	if len(ops) == 0 {
		return nil
	}
	out := make([]OpJSON, 0, len(ops))
	for _, op := range ops {
		out = append(out, OpJSON{Command: op.Command, Result: op.Result})
	}
	return out
}

// JSON writes the plan as indented JSON.
func JSON(w io.Writer, p *plan.Plan, res *resolve.Result, document, configuration string) error {
	output, err := BuildPlanOutput(p, res, document, configuration)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
