package planfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"anvil/internal/plan"
	"anvil/internal/resolve"
	"anvil/internal/toolchain"
	"anvil/internal/vars"
)

func samplePlan() (*plan.Plan, *resolve.Result) {
	p := &plan.Plan{
		Artifact:     "app",
		Extension:    "elf",
		FullName:     "app.elf",
		Optimization: "-O2",
		Debugging:    "-g",
		Flags: plan.FlagSet{
			Common: []string{"-Wextra"},
			C:      []string{"-std=c11"},
			Link:   []string{"--specs=nano.specs"},
		},
		Includes: []string{"inc"},
		Objects:  []string{"crt0.o"},
		Sources: []plan.SourceFile{
			{Path: "main.c", Filename: "main.c", Base: "main", Kind: plan.KindC},
			{Path: "boot.s", Filename: "boot.s", Base: "boot", Kind: plan.KindAssembly, Optimization: "-O3"},
		},
		PreOps:  []plan.Op{{Command: "./gen.sh"}},
		PostOps: []plan.Op{{Command: "./flash.sh", Result: 2}},
	}
	res := &resolve.Result{
		Toolchain: toolchain.Spec{Name: "arm", Prefix: "arm-none-eabi-", Available: true},
		Dict:      vars.Dict{"config": "Release", "target": "m4"},
	}
	return p, res
}

func TestJSON(t *testing.T) {
	p, res := samplePlan()

	var buf bytes.Buffer
	if err := JSON(&buf, p, res, "anvil.xml", "Release"); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output PlanOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}

	if output.Document != "anvil.xml" || output.Configuration != "Release" {
		t.Errorf("header = %s/%s", output.Document, output.Configuration)
	}
	if output.Toolchain != "arm" {
		t.Errorf("toolchain = %s, want arm", output.Toolchain)
	}
	if output.Artifact.FullName != "app.elf" || output.Artifact.Library {
		t.Errorf("artifact = %+v", output.Artifact)
	}
	if output.SourceCount != 2 || len(output.Sources) != 2 {
		t.Fatalf("sources = %d (count %d), want 2", len(output.Sources), output.SourceCount)
	}
	first := output.Sources[0]
	if first.Index != 0 || first.Kind != "c" || first.Object != "Release/src/main.o" {
		t.Errorf("first source = %+v", first)
	}
	second := output.Sources[1]
	if second.Kind != "assembly" || second.Optimization != "-O3" {
		t.Errorf("second source = %+v", second)
	}
	if len(output.PostOps) != 1 || output.PostOps[0].Result != 2 {
		t.Errorf("post ops = %+v", output.PostOps)
	}
	if output.Dict["target"] != "m4" {
		t.Errorf("dict = %+v", output.Dict)
	}
}

func TestJSON_OmitsEmptySections(t *testing.T) {
	p := &plan.Plan{
		Artifact: "util", FullName: "libutil.a", Library: true,
		Optimization: "-O0",
		Sources: []plan.SourceFile{
			{Path: "util.c", Filename: "util.c", Base: "util", Kind: plan.KindC},
		},
	}
	res := &resolve.Result{Toolchain: toolchain.Spec{Name: toolchain.Native}}

	var buf bytes.Buffer
	if err := JSON(&buf, p, res, "anvil.xml", "Debug"); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	for _, absent := range []string{"prebuilds", "pre_ops", "post_ops", "includes", "objects", "lflags"} {
		if strings.Contains(buf.String(), `"`+absent+`"`) {
			t.Errorf("output contains empty section %q:\n%s", absent, buf.String())
		}
	}
}

func TestPretty(t *testing.T) {
	p, res := samplePlan()

	var buf bytes.Buffer
	Pretty(&buf, p, res, "anvil.xml", "Release", PrettyOpts{})
	out := buf.String()

	for _, want := range []string{
		"app.elf (executable) from anvil.xml, configuration Release",
		"toolchain arm",
		"optimization -O2",
		"ccflags  -Wextra",
		"lflags   --specs=nano.specs",
		"includes inc",
		"objects  crt0.o",
		"c        main.c",
		"assembly boot.s (-O3)",
		"./flash.sh (expect 2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("color escapes present without Color option")
	}
}

func TestPretty_Library(t *testing.T) {
	p := &plan.Plan{
		Artifact: "util", FullName: "libutil.a", Library: true,
		Optimization: "-O0",
		Sources: []plan.SourceFile{
			{Path: "util.c", Filename: "util.c", Base: "util", Kind: plan.KindC},
		},
	}
	res := &resolve.Result{Toolchain: toolchain.Spec{Name: toolchain.Native}}

	var buf bytes.Buffer
	Pretty(&buf, p, res, "anvil.xml", "Release", PrettyOpts{})
	if !strings.Contains(buf.String(), "libutil.a (library)") {
		t.Errorf("library heading missing:\n%s", buf.String())
	}
}
