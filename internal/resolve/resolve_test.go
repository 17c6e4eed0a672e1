package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"anvil/internal/cond"
	"anvil/internal/document"
	"anvil/internal/toolchain"
	"anvil/internal/vars"
)

type stubRunner struct {
	probed   []string
	probeErr error
}

func (s *stubRunner) Probe(cc string) error {
	s.probed = append(s.probed, cc)
	return s.probeErr
}

func (s *stubRunner) Compile(name string, args []string, obj string) (string, error) {
	return "", nil
}

func (s *stubRunner) Run(name string, args []string) error { return nil }

func (s *stubRunner) Shell(command string) (int, error) { return 0, nil }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func seeded(t *testing.T, configuration string, subs ...string) vars.Dict {
	t.Helper()
	d := vars.Dict{}
	if err := Seed(d, configuration, subs); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSeed(t *testing.T) {
	d := vars.Dict{}
	if err := Seed(d, "Release", []string{"a:1", "b:x", "a:2"}); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	if d[ConfigKey] != "Release" {
		t.Errorf("config key = %q, want Release", d[ConfigKey])
	}
	if d[PrefixKey] != vars.Pending {
		t.Errorf("prefix key = %q, want pending sentinel", d[PrefixKey])
	}
	if d["a"] != "2" || d["b"] != "x" {
		t.Errorf("subs = a:%q b:%q, want a:2 b:x", d["a"], d["b"])
	}

	if err := Seed(vars.Dict{}, "Release", []string{"nocolon"}); err == nil {
		t.Error("Seed() accepted a pair without a colon")
	}
}

func TestResolve_SelectsAndSubstitutes(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="{name}.elf" type="executable">
    <dict key="name">demo</dict>
    <dict key="family">arm</dict>
    <dict key="tool">{family}-none-eabi-</dict>
    <configuration name="Release">
        <toolchain>native</toolchain>
        <dict key="level">-O2</dict>
    </configuration>
    <configuration name="Debug">
        <toolchain>native</toolchain>
        <dict key="level">-O0</dict>
    </configuration>
</project>`)

	r := &stubRunner{}
	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        r,
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := res.Root.Attr["artifact"]; got != "demo.elf" {
		t.Errorf("artifact attribute = %q, want demo.elf", got)
	}
	if res.Dict["tool"] != "arm-none-eabi-" {
		t.Errorf("reconciled tool = %q, want arm-none-eabi-", res.Dict["tool"])
	}
	if res.Dict["level"] != "-O2" {
		t.Errorf("level = %q, want the selected configuration's -O2", res.Dict["level"])
	}
	if cfgs := res.Root.FindAll("configuration"); len(cfgs) != 1 || cfgs[0] != res.Configuration {
		t.Errorf("active configurations = %d, want only the selected one", len(cfgs))
	}
	if !res.Toolchain.IsNative() || !res.Toolchain.Available {
		t.Errorf("toolchain = %+v, want available native", res.Toolchain)
	}
	if len(r.probed) != 0 {
		t.Errorf("native toolchain was probed: %v", r.probed)
	}
	if res.Dict[PrefixKey] != "" {
		t.Errorf("prefix key = %q, want empty for native", res.Dict[PrefixKey])
	}
}

func TestResolve_FalseConditionCullsBeforeMatching(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release" if="0">
        <toolchain>native</toolchain>
    </configuration>
</project>`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if !errors.Is(err, ErrConfigurationNotFound) {
		t.Errorf("Resolve() error = %v, want ErrConfigurationNotFound", err)
	}
}

func TestResolve_ConditionalSelectionAmongSameNames(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release" if="{target}==host">
        <toolchain>native</toolchain>
        <dict key="which">host</dict>
    </configuration>
    <configuration name="Release" if="{target}==cross">
        <toolchain>native</toolchain>
        <dict key="which">cross</dict>
    </configuration>
</project>`)

	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release", "target:cross"),
		Runner:        &stubRunner{},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Dict["which"] != "cross" {
		t.Errorf("which = %q, want cross", res.Dict["which"])
	}
}

func TestResolve_IndeterminateConfigurationCondition(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release" if="{target}==host">
        <toolchain>native</toolchain>
    </configuration>
</project>`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if !errors.Is(err, cond.ErrIndeterminate) {
		t.Errorf("Resolve() error = %v, want ErrIndeterminate", err)
	}
}

func TestResolve_NotFoundLeavesNoTrace(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Debug"><toolchain>native</toolchain></configuration>
    <configuration name="Test"><toolchain>native</toolchain></configuration>
</project>`)

	_, err := Resolve(Request{
		Document:      filepath.Join(dir, "anvil.xml"),
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if !errors.Is(err, ErrConfigurationNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrConfigurationNotFound", err)
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 1 || entries[0].Name() != "anvil.xml" {
		t.Errorf("project directory was touched: %v", entries)
	}
}

func TestResolve_CrossToolchain(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <dict key="cc">{ccprefix}gcc</dict>
    <configuration name="Release">
        <toolchain>cross</toolchain>
    </configuration>
    <toolchain name="cross">
        <compilerPath>/opt/cross/bin</compilerPath>
        <compilerPrefix>arm-none-eabi-</compilerPrefix>
    </toolchain>
</project>`)

	r := &stubRunner{}
	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        r,
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := "/opt/cross/bin/arm-none-eabi-"
	if res.Toolchain.CommandPrefix() != want {
		t.Errorf("command prefix = %q, want %q", res.Toolchain.CommandPrefix(), want)
	}
	if len(r.probed) != 1 || r.probed[0] != want+"gcc" {
		t.Errorf("probed = %v, want [%sgcc]", r.probed, want)
	}
	if res.Dict["cc"] != want+"gcc" {
		t.Errorf("deferred {ccprefix} value = %q, want %q", res.Dict["cc"], want+"gcc")
	}
}

func TestResolve_ProbeFailure(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release"><toolchain>cross</toolchain></configuration>
    <toolchain name="cross"><compilerPrefix>missing-</compilerPrefix></toolchain>
</project>`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{probeErr: errors.New("exit status 127")},
	})
	if !errors.Is(err, toolchain.ErrUnavailable) {
		t.Errorf("Resolve() error = %v, want ErrUnavailable", err)
	}
}

func TestResolve_MissingToolchainBlock(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release"><toolchain>armgcc</toolchain></configuration>
</project>`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if !errors.Is(err, ErrToolchainNotFound) {
		t.Errorf("Resolve() error = %v, want ErrToolchainNotFound", err)
	}
}

func TestResolve_NativeBlockIsNeverProbed(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <configuration name="Release"><toolchain>native</toolchain></configuration>
    <toolchain name="native">
        <compilerPath>/usr/lib/ccache</compilerPath>
    </toolchain>
</project>`)

	r := &stubRunner{probeErr: errors.New("should not be called")}
	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        r,
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(r.probed) != 0 {
		t.Errorf("native toolchain was probed: %v", r.probed)
	}
	if res.ToolchainNode == nil {
		t.Error("native block was not selected")
	}
	if res.Toolchain.CommandPrefix() != "/usr/lib/ccache/" {
		t.Errorf("command prefix = %q, want /usr/lib/ccache/", res.Toolchain.CommandPrefix())
	}
}

func TestResolve_IncludeSuppliesConfiguration(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "common.xml", `
<common>
    <dict key="level">-O2</dict>
    <configuration name="Release">
        <toolchain>native</toolchain>
    </configuration>
</common>`)
	doc := writeDoc(t, dir, "anvil.xml", fmt.Sprintf(`
<project artifact="demo" type="executable">
    <dict key="dir">%s</dict>
    <include>{dir}/common.xml</include>
</project>`, dir))

	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Configuration.Attr["name"] != "Release" {
		t.Errorf("selected configuration = %q, want the included Release", res.Configuration.Attr["name"])
	}
	if res.Dict["level"] != "-O2" {
		t.Errorf("level = %q, want -O2 from the include", res.Dict["level"])
	}
}

func TestResolve_DictFile(t *testing.T) {
	dir := t.TempDir()
	dicts := writeDoc(t, dir, "site.xml", `
<dicts>
    <dict key="vendor">acme</dict>
</dicts>`)
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="{vendor}-demo" type="executable">
    <configuration name="Release"><toolchain>native</toolchain></configuration>
</project>`)

	res, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		DictFile:      dicts,
		Runner:        &stubRunner{},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got := res.Root.Attr["artifact"]; got != "acme-demo" {
		t.Errorf("artifact = %q, want acme-demo", got)
	}
}

func TestResolve_UnreconcilableDictionary(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `
<project artifact="demo" type="executable">
    <dict key="a">{b}</dict>
    <dict key="b">{a}</dict>
    <configuration name="Release"><toolchain>native</toolchain></configuration>
</project>`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	var unresolved *vars.UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Resolve() error = %v, want UnresolvedError", err)
	}
	if len(unresolved.Keys) != 2 {
		t.Errorf("unresolved keys = %v, want both cycle members", unresolved.Keys)
	}
}

func TestResolve_MalformedDocument(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "anvil.xml", `<project artifact="x" type="executable">`)

	_, err := Resolve(Request{
		Document:      doc,
		Configuration: "Release",
		Dict:          seeded(t, "Release"),
		Runner:        &stubRunner{},
	})
	if !errors.Is(err, document.ErrParse) {
		t.Errorf("Resolve() error = %v, want ErrParse", err)
	}
}
