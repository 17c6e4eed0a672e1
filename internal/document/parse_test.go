package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `<?xml version="1.0"?>
<project artifact="app.elf" type="executable">
	<!-- build variants -->
	<dict key="board">f407</dict>
	<configuration name="Release">
		<optimization> -O2 </optimization>
	</configuration>
</project>`

	root, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if root.Tag != "project" {
		t.Errorf("root tag = %q, want %q", root.Tag, "project")
	}
	if root.Attr["artifact"] != "app.elf" {
		t.Errorf("artifact = %q, want %q", root.Attr["artifact"], "app.elf")
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2 (comments must be dropped)", len(root.Children))
	}
	if root.Children[0].Attr["key"] != "board" || root.Children[0].Text != "f407" {
		t.Errorf("dict entry = %q:%q, want board:f407", root.Children[0].Attr["key"], root.Children[0].Text)
	}
	opt := root.Children[1].Find("optimization")
	if opt == nil {
		t.Fatal("optimization child missing")
	}
	if opt.Text != "-O2" {
		t.Errorf("text not trimmed: got %q, want %q", opt.Text, "-O2")
	}
	if root.State != StateActive {
		t.Errorf("parsed nodes must start active, got %v", root.State)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed element", input: `<project><dict key="a">1</project>`},
		{name: "empty input", input: ``},
		{name: "text only", input: `not xml at all`},
		{name: "two roots", input: `<a></a><b></b>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("Parse() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anvil.xml")
	content := `<project artifact="lib" type="library"><sources><file path="a.c"/></sources></project>`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	root, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	srcs := root.Find("sources")
	if srcs == nil || len(srcs.FindAll("file")) != 1 {
		t.Error("parsed tree missing sources/file entry")
	}

	if _, err := ParseFile(filepath.Join(dir, "absent.xml")); !errors.Is(err, ErrParse) {
		t.Errorf("ParseFile() on missing file = %v, want ErrParse", err)
	}
}
