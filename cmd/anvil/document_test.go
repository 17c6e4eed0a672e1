package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveProjectContext_WalkUp(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"anvil.xml":           "<project/>",
		"src/drivers/keep.md": "",
	})

	proj, err := resolveProjectContext(filepath.Join(root, "src", "drivers"), "")
	if err != nil {
		t.Fatalf("resolveProjectContext: %v", err)
	}
	if proj.Dir != root || proj.Document != "anvil.xml" {
		t.Errorf("resolved %s/%s, want %s/anvil.xml", proj.Dir, proj.Document, root)
	}
}

func TestResolveProjectContext_Missing(t *testing.T) {
	if _, err := resolveProjectContext(t.TempDir(), ""); err == nil {
		t.Error("empty tree did not report a missing document")
	}
}

func TestResolveProjectContext_ExplicitDocument(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"board.xml": "<project/>"})

	proj, err := resolveProjectContext(dir, "board.xml")
	if err != nil {
		t.Fatalf("resolveProjectContext: %v", err)
	}
	if proj.Dir != dir || proj.Document != "board.xml" {
		t.Errorf("resolved %s/%s, want %s/board.xml", proj.Dir, proj.Document, dir)
	}

	if _, err := resolveProjectContext(dir, "absent.xml"); err == nil {
		t.Error("missing explicit document not reported")
	}
}

func TestResolveProjectContext_DefaultsNameTheDocument(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"anvil.toml": "[defaults]\ndocument = \"board.xml\"\n",
		"board.xml":  "<project/>",
		"sub/x.c":    "",
	})

	proj, err := resolveProjectContext(filepath.Join(root, "sub"), "")
	if err != nil {
		t.Fatalf("resolveProjectContext: %v", err)
	}
	if proj.Document != "board.xml" {
		t.Errorf("document = %s, want board.xml", proj.Document)
	}
	if proj.Defaults == nil {
		t.Fatal("defaults not carried in the context")
	}

	// A defaults file pointing at a document that does not exist is an
	// error, not a silent fallback.
	writeTree(t, root, map[string]string{
		"anvil.toml": "[defaults]\ndocument = \"gone.xml\"\n",
	})
	if _, err := resolveProjectContext(filepath.Join(root, "sub"), ""); err == nil {
		t.Error("dangling document default not reported")
	}
}
