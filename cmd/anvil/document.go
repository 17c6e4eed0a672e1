package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"anvil/internal/buildpipeline"
)

const noDocumentMessage = "no anvil.xml found\nplease specify the document explicitly, e.g.:\n  anvil build -f path/to/build.xml"

// findProjectRoot walks up from startDir to the first directory holding
// either the default build document or a defaults file.
func findProjectRoot(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range []string{buildpipeline.DefaultDocument, defaultsFile} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return dir, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// projectContext is the resolved invocation target: where the build
// runs, which document drives it, and the project's defaults file if
// one exists.
type projectContext struct {
	Dir      string
	Document string
	Defaults *projectDefaults
}

// resolveProjectContext locates the project for one invocation. An
// explicitly named document wins; otherwise the project root is
// discovered by walking upward, and the defaults file may name the
// document.
func resolveProjectContext(startDir, document string) (projectContext, error) {
	if document != "" {
		abs, err := filepath.Abs(filepath.Join(startDir, document))
		if err != nil {
			return projectContext{}, err
		}
		if _, err := os.Stat(abs); err != nil {
			return projectContext{}, fmt.Errorf("document %s: %w", document, err)
		}
		dir := filepath.Dir(abs)
		defaults, _, err := loadDefaults(dir)
		if err != nil {
			return projectContext{}, err
		}
		return projectContext{Dir: dir, Document: filepath.Base(abs), Defaults: defaults}, nil
	}

	root, ok, err := findProjectRoot(startDir)
	if err != nil {
		return projectContext{}, err
	}
	if !ok {
		return projectContext{}, errors.New(noDocumentMessage)
	}
	defaults, _, err := loadDefaults(root)
	if err != nil {
		return projectContext{}, err
	}
	name := buildpipeline.DefaultDocument
	if defaults.defined("defaults", "document") {
		name = defaults.Defaults.Document
	}
	if _, err := os.Stat(filepath.Join(root, name)); err != nil {
		return projectContext{}, fmt.Errorf("document %s: %w", name, err)
	}
	return projectContext{Dir: root, Document: name, Defaults: defaults}, nil
}
