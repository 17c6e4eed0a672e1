package resolve

import (
	"errors"
	"fmt"
	"strings"

	"anvil/internal/cond"
	"anvil/internal/document"
	"anvil/internal/vars"
)

// Tags with reserved meaning during resolution.
const (
	tagConfiguration = "configuration"
	tagToolchain     = "toolchain"
	tagDict          = "dict"
	tagDicts         = "dicts"
	tagInclude       = "include"
)

// sweepMode controls what a dict sweep does with a condition it cannot
// evaluate yet.
type sweepMode int

const (
	// sweepOpportunistic skips the entry; a later sweep retries it.
	sweepOpportunistic sweepMode = iota
	// sweepStrict fails the resolution.
	sweepStrict
)

// sweepScope names the configuration and toolchain blocks a sweep may
// descend into. Blocks whose name is not requested are never entered,
// which keeps their dict entries out of the dictionary.
type sweepScope struct {
	configuration string
	toolchain     string
}

// sweepDicts collects the direct dict children of the root and of the
// scoped configuration/toolchain blocks into d. Values are stored raw;
// reconciliation resolves references between them later.
func sweepDicts(root *document.Node, d vars.Dict, scope sweepScope, mode sweepMode) error {
	for _, child := range root.Children {
		if !child.Active() {
			continue
		}
		switch child.Tag {
		case tagConfiguration:
			if scope.configuration == "" || child.Attr["name"] != scope.configuration {
				continue
			}
			if err := sweepDicts(child, d, sweepScope{}, mode); err != nil {
				return err
			}
		case tagToolchain:
			if scope.toolchain == "" || child.Attr["name"] != scope.toolchain {
				continue
			}
			if err := sweepDicts(child, d, sweepScope{}, mode); err != nil {
				return err
			}
		case tagDict:
			if err := collectDict(child, d, mode); err != nil {
				return err
			}
		}
	}
	return nil
}

func collectDict(n *document.Node, d vars.Dict, mode sweepMode) error {
	ok, err := cond.Holds(n, d)
	if err != nil {
		if mode == sweepOpportunistic && errors.Is(err, cond.ErrIndeterminate) {
			return nil
		}
		return fmt.Errorf("dict entry: %w", err)
	}
	if !ok {
		n.Cull()
		return nil
	}
	key := n.Attr["key"]
	if key == "" {
		return fmt.Errorf("%w: dict entry without a key attribute", document.ErrParse)
	}
	if n.Text == "" {
		return fmt.Errorf("%w: dict entry %q without a value", document.ErrParse, key)
	}
	d[key] = n.Text
	n.Consume()
	return nil
}

// loadDictFile folds a dictionary-only document into d. The file's root
// must carry the reserved dicts tag.
func loadDictFile(path string, d vars.Dict) error {
	root, err := document.ParseFile(path)
	if err != nil {
		return err
	}
	if root.Tag != tagDicts {
		return fmt.Errorf("%w: dictionary file %s: root must be <%s>", document.ErrParse, path, tagDicts)
	}
	if err := foldDicts(root, d); err != nil {
		return fmt.Errorf("dictionary file %s: %w", path, err)
	}
	return nil
}

// foldDicts collects every dict descendant of a dicts-rooted fragment.
// Entries must be fully literal; conditions, if present, must therefore
// be evaluable on the spot.
func foldDicts(n *document.Node, d vars.Dict) error {
	if n.State == document.StateCulled {
		return nil
	}
	if n.Tag == tagDict && n.Active() {
		if err := collectLiteralDict(n, d); err != nil {
			return err
		}
		if n.State == document.StateCulled {
			return nil
		}
	}
	for _, c := range n.Children {
		if err := foldDicts(c, d); err != nil {
			return err
		}
	}
	return nil
}

func collectLiteralDict(n *document.Node, d vars.Dict) error {
	if strings.Contains(n.Attr["key"], "{") ||
		strings.Contains(n.Text, "{") ||
		strings.Contains(n.Attr["if"], "{") {
		return fmt.Errorf("%w: dict entry %q is not literal", document.ErrParse, n.Attr["key"])
	}
	return collectDict(n, d, sweepStrict)
}
