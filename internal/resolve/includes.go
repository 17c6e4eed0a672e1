package resolve

import (
	"fmt"
	"strings"

	"anvil/internal/cond"
	"anvil/internal/document"
	"anvil/internal/vars"
)

// Included fragments may contribute include entries of their own, so
// the root is rescanned until a pass finds none. The cap turns include
// cycles into an error.
const maxIncludePasses = 10

// resolveIncludes merges every include child of the root into the tree
// or, for dicts-rooted targets, into the dictionary. Include conditions
// must be decidable now; the material they gate shapes everything that
// follows.
func resolveIncludes(root *document.Node, d vars.Dict) error {
	for pass := 0; pass < maxIncludePasses; pass++ {
		pending := root.FindAll(tagInclude)
		if len(pending) == 0 {
			return nil
		}
		for _, inc := range pending {
			if err := mergeInclude(root, inc, d); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: includes still unresolved after %d passes", document.ErrParse, maxIncludePasses)
}

func mergeInclude(root, inc *document.Node, d vars.Dict) error {
	ok, err := cond.Holds(inc, d)
	if err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if !ok {
		inc.Cull()
		return nil
	}
	path, err := vars.Expand(inc.Text, d, vars.Required)
	if err != nil {
		return fmt.Errorf("include path %q: %w", inc.Text, err)
	}
	if strings.Contains(path, "{") {
		return fmt.Errorf("include path %q: %w", inc.Text, &vars.UnresolvedError{Keys: vars.References(path)})
	}
	frag, err := document.ParseFile(path)
	if err != nil {
		return err
	}
	if frag.Tag == tagDicts {
		if err := foldDicts(frag, d); err != nil {
			return fmt.Errorf("include %s: %w", path, err)
		}
	} else {
		for _, child := range frag.Children {
			root.Children = append(root.Children, child.Clone())
		}
	}
	inc.Consume()
	return nil
}
