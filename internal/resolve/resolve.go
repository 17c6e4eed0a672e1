// Package resolve brings a parsed build document to its final form for
// one requested configuration. It merges includes, collects and
// reconciles the substitution dictionary, selects the configuration and
// toolchain, substitutes every remaining reference, and culls false
// conditionals.
package resolve

import (
	"fmt"

	"anvil/internal/cond"
	"anvil/internal/document"
	"anvil/internal/toolchain"
	"anvil/internal/vars"
)

// Reserved dictionary keys defined by every invocation.
const (
	// ConfigKey holds the requested configuration name.
	ConfigKey = "config"
	// PrefixKey holds the toolchain command prefix. Its value stays
	// pending until the toolchain probe completes.
	PrefixKey = "ccprefix"
)

// Seed applies the invocation-level dictionary entries: the requested
// configuration, the pending toolchain prefix, and key:value
// substitution pairs, in that order. Later pairs overwrite earlier ones.
func Seed(d vars.Dict, configuration string, subs []string) error {
	d[ConfigKey] = configuration
	d[PrefixKey] = vars.Pending
	for _, pair := range subs {
		key, value, ok := vars.SplitPair(pair)
		if !ok || key == "" {
			return fmt.Errorf("substitution %q is not key:value", pair)
		}
		d[key] = value
	}
	return nil
}

// Request names a document and the configuration to resolve it for.
// Dict carries the seeded dictionary and is mutated during resolution.
type Request struct {
	Document      string
	Configuration string
	Dict          vars.Dict
	DictFile      string
	Runner        toolchain.Runner
}

// Result is the resolved document state a build plan is extracted from.
// ToolchainNode is nil when the native toolchain has no block.
type Result struct {
	Root          *document.Node
	Configuration *document.Node
	ToolchainNode *document.Node
	Toolchain     toolchain.Spec
	Dict          vars.Dict
}

// Resolve runs the whole resolution pipeline over the document named by
// req. The tree is culled and substituted in place; the returned result
// shares req.Dict.
func Resolve(req Request) (*Result, error) {
	root, err := document.ParseFile(req.Document)
	if err != nil {
		return nil, err
	}
	d := req.Dict
	if d == nil {
		d = vars.Dict{}
	}
	if req.DictFile != "" {
		if err := loadDictFile(req.DictFile, d); err != nil {
			return nil, err
		}
	}

	// Root dict entries may gate the includes, and includes may carry
	// dict entries of their own, so the root is swept on both sides.
	if err := sweepDicts(root, d, sweepScope{}, sweepOpportunistic); err != nil {
		return nil, err
	}
	if err := resolveIncludes(root, d); err != nil {
		return nil, err
	}
	if err := sweepDicts(root, d, sweepScope{}, sweepOpportunistic); err != nil {
		return nil, err
	}

	cfg, err := selectConfiguration(root, req.Configuration, d)
	if err != nil {
		return nil, err
	}
	if err := sweepDicts(root, d, sweepScope{configuration: req.Configuration}, sweepOpportunistic); err != nil {
		return nil, err
	}
	tcName, err := toolchainName(cfg, d)
	if err != nil {
		return nil, err
	}
	tcNode, err := selectToolchain(root, tcName, d)
	if err != nil {
		return nil, err
	}
	if err := sweepDicts(root, d, sweepScope{toolchain: tcName}, sweepOpportunistic); err != nil {
		return nil, err
	}
	if err := vars.Reconcile(d); err != nil {
		return nil, err
	}

	spec, err := toolchainSpec(tcNode, tcName, d)
	if err != nil {
		return nil, err
	}
	spec, err = toolchain.Probe(req.Runner, spec)
	if err != nil {
		return nil, err
	}

	// The prefix is known now; values that deferred {ccprefix} resolve
	// on this second pass.
	d[PrefixKey] = spec.CommandPrefix()
	if err := vars.Reconcile(d); err != nil {
		return nil, err
	}

	if err := substituteTree(root, d); err != nil {
		return nil, err
	}
	if err := cullConditionals(root, d); err != nil {
		return nil, err
	}
	if err := sweepDicts(root, d, sweepScope{}, sweepStrict); err != nil {
		return nil, err
	}

	return &Result{
		Root:          root,
		Configuration: cfg,
		ToolchainNode: tcNode,
		Toolchain:     spec,
		Dict:          d,
	}, nil
}

// substituteTree replaces every remaining reference in the attributes
// and text of active nodes. The dictionary is fully reconciled here, so
// anything still unresolvable is an error.
func substituteTree(root *document.Node, d vars.Dict) error {
	return root.Walk(func(n *document.Node) error {
		for k, v := range n.Attr {
			out, err := vars.Expand(v, d, vars.Final)
			if err != nil {
				return fmt.Errorf("<%s> %s: %w", n.Tag, k, err)
			}
			n.Attr[k] = out
		}
		out, err := vars.Expand(n.Text, d, vars.Final)
		if err != nil {
			return fmt.Errorf("<%s>: %w", n.Tag, err)
		}
		n.Text = out
		return nil
	})
}

// cullConditionals evaluates the now-literal if attributes across the
// whole tree and culls the nodes whose conditions are false.
func cullConditionals(n *document.Node, d vars.Dict) error {
	if !n.Active() {
		return nil
	}
	ok, err := cond.Holds(n, d)
	if err != nil {
		return err
	}
	if !ok {
		n.Cull()
		return nil
	}
	for _, c := range n.Children {
		if err := cullConditionals(c, d); err != nil {
			return err
		}
	}
	return nil
}
