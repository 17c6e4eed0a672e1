package resolve

import (
	"errors"
	"fmt"
	"strings"

	"anvil/internal/cond"
	"anvil/internal/document"
	"anvil/internal/toolchain"
	"anvil/internal/vars"
)

// ErrConfigurationNotFound reports that no active configuration block
// matches the requested name.
var ErrConfigurationNotFound = errors.New("configuration not found")

// ErrToolchainNotFound reports a configuration naming a toolchain that
// no block declares, or declaring its toolchain reference badly.
var ErrToolchainNotFound = errors.New("toolchain not found")

// selectConfiguration picks the configuration block matching name and
// culls every other one. Conditions on configuration blocks must be
// decidable here; an undecidable one cannot be culled safely.
func selectConfiguration(root *document.Node, name string, d vars.Dict) (*document.Node, error) {
	var selected *document.Node
	for _, child := range root.Children {
		if !child.Active() || child.Tag != tagConfiguration {
			continue
		}
		ok, err := cond.Holds(child, d)
		if err != nil {
			return nil, fmt.Errorf("configuration %q: %w", child.Attr["name"], err)
		}
		if !ok {
			child.Cull()
			continue
		}
		if selected == nil && child.Attr["name"] == name {
			selected = child
			continue
		}
		child.Cull()
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigurationNotFound, name)
	}
	return selected, nil
}

// toolchainName reads the toolchain the selected configuration binds.
func toolchainName(cfg *document.Node, d vars.Dict) (string, error) {
	refs := cfg.FindAll(tagToolchain)
	if len(refs) != 1 {
		return "", fmt.Errorf("%w: configuration %q must name exactly one toolchain, has %d",
			ErrToolchainNotFound, cfg.Attr["name"], len(refs))
	}
	name, err := vars.Expand(refs[0].Text, d, vars.Required)
	if err != nil {
		return "", fmt.Errorf("toolchain name: %w", err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: configuration %q names no toolchain", ErrToolchainNotFound, cfg.Attr["name"])
	}
	if strings.Contains(name, "{") {
		return "", fmt.Errorf("toolchain name %q: %w", name, cond.ErrIndeterminate)
	}
	return name, nil
}

// selectToolchain picks the toolchain block matching name and culls the
// rest. The reserved native toolchain needs no block; any other name
// without one is an error.
func selectToolchain(root *document.Node, name string, d vars.Dict) (*document.Node, error) {
	var selected *document.Node
	for _, child := range root.Children {
		if !child.Active() || child.Tag != tagToolchain {
			continue
		}
		ok, err := cond.Holds(child, d)
		if err != nil {
			return nil, fmt.Errorf("toolchain %q: %w", child.Attr["name"], err)
		}
		if !ok {
			child.Cull()
			continue
		}
		if selected == nil && child.Attr["name"] == name {
			selected = child
			continue
		}
		child.Cull()
	}
	if selected == nil && name != toolchain.Native {
		return nil, fmt.Errorf("%w: %s", ErrToolchainNotFound, name)
	}
	return selected, nil
}

// toolchainSpec derives the command spec from a selected block. A nil
// block yields the bare spec of the native toolchain.
func toolchainSpec(node *document.Node, name string, d vars.Dict) (toolchain.Spec, error) {
	spec := toolchain.Spec{Name: name}
	if node == nil {
		return spec, nil
	}
	var err error
	if spec.Path, err = elementText(node, "compilerPath", d); err != nil {
		return toolchain.Spec{}, err
	}
	if spec.Prefix, err = elementText(node, "compilerPrefix", d); err != nil {
		return toolchain.Spec{}, err
	}
	return spec, nil
}

// elementText returns the substituted text of the first active child
// with the given tag, or "" when there is none. The text must come out
// literal; toolchain location cannot stay deferred.
func elementText(n *document.Node, tag string, d vars.Dict) (string, error) {
	text, ok := n.ChildText(tag)
	if !ok {
		return "", nil
	}
	out, err := vars.Expand(text, d, vars.Required)
	if err != nil {
		return "", fmt.Errorf("%s: %w", tag, err)
	}
	if strings.Contains(out, "{") {
		return "", fmt.Errorf("%s: %w", tag, &vars.UnresolvedError{Keys: vars.References(out)})
	}
	return out, nil
}
