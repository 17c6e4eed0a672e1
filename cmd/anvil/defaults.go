package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// projectDefaults carries optional per-project defaults read from
// anvil.toml next to the build document. Command-line flags that were
// set explicitly always win over these.
type projectDefaults struct {
	Defaults defaultsTable     `toml:"defaults"`
	Subs     map[string]string `toml:"subs"`

	meta toml.MetaData
}

type defaultsTable struct {
	Configuration string `toml:"configuration"`
	Document      string `toml:"document"`
	Prebuilds     bool   `toml:"prebuilds"`
	PrintCommands bool   `toml:"print_commands"`
	UI            string `toml:"ui"`
}

const defaultsFile = "anvil.toml"

func loadDefaults(dir string) (*projectDefaults, bool, error) {
	path := filepath.Join(dir, defaultsFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	var cfg projectDefaults
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg.meta = meta
	return &cfg, true, nil
}

// defined reports whether the given key path appeared in the file, so
// an explicit false or empty value is distinguishable from an absent one.
func (d *projectDefaults) defined(keys ...string) bool {
	return d != nil && d.meta.IsDefined(keys...)
}

// subPairs returns the [subs] table as key:value pairs in key order.
// They seed the dictionary before any command-line pairs, so the
// command line wins on conflicts.
func (d *projectDefaults) subPairs() []string {
	if d == nil || len(d.Subs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.Subs))
	for k := range d.Subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+d.Subs[k])
	}
	return pairs
}
