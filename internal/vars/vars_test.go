package vars

import (
	"errors"
	"testing"
)

func TestExpand(t *testing.T) {
	dict := Dict{
		"config": "Release",
		"board":  "f407",
		"cc":     Pending,
	}

	tests := []struct {
		name    string
		input   string
		mode    Mode
		want    string
		wantErr bool
	}{
		{name: "no references", input: "plain text", mode: Required, want: "plain text"},
		{name: "single reference", input: "{config}/src", mode: Required, want: "Release/src"},
		{name: "two references", input: "{config}-{board}", mode: Required, want: "Release-f407"},
		{name: "adjacent references", input: "{config}{board}", mode: Required, want: "Releasef407"},
		{name: "missing key optional", input: "a/{nope}/b", mode: Optional, want: "a/{nope}/b"},
		{name: "missing key required", input: "a/{nope}/b", mode: Required, wantErr: true},
		{name: "missing key final", input: "a/{nope}/b", mode: Final, wantErr: true},
		{name: "pending deferred optional", input: "{cc}gcc", mode: Optional, want: "{cc}gcc"},
		{name: "pending deferred required", input: "{cc}gcc", mode: Required, want: "{cc}gcc"},
		{name: "pending fatal final", input: "{cc}gcc", mode: Final, wantErr: true},
		{name: "unterminated brace kept", input: "ab{config", mode: Required, want: "ab{config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input, dict, tt.mode)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expand(%q) succeeded with %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpand_MissingKeyError(t *testing.T) {
	_, err := Expand("{absent}", Dict{}, Required)
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expand() error = %v, want MissingKeyError", err)
	}
	if missing.Key != "absent" {
		t.Errorf("missing key = %q, want %q", missing.Key, "absent")
	}
}

func TestExpand_IsIdempotentOnResolvedText(t *testing.T) {
	dict := Dict{"a": "one", "b": "two"}
	first, err := Expand("{a}/{b}/rest", dict, Required)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Expand(first, dict, Required)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("re-expansion changed resolved text: %q then %q", first, second)
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		dict     Dict
		want     Dict
		wantKeys []string
	}{
		{
			name: "forward and backward references",
			dict: Dict{"tool": "myTool", "path": "{root}/{tool}", "root": "opt"},
			want: Dict{"tool": "myTool", "path": "opt/myTool", "root": "opt"},
		},
		{
			name: "chained references",
			dict: Dict{"a": "{b}", "b": "{c}", "c": "x"},
			want: Dict{"a": "x", "b": "x", "c": "x"},
		},
		{
			name: "pending references survive",
			dict: Dict{"cc": Pending, "compile": "{cc}gcc -c"},
			want: Dict{"cc": Pending, "compile": "{cc}gcc -c"},
		},
		{
			name:     "cycle fails",
			dict:     Dict{"a": "{b}", "b": "{a}"},
			wantKeys: []string{"a", "b"},
		},
		{
			name:     "reference to unknown key fails",
			dict:     Dict{"a": "{ghost}"},
			wantKeys: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Reconcile(tt.dict)
			if len(tt.wantKeys) > 0 {
				var unresolved *UnresolvedError
				if !errors.As(err, &unresolved) {
					t.Fatalf("Reconcile() error = %v, want UnresolvedError", err)
				}
				if len(unresolved.Keys) != len(tt.wantKeys) {
					t.Fatalf("unresolved keys = %v, want %v", unresolved.Keys, tt.wantKeys)
				}
				for i, k := range tt.wantKeys {
					if unresolved.Keys[i] != k {
						t.Errorf("unresolved keys = %v, want %v", unresolved.Keys, tt.wantKeys)
						break
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			for k, v := range tt.want {
				if tt.dict[k] != v {
					t.Errorf("dict[%q] = %q, want %q", k, tt.dict[k], v)
				}
			}
		})
	}
}

func TestDict_CloneAndMerge(t *testing.T) {
	parent := Dict{"config": "Release", "board": "f407"}
	child := parent.Clone()
	child["config"] = "Debug"
	child["extra"] = "1"

	if parent["config"] != "Release" {
		t.Errorf("clone write leaked into parent: %q", parent["config"])
	}

	parent.Merge(child)
	if parent["config"] != "Debug" {
		t.Errorf("merge must overwrite: config = %q, want %q", parent["config"], "Debug")
	}
	if parent["extra"] != "1" {
		t.Errorf("merge missed new key: extra = %q, want %q", parent["extra"], "1")
	}
	if parent["board"] != "f407" {
		t.Errorf("merge clobbered unrelated key: board = %q", parent["board"])
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		input string
		key   string
		value string
		ok    bool
	}{
		{input: "target:x86", key: "target", value: "x86", ok: true},
		{input: "path:C:/tools", key: "path", value: "C:/tools", ok: true},
		{input: "empty:", key: "empty", value: "", ok: true},
		{input: "nocolon", ok: false},
	}

	for _, tt := range tests {
		key, value, ok := SplitPair(tt.input)
		if ok != tt.ok || key != tt.key || value != tt.value {
			t.Errorf("SplitPair(%q) = %q, %q, %v; want %q, %q, %v",
				tt.input, key, value, ok, tt.key, tt.value, tt.ok)
		}
	}
}
