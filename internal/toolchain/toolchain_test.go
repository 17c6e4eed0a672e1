package toolchain

import (
	"errors"
	"testing"
)

type fakeRunner struct {
	probed   []string
	probeErr error
}

func (f *fakeRunner) Probe(cc string) error {
	f.probed = append(f.probed, cc)
	return f.probeErr
}

func (f *fakeRunner) Compile(name string, args []string, obj string) (string, error) {
	return "", nil
}

func (f *fakeRunner) Run(name string, args []string) error { return nil }

func (f *fakeRunner) Shell(command string) (int, error) { return 0, nil }

func TestSpec_CommandPrefix(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"path and prefix", Spec{Path: "/opt/gcc-arm/bin", Prefix: "arm-none-eabi-"}, "/opt/gcc-arm/bin/arm-none-eabi-"},
		{"path only", Spec{Path: "/usr/local/bin"}, "/usr/local/bin/"},
		{"prefix only", Spec{Prefix: "arm-none-eabi-"}, "arm-none-eabi-"},
		{"bare", Spec{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.CommandPrefix(); got != tt.want {
				t.Errorf("CommandPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbe(t *testing.T) {
	t.Run("responding compiler", func(t *testing.T) {
		r := &fakeRunner{}
		spec, err := Probe(r, Spec{Name: "arm", Prefix: "arm-none-eabi-"})
		if err != nil {
			t.Fatalf("Probe() error: %v", err)
		}
		if !spec.Available {
			t.Error("Probe() left Available false for a responding compiler")
		}
		if len(r.probed) != 1 || r.probed[0] != "arm-none-eabi-gcc" {
			t.Errorf("probed commands = %v, want [arm-none-eabi-gcc]", r.probed)
		}
	})

	t.Run("native skips the query", func(t *testing.T) {
		r := &fakeRunner{probeErr: errors.New("should not be called")}
		spec, err := Probe(r, Spec{Name: Native})
		if err != nil {
			t.Fatalf("Probe() error: %v", err)
		}
		if !spec.Available {
			t.Error("native toolchain not marked available")
		}
		if len(r.probed) != 0 {
			t.Errorf("native toolchain was probed: %v", r.probed)
		}
	})

	t.Run("silent compiler", func(t *testing.T) {
		r := &fakeRunner{probeErr: errors.New("exit status 127")}
		_, err := Probe(r, Spec{Name: "arm", Prefix: "missing-"})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Probe() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestDepFilePath(t *testing.T) {
	if got := DepFilePath("Release/src/main.o"); got != "Release/src/main.d" {
		t.Errorf("DepFilePath() = %q, want %q", got, "Release/src/main.d")
	}
}
