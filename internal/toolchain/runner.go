package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes toolchain and shell commands on behalf of a build.
// Every call blocks until the command completes; the build inspects
// only the outcome, plus the dependency listing for compiles.
type Runner interface {
	// Probe asks the named compiler for its version, discarding output.
	Probe(cc string) error
	// Compile runs one compiler invocation producing obj and, on
	// success, returns the dependency listing the compiler emitted.
	Compile(name string, args []string, obj string) (string, error)
	// Run invokes the linker, archiver, or extractor.
	Run(name string, args []string) error
	// Shell runs a command line through the system shell and returns
	// its exit status.
	Shell(command string) (int, error)
}

// DepFilePath returns the path of the dependency listing the compiler
// writes next to an object file.
func DepFilePath(obj string) string {
	return strings.TrimSuffix(obj, ".o") + ".d"
}

// ExecRunner runs commands as real subprocesses.
type ExecRunner struct {
	// PrintCommands echoes each command line to stdout before running it.
	PrintCommands bool
}

func (r ExecRunner) Probe(cc string) error {
	return exec.Command(cc, "--version").Run()
}

func (r ExecRunner) Compile(name string, args []string, obj string) (string, error) {
	if err := r.run(name, args); err != nil {
		return "", err
	}
	// Assembly compiles emit no listing; a missing file means the
	// object depends only on its own source.
	data, err := os.ReadFile(DepFilePath(obj)) // #nosec G304 -- path is derived from the object just written
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read dependency listing: %w", err)
	}
	return string(data), nil
}

func (r ExecRunner) Run(name string, args []string) error {
	return r.run(name, args)
}

func (r ExecRunner) Shell(command string) (int, error) {
	if err := r.echo(command); err != nil {
		return 0, err
	}
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func (r ExecRunner) run(name string, args []string) error {
	if err := r.echo(name + " " + strings.Join(args, " ")); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	msg := strings.TrimSpace(stderr.String())
	if err != nil {
		if msg == "" {
			return err
		}
		return fmt.Errorf("%s: %s", name, msg)
	}
	if msg != "" {
		// Warnings survive a successful run.
		if _, printErr := fmt.Fprintln(os.Stderr, msg); printErr != nil {
			return fmt.Errorf("failed to print diagnostics: %w", printErr)
		}
	}
	return nil
}

func (r ExecRunner) echo(line string) error {
	if !r.PrintCommands {
		return nil
	}
	if _, err := fmt.Fprintln(os.Stdout, line); err != nil {
		return fmt.Errorf("failed to print command: %w", err)
	}
	return nil
}
