package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"anvil/internal/buildpipeline"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [flags] [path]",
	Short: "Remove a configuration's build output",
	Long:  "Remove the output directory of the named build configuration, objects and artifact included.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	configuration, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	document, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	proj, err := resolveProjectContext(startDir, document)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("config") && proj.Defaults.defined("defaults", "configuration") {
		configuration = proj.Defaults.Defaults.Configuration
	}
	if configuration == "" {
		configuration = buildpipeline.DefaultConfiguration
	}

	target := filepath.Join(proj.Dir, configuration)
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(os.Stdout, "nothing to clean for %s\n", configuration)
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", target, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove %q: %w", target, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "removed %s\n", target)
	return nil
}

func init() {
	cleanCmd.Flags().StringP("config", "g", "", "build configuration to clean (default Release)")
	cleanCmd.Flags().StringP("file", "f", "", "build document to use (default anvil.xml, discovered upward)")
}
