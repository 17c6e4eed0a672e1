package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate [path]",
	Short: "Print the build document that governs a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startDir := "."
		if len(args) > 0 && args[0] != "" {
			startDir = args[0]
		}
		proj, err := resolveProjectContext(startDir, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(proj.Dir, proj.Document))
		return nil
	},
}
