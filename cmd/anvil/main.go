package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"anvil/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Declarative build tool for C, C++ and assembly projects",
	Long:  `Anvil compiles and links a project as described by its XML build document.`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "write build trace events to this file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "phase", "build trace verbosity (off|phase|detail)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
