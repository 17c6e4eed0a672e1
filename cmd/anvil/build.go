// Package main implements the anvil CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anvil/internal/buildpipeline"
	"anvil/internal/toolchain"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Build the project described by its build document",
	Long: "Build a project from its XML build document. The document is found by\n" +
		"walking up from the given path (default: the current directory), and\n" +
		"defaults may be supplied by an anvil.toml next to it.",
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	configuration, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	clean, err := cmd.Flags().GetBool("clean")
	if err != nil {
		return err
	}
	prebuilds, err := cmd.Flags().GetBool("prebuilds")
	if err != nil {
		return err
	}
	document, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	singleFile, err := cmd.Flags().GetString("one")
	if err != nil {
		return err
	}
	subs, err := cmd.Flags().GetStringArray("sub")
	if err != nil {
		return err
	}
	dictFile, err := cmd.Flags().GetString("dict")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
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

	// File defaults fill in whatever the command line left untouched.
	defaults := proj.Defaults
	if !cmd.Flags().Changed("config") && defaults.defined("defaults", "configuration") {
		configuration = defaults.Defaults.Configuration
	}
	if !cmd.Flags().Changed("prebuilds") && defaults.defined("defaults", "prebuilds") {
		prebuilds = defaults.Defaults.Prebuilds
	}
	if !cmd.Flags().Changed("print-commands") && defaults.defined("defaults", "print_commands") {
		printCommands = defaults.Defaults.PrintCommands
	}
	if !cmd.Flags().Changed("ui") && defaults.defined("defaults", "ui") {
		uiValue = defaults.Defaults.UI
	}
	subs = append(defaults.subPairs(), subs...)
	if configuration == "" {
		configuration = buildpipeline.DefaultConfiguration
	}

	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	cleanupProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProfiling()

	tracer, cleanupTracing, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTracing()

	if !quiet {
		fmt.Fprintf(os.Stdout, "building %s (%s) in %s\n", proj.Document, configuration, proj.Dir)
	}

	req := buildpipeline.Request{
		Dir:           proj.Dir,
		Document:      proj.Document,
		Configuration: configuration,
		Clean:         clean,
		Prebuilds:     prebuilds,
		SingleFile:    singleFile,
		Subs:          subs,
		DictFile:      dictFile,
		Runner:        &toolchain.ExecRunner{PrintCommands: printCommands},
	}
	var traceSink *buildpipeline.TraceSink
	if tracer.Enabled() {
		traceSink = buildpipeline.NewTraceSink(tracer, "build:"+proj.Document)
		req.Progress = traceSink
	}

	var res buildpipeline.Result
	if shouldUseTUI(uiModeValue) {
		res, err = runBuildWithUI(cmd.Context(), "anvil build", req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	if traceSink != nil {
		traceSink.Finish(buildTraceDetail(res, err))
	}
	if showTimings {
		printStageTimings(os.Stdout, res.Timings)
	}
	if err != nil {
		return err
	}

	switch {
	case singleFile != "":
		fmt.Fprintf(os.Stdout, "compiled %s\n", singleFile)
	case res.Artifact != "":
		fmt.Fprintf(os.Stdout, "built %s (%d compiled)\n", res.Artifact, res.Compiled)
	default:
		fmt.Fprintln(os.Stdout, "up to date")
	}
	return nil
}

// buildTraceDetail summarizes a finished build for the root trace span.
func buildTraceDetail(res buildpipeline.Result, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case res.Artifact != "":
		return fmt.Sprintf("%s, %d compiled", res.Artifact, res.Compiled)
	default:
		return "up to date"
	}
}

func init() {
	buildCmd.Flags().StringP("config", "g", "", "build configuration named in the document (default Release)")
	buildCmd.Flags().BoolP("clean", "c", false, "clean before building")
	buildCmd.Flags().BoolP("prebuilds", "p", false, "build dependent projects first")
	buildCmd.Flags().StringP("file", "f", "", "build document to use (default anvil.xml, discovered upward)")
	buildCmd.Flags().StringP("one", "o", "", "compile just the named source file")
	buildCmd.Flags().StringArrayP("sub", "s", nil, "substitution pair key:value (repeatable)")
	buildCmd.Flags().StringP("dict", "i", "", "XML dictionary file to preload")
	buildCmd.Flags().Bool("print-commands", false, "print tool command lines")
	buildCmd.Flags().String("ui", "auto", "progress interface (auto|on|off)")
}
