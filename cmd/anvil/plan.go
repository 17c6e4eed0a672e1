package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anvil/internal/buildpipeline"
	"anvil/internal/planfmt"
)

var planCmd = &cobra.Command{
	Use:   "plan [flags] [path]",
	Short: "Show what a build would do without running it",
	Long: "Resolve the build document for a configuration and print the resulting\n" +
		"plan: artifact, flags, sources and their objects, dependent projects,\n" +
		"and pre/post commands.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	configuration, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	document, err := cmd.Flags().GetString("file")
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
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
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
	subs = append(proj.Defaults.subPairs(), subs...)
	if configuration == "" {
		configuration = buildpipeline.DefaultConfiguration
	}

	res, p, err := buildpipeline.Inspect(buildpipeline.Request{
		Dir:           proj.Dir,
		Document:      proj.Document,
		Configuration: configuration,
		Subs:          subs,
		DictFile:      dictFile,
	})
	if err != nil {
		return err
	}

	if format == "json" {
		return planfmt.JSON(cmd.OutOrStdout(), p, res, proj.Document, configuration)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	planfmt.Pretty(cmd.OutOrStdout(), p, res, proj.Document, configuration, planfmt.PrettyOpts{Color: useColor})
	return nil
}

func init() {
	planCmd.Flags().StringP("config", "g", "", "build configuration named in the document (default Release)")
	planCmd.Flags().StringP("file", "f", "", "build document to use (default anvil.xml, discovered upward)")
	planCmd.Flags().StringArrayP("sub", "s", nil, "substitution pair key:value (repeatable)")
	planCmd.Flags().StringP("dict", "i", "", "XML dictionary file to preload")
	planCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
