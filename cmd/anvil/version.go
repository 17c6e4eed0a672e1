package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"anvil/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show anvil build fingerprints",
	RunE:  runVersion,
}

// buildInfo is the release metadata stamped in at link time. Fields the
// invocation did not ask for stay empty and drop out of the JSON form.
type buildInfo struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	showHash, err := cmd.Flags().GetBool("hash")
	if err != nil {
		return err
	}
	showMessage, err := cmd.Flags().GetBool("message")
	if err != nil {
		return err
	}
	showDate, err := cmd.Flags().GetBool("date")
	if err != nil {
		return err
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}

	info := buildInfo{Tool: "anvil", Version: strings.TrimSpace(version.Version)}
	if info.Version == "" {
		info.Version = "dev"
	}
	if showHash || full {
		info.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if showMessage || full {
		info.GitMessage = valueOrUnknown(version.GitMessage)
	}
	if showDate || full {
		info.BuildDate = valueOrUnknown(version.BuildDate)
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "pretty":
		printVersion(cmd.OutOrStdout(), info)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func printVersion(out io.Writer, info buildInfo) {
	fmt.Fprintf(out, "anvil %s\n", info.Version)
	if info.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", info.GitCommit)
	}
	if info.GitMessage != "" {
		fmt.Fprintf(out, "message: %s\n", info.GitMessage)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", info.BuildDate)
	}
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("message", false, "include git commit message")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
