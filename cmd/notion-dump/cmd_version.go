/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toothbrush/notion-dump/notion"
)

var versionUsage = strings.TrimSpace(`
Show version information
`)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: versionUsage,
	Long:  versionUsage,
	RunE:  versionRun,
	Args:  cobra.ExactArgs(0),
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var (
	// Version is the module version when built with "go install url/tool@version", otherwise
	// "(devel)".  Can be overridden with -ldflags.
	Version = "unknown"
	// Revision, LastCommit and DirtyBuild come from the vcs.* build settings.
	Revision   = "unknown"
	LastCommit time.Time
	DirtyBuild = true
)

func shortVersion(info *debug.BuildInfo) string {
	if Version == "unknown" && info.Main.Version != "" {
		Version = info.Main.Version
	}
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			Revision = kv.Value
		case "vcs.time":
			LastCommit, _ = time.Parse(time.RFC3339, kv.Value)
		case "vcs.modified":
			DirtyBuild = kv.Value == "true"
		}
	}

	parts := []string{}
	if Version != "unknown" && Version != "(devel)" {
		parts = append(parts, Version)
	}
	if Revision != "unknown" && Revision != "" {
		parts = append(parts, "rev", Revision)
		if DirtyBuild {
			parts = append(parts, "dirty")
		}
	}
	if len(parts) == 0 {
		return "devel"
	}
	return strings.Join(parts, "-")
}

func versionRun(cmd *cobra.Command, args []string) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("cmd_version: could not read build info")
	}

	fmt.Printf("notion-dump version %s\n", shortVersion(info))
	if !LastCommit.IsZero() {
		fmt.Printf("  committed:   %s\n", LastCommit.Format(time.RFC3339))
	}
	fmt.Printf("  go:          %s\n", info.GoVersion)
	fmt.Printf("  notion api:  %s\n", notion.APIVersion)
	return nil
}
