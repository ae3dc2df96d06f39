package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information injected at build time via ldflags. Empty values
// fall back to the binary's embedded build info.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildDetails describes how the running binary was built.
type buildDetails struct {
	version string
	commit  string
	date    string
}

// resolveBuildDetails merges ldflags values with debug.ReadBuildInfo.
// Module-aware installs (go install ...@version) carry the version in
// build info; VCS stamping fills commit and date for source builds.
func resolveBuildDetails() buildDetails {
	d := buildDetails{version: version, commit: commit, date: date}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return d.withDefaults()
	}
	if d.version == "" {
		d.version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if d.commit == "" {
				d.commit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if d.date == "" {
				d.date = setting.Value
			}
		}
	}
	return d.withDefaults()
}

// withDefaults fills any field the build left blank.
func (d buildDetails) withDefaults() buildDetails {
	if d.version == "" {
		d.version = "(devel)"
	}
	if d.commit == "" {
		d.commit = "unknown"
	}
	if d.date == "" {
		d.date = "unknown"
	}
	return d
}

// shortRevision abbreviates a VCS revision to 7 characters.
func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// getVersion returns the version string shown in --version and reports.
func getVersion() string {
	return resolveBuildDetails().version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of cmsfreq.`,
		Run: func(cmd *cobra.Command, _ []string) {
			d := resolveBuildDetails()
			fmt.Fprintf(cmd.OutOrStdout(), "cmsfreq %s (commit %s, built %s)\n",
				d.version, d.commit, d.date)
		},
	}
}
