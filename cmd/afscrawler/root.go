package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/afscrawler/internal/log"
)

// NewRootCmd creates the root command for afscrawler.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "afscrawler",
		Short: "Crawler for student accommodation listings",
		Long: `afscrawler collects student accommodation listings from
accommodationforstudents.com.

It reads the Next.js build identifier from the start page, walks the
search-results pages of each target location and fetches every listing
through the site's JSON data API. Records are exported as one JSON array
and, unless disabled, stored in a local SQLite database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .afscrawler in current or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a local or persistent bool flag, defaulting to false.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}

// getStringFlag reads a local or persistent string flag, defaulting to "".
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// newLogger creates the secure logger selected by the log flags.
func newLogger(w io.Writer, verbose, jsonLog bool) *slog.Logger {
	if jsonLog {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}
