package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/afscrawler/internal/config"
	"github.com/nao1215/afscrawler/internal/crawler"
	"github.com/nao1215/afscrawler/internal/database"
	"github.com/nao1215/afscrawler/internal/report"
)

// Export formats.
const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatText     = "text"
)

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown format: use json, markdown or text")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records of a previous crawl",
		Long: `Export reads the records of a crawl run from the SQLite database and
writes them as JSON, Markdown or plain text.

Without --run the most recent run is exported.

Examples:
  # Export the latest run as JSON to stdout
  afscrawler export

  # Write a Markdown summary of a specific run to a file
  afscrawler export --run 3f0c... --format markdown -o listings.md

  # List stored runs
  afscrawler export --list

  # Show requests that failed in the latest run
  afscrawler export --failed`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().String("run", "", "Run ID to export (default: latest run)")
	cmd.Flags().StringP("format", "f", formatJSON, "Output format: json, markdown or text")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().String("storage-dir", "", "Directory holding the database (default: XDG data directory)")
	cmd.Flags().BoolP("list", "l", false, "List stored runs")
	cmd.Flags().Bool("failed", false, "List failed requests of the run")

	return cmd
}

// exportOptions are the parsed export flags.
type exportOptions struct {
	runID      string
	format     string
	output     string
	storageDir string
	list       bool
	failed     bool
}

func parseExportOptions(cmd *cobra.Command) (exportOptions, error) {
	var (
		opts exportOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.runID, err = flags.GetString("run"); err != nil {
		return opts, err
	}
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return opts, err
	}
	if opts.storageDir, err = flags.GetString("storage-dir"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.failed, err = flags.GetBool("failed"); err != nil {
		return opts, err
	}

	switch opts.format {
	case formatJSON, formatMarkdown, formatText:
	default:
		return opts, fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}

	if opts.storageDir == "" {
		cfg, err := config.Load(getStringFlag(cmd, "config"))
		if err != nil {
			return opts, fmt.Errorf("failed to load config file: %w", err)
		}
		opts.storageDir = cfg.StorageDir
	}
	return opts, nil
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseExportOptions(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return runExport(ctx, opts, cmd.OutOrStdout())
}

// runExport writes the requested run, run list or failure list.
func runExport(ctx context.Context, opts exportOptions, stdout io.Writer) (err error) {
	store, err := database.Open(opts.storageDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if opts.list {
		return listRuns(ctx, store, stdout)
	}

	runID := opts.runID
	if runID == "" {
		if runID, err = store.LatestRunID(ctx); err != nil {
			return err
		}
	}

	out := stdout
	if opts.output != "" {
		f, err := createOutputFile(opts.output)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		out = f
	}

	if opts.failed {
		return listFailedRequests(ctx, store, runID, out)
	}

	records, err := store.ListProperties(ctx, runID)
	if err != nil {
		return err
	}

	var w report.Writer
	switch opts.format {
	case formatMarkdown:
		w = report.NewMarkdownWriter(out)
	case formatText:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	default:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	}
	_, err = w.Write(records)
	return err
}

// createOutputFile creates path and its parent directories.
func createOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

func listRuns(ctx context.Context, store *database.Store, out io.Writer) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-20s  %-10s  %s\n", "RUN", "STARTED", "STATUS", "RECORDS")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %-10s  %d\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.Status, r.Properties)
	}
	return nil
}

func listFailedRequests(ctx context.Context, store *database.Store, runID string, out io.Writer) error {
	reqs, err := store.ListRequests(ctx, runID, crawler.StateFailed)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintf(out, "No failed requests in run %s.\n", runID)
		return nil
	}
	for _, r := range reqs {
		fmt.Fprintf(out, "[%s] %s (retries: %d)\n    %s\n", r.Label, r.URL, r.RetryCount, r.Error)
	}
	return nil
}
