package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/afscrawler/internal/config"
	"github.com/nao1215/afscrawler/internal/crawler"
	"github.com/nao1215/afscrawler/internal/database"
	"github.com/nao1215/afscrawler/internal/dataset"
	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
	"github.com/nao1215/afscrawler/internal/pipeline"
	"github.com/nao1215/afscrawler/internal/report"
	"github.com/nao1215/afscrawler/internal/router"
	"github.com/nao1215/afscrawler/internal/session"
	"github.com/nao1215/afscrawler/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl accommodation listings",
		Long: `Crawl fetches the start page, resolves the Next.js data API and collects
every listing of the target locations.

Records are written to <storage-dir>/<store>/<dataset>.json as one JSON array.
A summary is printed to stdout when the crawl finishes.

Examples:
  # Crawl the default locations
  afscrawler crawl

  # Crawl other locations with a larger request budget
  afscrawler crawl -l Leeds -l York -n 200

  # Route sessions through proxies and pace requests
  afscrawler crawl --proxy socks5://127.0.0.1:1080 --rate 2

  # Print the records as JSON instead of a summary
  afscrawler crawl --json`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringSliceP("location", "l", nil,
		"Target location to search (repeatable; default: London, Manchester)")
	cmd.Flags().IntP("max-requests", "n", config.DefaultMaxRequestsPerCrawl,
		"Maximum number of unique requests per crawl (0 disables the cap)")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of requests processed at once")
	cmd.Flags().Int("max-retries", config.DefaultMaxRequestRetries,
		"Retries for a failing request")
	cmd.Flags().Int("max-rotations", config.DefaultMaxSessionRotations,
		"Session rotations for a blocked request")
	cmd.Flags().Bool("no-retry-blocked", false,
		"Treat blocked responses as ordinary results instead of rotating the session")
	cmd.Flags().String("profile", config.DefaultProfile,
		"Browser impersonation profile (chrome124, firefox128, none)")
	cmd.Flags().StringSlice("proxy", nil,
		"Proxy URL (repeatable; http, https, socks5, socks5h)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for a single HTTP fetch")
	cmd.Flags().Float64("rate", 0,
		"Requests per second (0 disables pacing)")
	cmd.Flags().String("start-url", config.DefaultStartURL,
		"Bootstrap page carrying the build identifier")
	cmd.Flags().String("api-root", config.DefaultAPIRoot,
		"Data API root template containing {build_id}")
	cmd.Flags().StringP("storage-dir", "o", "",
		"Directory for exports and the database (default: XDG data directory)")
	cmd.Flags().String("dataset", config.DefaultDatasetName,
		"Dataset name used for the export file")
	cmd.Flags().Bool("no-db", false,
		"Do not store records and request states in SQLite")
	cmd.Flags().BoolP("json", "j", false,
		"Print the records as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print a Markdown summary and save it next to the JSON export (mutually exclusive with --json)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
	return err
}

// buildConfig layers defaults, the configuration file and changed flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(getStringFlag(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.JSONLog = getBoolFlag(cmd, "json-log")

	flags := cmd.Flags()
	if flags.Changed("location") {
		if cfg.TargetLocations, err = flags.GetStringSlice("location"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-requests") {
		if cfg.MaxRequestsPerCrawl, err = flags.GetInt("max-requests"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-retries") {
		if cfg.MaxRequestRetries, err = flags.GetInt("max-retries"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-rotations") {
		if cfg.MaxSessionRotations, err = flags.GetInt("max-rotations"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-retry-blocked") {
		cfg.RetryOnBlocked = !getBoolFlag(cmd, "no-retry-blocked")
	}
	if flags.Changed("profile") {
		if cfg.Profile, err = flags.GetString("profile"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxies, err = flags.GetStringSlice("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("start-url") {
		if cfg.StartURL, err = flags.GetString("start-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("api-root") {
		if cfg.APIRoot, err = flags.GetString("api-root"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("storage-dir") {
		if cfg.StorageDir, err = flags.GetString("storage-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dataset") {
		if cfg.DatasetName, err = flags.GetString("dataset"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-db") {
		cfg.SaveToDB = !getBoolFlag(cmd, "no-db")
	}
	cfg.JSONOutput = getBoolFlag(cmd, "json")
	cfg.MarkdownOutput = getBoolFlag(cmd, "markdown")

	return cfg, nil
}

// crawlResult describes a finished crawl.
type crawlResult struct {
	RunID        string
	ExportPath   string
	MarkdownPath string
	Records      int
	Stats        crawler.StatsSnapshot
}

// runCrawl wires the crawler from cfg, runs it and exports the dataset.
// The dataset is exported even when the crawl ends incomplete or cancelled.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*crawlResult, error) {
	profile, err := transport.LookupProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	client, err := transport.NewClient(
		transport.WithProfile(profile),
		transport.WithHeaders(cfg.Headers),
		transport.WithTimeout(cfg.Timeout),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithErrorStatusCodes(cfg.AdditionalErrorStatusCodes, cfg.IgnoreErrorStatusCodes),
		transport.WithProxyURLs(cfg.Proxies),
		transport.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	pool, err := session.NewPool(cfg.SessionPoolSize,
		session.WithLogger(logger),
		session.WithSessionOptions(session.Options{BlockedStatusCodes: cfg.BlockedStatusCodes}),
	)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	root, err := nextdata.NewAPIRoot(cfg.APIRoot)
	if err != nil {
		return nil, err
	}

	result := &crawlResult{RunID: uuid.NewString()}

	var runLog *database.RunLog
	var store *database.Store
	if cfg.SaveToDB {
		store, err = database.Open(cfg.StorageDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		if err := store.BeginRun(ctx, result.RunID); err != nil {
			return nil, err
		}
		runLog = store.ForRun(result.RunID)
		logger.Info("database opened", "path", store.Path(), "run", result.RunID)
	}

	datasetOpts := []dataset.Option{dataset.WithLogger(logger)}
	queueOpts := []crawler.QueueOption{crawler.WithQueueLogger(logger)}
	if runLog != nil {
		datasetOpts = append(datasetOpts, dataset.WithRecordStore(runLog))
		queueOpts = append(queueOpts, crawler.WithRequestLog(runLog))
	}
	ds, err := dataset.New(cfg.DatasetName, datasetOpts...)
	if err != nil {
		return nil, err
	}

	stats := crawler.NewStatistics()
	queue := crawler.NewRequestQueue(cfg.MaxRequestsPerCrawl, queueOpts...)
	pipe := pipeline.DefaultPipeline(pipeline.Dependencies{
		Fetcher:        client,
		Recorder:       stats,
		Root:           root,
		Submitter:      queue,
		RetryOnBlocked: cfg.RetryOnBlocked,
		Logger:         logger,
	})
	rt := router.New(ds,
		router.WithTargetLocations(cfg.Locations()),
		router.WithSearchPath(cfg.SearchPath),
		router.WithListingPath(cfg.ListingPath),
		router.WithLogger(logger),
	)
	engine := crawler.NewEngine(queue, pipe, rt,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxRequestRetries(cfg.MaxRequestRetries),
		crawler.WithMaxSessionRotations(cfg.MaxSessionRotations),
		crawler.WithRequestTimeout(cfg.RequestTimeout),
		crawler.WithRateLimit(cfg.RateLimit),
		crawler.WithSessionPool(pool),
		crawler.WithStatistics(stats),
		crawler.WithEngineLogger(logger),
	)

	start := time.Now()
	crawlErr := engine.Run(ctx, []string{cfg.StartURL})
	result.Stats = stats.Snapshot()
	result.Records = ds.Count()

	if store != nil {
		status := database.RunStatusSucceeded
		if crawlErr != nil {
			status = database.RunStatusIncomplete
		}
		if err := store.FinishRun(context.WithoutCancel(ctx), result.RunID, status); err != nil {
			logger.Error("failed to finish run", "run", result.RunID, "error", err)
		}
	}

	result.ExportPath, err = ds.ExportJSON(cfg.StorageDir, cfg.StoreName)
	if err != nil {
		return result, errors.Join(crawlErr, err)
	}
	if cfg.MarkdownOutput {
		result.MarkdownPath, err = ds.ExportMarkdown(cfg.StorageDir, cfg.StoreName)
		if err != nil {
			return result, errors.Join(crawlErr, err)
		}
	}

	if err := writeSummary(out, cfg, ds.Records()); err != nil {
		return result, errors.Join(crawlErr, err)
	}
	if !cfg.JSONOutput {
		fmt.Fprintf(out, "\nExported %d records to %s in %s\n",
			result.Records, result.ExportPath, time.Since(start).Round(time.Millisecond))
		if result.MarkdownPath != "" {
			fmt.Fprintf(out, "Markdown summary saved to %s\n", result.MarkdownPath)
		}
	}

	return result, crawlErr
}

// writeSummary prints the records in the format selected by cfg.
func writeSummary(out io.Writer, cfg *config.Config, records []model.PropertyRecord) error {
	var w report.Writer
	switch {
	case cfg.JSONOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(records)
	return err
}
