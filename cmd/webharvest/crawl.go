package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/webharvest/webharvest/internal/analytics"
	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/crawler"
	"github.com/webharvest/webharvest/internal/database"
	"github.com/webharvest/webharvest/internal/fingerprint"
	"github.com/webharvest/webharvest/internal/frontier"
	"github.com/webharvest/webharvest/internal/log"
	"github.com/webharvest/webharvest/internal/policy"
	"github.com/webharvest/webharvest/internal/politeness"
	"github.com/webharvest/webharvest/internal/storage"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl the configured domains starting from the seed URLs",
		Long: `Crawl downloads pages from a bounded set of domains, starting
from the seed URLs given as arguments or listed in the crawl file.

The frontier is persisted to a local SQLite database, so rerunning the
same command resumes an interrupted crawl without refetching completed
pages. Use --restart to discard the saved frontier and start over.

Requests to the same domain are spaced out by the politeness delay,
robots.txt is honored, and pages whose text duplicates (or nearly
duplicates) an earlier page are skipped. Archived page text is written
as gzip-compressed JSONL under the output directory, partitioned by
host and fetch date.

Examples:
  # Crawl starting from a single seed
  webharvest crawl https://www.ics.uci.edu

  # Resume the previous crawl (same seeds, same data directory)
  webharvest crawl https://www.ics.uci.edu

  # Start over, discarding all saved frontier state
  webharvest crawl --restart https://www.ics.uci.edu

  # Slow down and widen the crawl scope
  webharvest crawl -d 2s -a '^(.*\.)?example\.edu$' https://example.edu

  # Use a crawl file for seeds and overrides
  webharvest crawl -c mycrawl.yml

Crawl file (.webharvest.yml) example:
  seeds:
    - https://www.ics.uci.edu
    - https://www.stat.uci.edu
  politeness_delay: 1s
  workers: 8
  domain_rate:
    requests: 30
    window: 1m`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("delay", "d", config.DefaultPolitenessDelay,
		"Minimum gap between two requests to the same domain")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent crawl workers")
	cmd.Flags().BoolP("restart", "r", false,
		"Discard saved frontier state and start over from the seeds")
	cmd.Flags().StringP("allowed-domains", "a", "",
		"Regular expression a host must match to be crawled (default: UCI school domains)")
	cmd.Flags().Bool("respect-robots", true,
		"Honor robots.txt rules before downloading each page")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent sent with every request and matched against robots.txt")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for a single page download")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes to read per page")
	cmd.Flags().Int("rate-requests", 0,
		"Per-domain request cap on top of the delay (0 disables)")
	cmd.Flags().Duration("rate-window", time.Minute,
		"Window for the per-domain request cap")

	// Duplicate detection flags
	cmd.Flags().Uint("simhash-bits", config.DefaultSimhashBits,
		"Fingerprint width in bits for near-duplicate detection (1-64)")
	cmd.Flags().Float64("near-threshold", config.DefaultNearThreshold,
		"Similarity at or above which a page counts as a near duplicate")
	cmd.Flags().Float64("exact-threshold", config.DefaultExactThreshold,
		"Similarity at or above which a page counts as an exact duplicate")
	cmd.Flags().Bool("per-worker-dedup", false,
		"Give each worker its own duplicate tracker instead of one shared tracker")

	// Paths
	cmd.Flags().StringP("config", "c", "",
		"Crawl file path (default: .webharvest.yml in current or home directory)")
	cmd.Flags().String("data-dir", "",
		"Directory for the frontier database and analytics state (default: XDG data directory)")
	cmd.Flags().StringP("output", "o", "crawl-output",
		"Directory for archived page records")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown.
	// On interrupt the workers finish their in-flight pages and the
	// frontier keeps everything not yet completed, so the next run
	// picks up where this one stopped.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildCrawlConfig creates a Config from cobra command flags, the crawl
// file, and positional seed arguments.
//
// Precedence, lowest to highest: built-in defaults, crawl file values,
// flags the user explicitly set. Seeds accumulate instead: the crawl
// file's seeds and the positional arguments are combined.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load the crawl file before reading flags so explicitly set flags
	// win over file values.
	// If user explicitly specified a crawl file path, error if not found.
	// If no path specified, silently continue when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		crawlFile, err := config.LoadCrawlFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load crawl file %s: %w", configPath, err)
		}
		crawlFile.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("crawl file not found: %s", cfg.ConfigFilePath)
	}

	// Flags the crawl file can also set: only apply when the user
	// explicitly passed them, so file values survive.
	if cmd.Flags().Changed("delay") {
		cfg.PolitenessDelay, err = cmd.Flags().GetDuration("delay")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("allowed-domains") {
		cfg.AllowedDomains, err = cmd.Flags().GetString("allowed-domains")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("respect-robots") {
		cfg.RespectRobots, err = cmd.Flags().GetBool("respect-robots")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("user-agent") {
		cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("rate-requests") {
		cfg.DomainRateRequests, err = cmd.Flags().GetInt("rate-requests")
		if err != nil {
			return nil, err
		}
		cfg.DomainRateWindow, err = cmd.Flags().GetDuration("rate-window")
		if err != nil {
			return nil, err
		}
	}

	// Flag-only settings
	cfg.Restart, err = cmd.Flags().GetBool("restart")
	if err != nil {
		return nil, err
	}

	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.SimhashBits, err = cmd.Flags().GetUint("simhash-bits")
	if err != nil {
		return nil, err
	}

	cfg.NearThreshold, err = cmd.Flags().GetFloat64("near-threshold")
	if err != nil {
		return nil, err
	}

	cfg.ExactThreshold, err = cmd.Flags().GetFloat64("exact-threshold")
	if err != nil {
		return nil, err
	}

	perWorker, err := cmd.Flags().GetBool("per-worker-dedup")
	if err != nil {
		return nil, err
	}
	cfg.SharedTracker = !perWorker

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Positional arguments are additional seed URLs.
	cfg.Seeds = append(cfg.Seeds, args...)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl wires the crawl components together and runs the worker pool
// until the frontier drains or the context is cancelled.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"workers", cfg.Workers,
		"delay", cfg.PolitenessDelay,
		"restart", cfg.Restart,
		"dataDir", cfg.DataDir,
	)

	// Open the frontier database
	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open frontier database: %w", err)
	}
	defer db.Close()
	logger.Info("frontier database opened", "path", db.Path())

	validator, err := policy.NewValidator(cfg.AllowedDomains)
	if err != nil {
		return fmt.Errorf("invalid allowed-domains pattern: %w", err)
	}

	fr := frontier.New(db, logger)
	if err := fr.Load(ctx, cfg.Seeds, cfg.Restart, validator.IsValid); err != nil {
		return fmt.Errorf("failed to load frontier: %w", err)
	}

	var politenessOpts []politeness.Option
	if cfg.DomainRateRequests > 0 {
		politenessOpts = append(politenessOpts,
			politeness.WithDomainRate(cfg.DomainRateRequests, cfg.DomainRateWindow))
	}
	coordinator := politeness.NewCoordinator(cfg.PolitenessDelay, politenessOpts...)

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	fetcher := crawler.NewHTTPFetcher(httpClient,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)
	extractor := crawler.NewExtractor()

	robots := policy.NewRobotsAgent(cfg.UserAgent, cfg.RespectRobots,
		policy.DefaultRobotsTTL, httpClient, logger)

	// Archive construction is the only fatal storage error; individual
	// page writes later just log.
	store, err := storage.NewPageStore(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create page archive: %w", err)
	}
	defer store.Close()

	// A resumed crawl keeps accumulating the previous run's analytics;
	// a restart begins from zero.
	statePath := filepath.Join(cfg.DataDir, analytics.StateFileName)
	var collectorOpts []analytics.CollectorOption
	if !cfg.Restart {
		if prev, err := analytics.LoadState(statePath); err == nil {
			collectorOpts = append(collectorOpts, analytics.WithInitialState(prev))
		}
	}
	collector := analytics.NewCollector(statePath, logger, collectorOpts...)

	newTracker := func() *fingerprint.Tracker {
		return fingerprint.NewTracker(cfg.ExactThreshold, cfg.NearThreshold, cfg.SimhashBits)
	}

	deps := crawler.Deps{
		Frontier:    fr,
		Coordinator: coordinator,
		Fetcher:     fetcher,
		Extractor:   extractor,
		Tracker:     newTracker(),
		Validator:   validator,
		Robots:      robots,
		Store:       store,
		Collector:   collector,
		Logger:      logger,
	}

	supervisorOpts := []crawler.SupervisorOption{
		crawler.WithWorkerCount(cfg.Workers),
	}
	if !cfg.SharedTracker {
		supervisorOpts = append(supervisorOpts,
			crawler.WithPerWorkerTrackers(newTracker))
	}

	fmt.Printf("Crawling %d pending pages with %d workers...\n", fr.Pending(), cfg.Workers)
	startTime := time.Now()

	runErr := crawler.NewSupervisor(deps, supervisorOpts...).Run(ctx)

	elapsed := time.Since(startTime)

	// Persist final analytics no matter how the run ended; a cancelled
	// crawl still wants its progress on disk.
	if err := collector.Save(); err != nil {
		logger.Error("failed to save analytics state", "error", err)
	}

	state := collector.Snapshot()
	fmt.Printf("Crawl finished in %s: %d unique pages stored, %d successful fetches, %d pending\n",
		elapsed.Round(time.Millisecond), state.UniquePages, state.SuccessfulFetches, fr.Pending())

	return runErr
}
