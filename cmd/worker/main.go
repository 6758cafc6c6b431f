package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/crawler"
	"github.com/ternarybob/pasal/internal/httpclient"
	"github.com/ternarybob/pasal/internal/pdf"
	"github.com/ternarybob/pasal/internal/pipeline"
	"github.com/ternarybob/pasal/internal/query"
	"github.com/ternarybob/pasal/internal/storage/objects"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
	"github.com/ternarybob/pasal/internal/worker"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

const usage = `Usage: worker [flags] <command> [command flags]

Commands:
  discover      Walk the source listings and enqueue crawl jobs
  process       Claim and process one batch of pending jobs
  full          Discover, then process until the queue drains
  continuous    Loop discover and process until the runtime budget ends
  reprocess     Re-extract downloaded jobs behind the current version
  retry-failed  Reset retryable failed jobs to pending
  stats         Print queue totals
  search        Full-text search over loaded regulations
  article       Show one pasal of a work
  status        Show a work's legal force and amendment edges
  list          List loaded works
  ping          Verify the store answers queries
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Pasal worker version %s\n", common.GetVersion())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]

	// Startup order: config, logger, banner, storage.
	if len(configFiles) == 0 {
		if _, err := os.Stat("pasal.toml"); err == nil {
			configFiles = append(configFiles, "pasal.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner()

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("sqlite_path", config.Storage.SQLite.Path).
		Msg("Configuration loaded")

	store, err := sqlite.NewManager(logger, &config.Storage.SQLite, config.Worker.ClaimTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, command, args[1:], config, store, logger); err != nil {
		if ctx.Err() != nil {
			logger.Warn().Str("command", command).Msg("Interrupted, shutting down")
			os.Exit(130)
		}
		logger.Error().Str("command", command).Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, config *common.Config, store *sqlite.Manager, logger arbor.ILogger) error {
	client := httpclient.New(&config.Source, logger)
	resolver := crawler.NewDetailResolver(client, config, logger)
	discoverer := crawler.NewDiscoverer(client, store.Jobs, store.Progress, config, logger)
	extractor := pdf.NewExtractor(logger)
	objectStore := objects.NewSupabaseStore(&config.Storage.Supabase, logger)
	processor := pipeline.NewProcessor(client, resolver, extractor, store, objectStore, config, logger)

	supervisor, err := worker.NewSupervisor(discoverer, processor, store, config, logger)
	if err != nil {
		return err
	}
	queries := query.NewService(store.Search, logger)

	switch command {
	case "discover":
		fs := flag.NewFlagSet("discover", flag.ExitOnError)
		types := fs.String("types", "", "Comma-separated regulation type codes (default all)")
		maxPages := fs.Int("max-pages", 0, "Listing page cap per type (0 = all)")
		freshnessHours := fs.Int("freshness-hours", 0, "Re-discovery window in hours (0 = default 24)")
		force := fs.Bool("ignore-freshness", false, "Re-crawl listings even when discovery is fresh")
		dryRun := fs.Bool("dry-run", false, "Count what would be enqueued without writing")
		fs.Parse(args)
		return supervisor.RunDiscover(ctx, worker.RunOptions{
			Types:           splitTypes(*types),
			MaxPages:        *maxPages,
			Freshness:       time.Duration(*freshnessHours) * time.Hour,
			IgnoreFreshness: *force,
			DryRun:          *dryRun,
		})

	case "process":
		fs := flag.NewFlagSet("process", flag.ExitOnError)
		source := fs.String("source", "", "Claim jobs from this source only")
		batchSize := fs.Int("batch-size", 0, "Jobs per batch (0 = configured default)")
		maxRuntime := fs.Int("max-runtime", 0, "Runtime budget in seconds (0 = configured default)")
		fs.Parse(args)
		return supervisor.RunProcess(ctx, worker.RunOptions{
			Source:     *source,
			BatchSize:  *batchSize,
			MaxRuntime: time.Duration(*maxRuntime) * time.Second,
		})

	case "full":
		fs := flag.NewFlagSet("full", flag.ExitOnError)
		types := fs.String("types", "", "Comma-separated regulation type codes (default all)")
		maxPages := fs.Int("max-pages", 5, "Listing page cap per type (0 = all)")
		batchSize := fs.Int("batch-size", 20, "Jobs per batch")
		maxRuntime := fs.Int("max-runtime", 1500, "Runtime budget in seconds")
		force := fs.Bool("ignore-freshness", false, "Re-crawl listings even when discovery is fresh")
		fs.Parse(args)
		return supervisor.RunFull(ctx, worker.RunOptions{
			Types:           splitTypes(*types),
			MaxPages:        *maxPages,
			BatchSize:       *batchSize,
			MaxRuntime:      time.Duration(*maxRuntime) * time.Second,
			IgnoreFreshness: *force,
		})

	case "continuous":
		fs := flag.NewFlagSet("continuous", flag.ExitOnError)
		types := fs.String("types", "", "Comma-separated regulation type codes (default all)")
		maxPages := fs.Int("max-pages", 0, "Listing page cap per discovery pass (0 = all)")
		batchSize := fs.Int("batch-size", 100, "Jobs per processing batch")
		maxRuntime := fs.Int("max-runtime", 3600, "Runtime budget in seconds")
		sleep := fs.Int("sleep", 10, "Seconds between batches")
		discoverInterval := fs.Int("discover-interval", 5, "Re-discover every N batches")
		discover := fs.Bool("discover", true, "Run discovery passes during the loop")
		noDiscover := fs.Bool("no-discover", false, "Never run discovery during the loop")
		discoveryFirst := fs.Bool("discovery-first", false, "Fill the queue with a forced discovery pass before processing")
		freshnessHours := fs.Int("freshness-hours", 24, "Re-discovery window in hours")
		fs.Parse(args)
		return supervisor.RunContinuous(ctx, worker.RunOptions{
			Types:            splitTypes(*types),
			MaxPages:         *maxPages,
			BatchSize:        *batchSize,
			MaxRuntime:       time.Duration(*maxRuntime) * time.Second,
			Sleep:            time.Duration(*sleep) * time.Second,
			DiscoverInterval: *discoverInterval,
			Freshness:        time.Duration(*freshnessHours) * time.Hour,
			NoDiscover:       *noDiscover || !*discover,
			DiscoveryFirst:   *discoveryFirst,
		})

	case "reprocess":
		fs := flag.NewFlagSet("reprocess", flag.ExitOnError)
		force := fs.Bool("force", false, "Reprocess regardless of extraction version")
		batchSize := fs.Int("batch-size", 50, "Jobs per batch")
		fs.Parse(args)
		return supervisor.RunReprocess(ctx, *force, worker.RunOptions{BatchSize: *batchSize})

	case "retry-failed":
		fs := flag.NewFlagSet("retry-failed", flag.ExitOnError)
		errorLike := fs.String("error-like", "", "Only reset failures containing this substring (also reaches junk-pdf failures)")
		limit := fs.Int("limit", 0, "Reset at most this many jobs (0 = all)")
		dryRun := fs.Bool("dry-run", false, "Count matching jobs without resetting them")
		fs.Parse(args)
		count, err := supervisor.RunRetryFailed(ctx, *errorLike, *limit, *dryRun)
		if err != nil {
			return err
		}
		if *dryRun {
			fmt.Printf("%d job(s) would be reset to pending\n", count)
		} else {
			fmt.Printf("%d job(s) reset to pending\n", count)
		}
		return nil

	case "stats":
		stats, err := supervisor.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)

	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		regType := fs.String("type", "", "Filter by regulation type code")
		year := fs.Int("year", 0, "Filter by year")
		limit := fs.Int("limit", 10, "Maximum results")
		fs.Parse(args)
		if fs.NArg() == 0 {
			return fmt.Errorf("search requires a query")
		}
		resp, err := queries.SearchChunks(ctx, fs.Arg(0),
			sqlite.SearchFilters{RegType: *regType, Year: *year}, *limit)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "article":
		fs := flag.NewFlagSet("article", flag.ExitOnError)
		fs.Parse(args)
		if fs.NArg() < 2 {
			return fmt.Errorf("article requires a work reference and a pasal number")
		}
		resp, err := queries.GetArticle(ctx, fs.Arg(0), fs.Arg(1))
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		fs.Parse(args)
		if fs.NArg() == 0 {
			return fmt.Errorf("status requires a work reference")
		}
		resp, err := queries.GetStatus(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		regType := fs.String("type", "", "Filter by regulation type code")
		year := fs.Int("year", 0, "Filter by year")
		status := fs.String("status", "", "Filter by legal status")
		title := fs.String("title", "", "Filter by title substring")
		page := fs.Int("page", 1, "Page number")
		perPage := fs.Int("per-page", 20, "Works per page")
		fs.Parse(args)
		resp, err := queries.ListWorks(ctx, sqlite.ListFilter{
			RegType:   *regType,
			Year:      *year,
			Status:    *status,
			TitleLike: *title,
		}, *page, *perPage)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "ping":
		resp, err := queries.Ping(ctx)
		if err != nil {
			return err
		}
		return printJSON(resp)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// splitTypes parses a comma-separated list of regulation type codes
func splitTypes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
