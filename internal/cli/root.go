package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rohmanhakim/newscrawl/internal/config"
	"github.com/rohmanhakim/newscrawl/internal/frontier"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

// Exit codes: 0 completed, 1 operator stop / non-zero status, 2
// configuration error.
const (
	ExitOK           = 0
	ExitOperatorStop = 1
	ExitConfigError  = 2
)

var (
	cfgFile          string
	seedURLFlags     []string
	gazetteerDir     string
	dsn              string
	concurrency      int
	maxDownloads     int
	maxDepth         int
	outputVerbosity  int
	dbPath           string
	dataDir          string
	plannerVerbosity int
)

var rootCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Runs one news crawl job to completion.",
	Long: `crawl drives a single crawl job through the frontier, fetch/classify
pipeline, place and topic extraction, and content similarity engine,
persisting results to the configured store.`,
	RunE: runCrawl,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config-file", "", "runner config file path")
	rootCmd.Flags().StringArrayVar(&seedURLFlags, "seed-url", nil, "one or more starting URLs (can be repeated)")
	rootCmd.Flags().StringVar(&gazetteerDir, "gazetteer-dir", "", "directory of gazetteer NDJSON tables")
	rootCmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string; empty runs without persistence")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "override: concurrent fetch workers")
	rootCmd.Flags().IntVar(&maxDownloads, "max-downloads", 0, "override: stop after this many pages")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override: maximum link depth from seed URL")
	rootCmd.Flags().IntVar(&outputVerbosity, "output-verbosity", 0, "override: 0 quiet, 1 summary, 2 per-page")
	rootCmd.Flags().StringVar(&dbPath, "db-path", "", "override: database path/DSN recorded in config")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "override: content blob storage root")
	rootCmd.Flags().IntVar(&plannerVerbosity, "planner-verbosity", 0, "override: learned-pattern logging level")
}

// Execute runs the root command and returns the process exit code; it
// never calls os.Exit itself so tests can assert on the return value.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ce, ok := err.(configError); ok {
			fmt.Fprintln(os.Stderr, ce.err)
			return ExitConfigError
		}
		fmt.Fprintln(os.Stderr, err)
		return ExitOperatorStop
	}
	return exitCode
}

// exitCode is set by runCrawl since cobra's RunE can only return an
// error, not a code, and "completed with a non-operator-stop reason"
// still needs to report 0.
var exitCode int

type configError struct{ err error }

func (c configError) Error() string { return c.err.Error() }

func runCrawl(cmd *cobra.Command, args []string) error {
	seeds, err := parseSeedURLs(seedURLFlags)
	if err != nil {
		return configError{err}
	}

	cfg, err := InitConfigWithError(seeds)
	if err != nil {
		return configError{err}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	recorder := telemetry.NewRecorder(256, telemetry.NewLogSink(logger))
	defer recorder.Close()

	resolvedDSN := dsn
	if resolvedDSN == "" {
		resolvedDSN = cfg.DBPath()
	}

	jobID := uuid.NewString()
	sched, cleanup, err := Build(jobID, cfg, BuildOptions{GazetteerDir: gazetteerDir, DSN: resolvedDSN}, recorder)
	defer cleanup()
	if err != nil {
		return configError{err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := sched.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.OutputVerbosity() > 0 {
		report, _ := json.Marshal(summary)
		fmt.Println(string(report))
	}

	if summary.StopReason == frontier.StopOperatorStop || summary.StopReason == frontier.StopDeadlineExceeded {
		exitCode = ExitOperatorStop
		return nil
	}
	exitCode = ExitOK
	return nil
}

// InitConfigWithError builds the Config for this invocation from the
// currently-set flags plus seeds, without touching the scheduler or
// telemetry. Split out from runCrawl so tests can exercise flag
// merging without running a crawl.
func InitConfigWithError(seeds []url.URL) (config.Config, error) {
	overrides := config.Overrides{
		Concurrency:      concurrency,
		MaxDownloads:     maxDownloads,
		MaxDepth:         maxDepth,
		OutputVerbosity:  outputVerbosity,
		DBPath:           dbPath,
		DataDir:          dataDir,
		PlannerVerbosity: plannerVerbosity,
	}
	return config.Load(seeds, cfgFile, overrides)
}

// ResetFlags restores every package-level flag variable to its zero
// value. Tests call this between cases since the flag vars persist
// across the package's lifetime.
func ResetFlags() {
	cfgFile = ""
	seedURLFlags = nil
	gazetteerDir = ""
	dsn = ""
	concurrency = 0
	maxDownloads = 0
	maxDepth = 0
	outputVerbosity = 0
	dbPath = ""
	dataDir = ""
	plannerVerbosity = 0
	exitCode = 0
}

func SetConfigFileForTest(v string)    { cfgFile = v }
func SetSeedURLsForTest(v []string)    { seedURLFlags = v }
func SetGazetteerDirForTest(v string)  { gazetteerDir = v }
func SetDSNForTest(v string)           { dsn = v }
func SetConcurrencyForTest(v int)      { concurrency = v }
func SetMaxDownloadsForTest(v int)     { maxDownloads = v }
func SetMaxDepthForTest(v int)         { maxDepth = v }
func SetOutputVerbosityForTest(v int)  { outputVerbosity = v }
func SetDBPathForTest(v string)        { dbPath = v }
func SetDataDirForTest(v string)       { dataDir = v }
func SetPlannerVerbosityForTest(v int) { plannerVerbosity = v }

func parseSeedURLs(raw []string) ([]url.URL, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("cli: at least one --seed-url is required")
	}
	urls := make([]url.URL, 0, len(raw))
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("cli: parse seed URL %q: %w", s, err)
		}
		urls = append(urls, *u)
	}
	return urls, nil
}
