package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"threadscraper/pkg/auth"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
	"threadscraper/pkg/presenter"
	"threadscraper/pkg/storage"
	"threadscraper/pkg/thread"
	"threadscraper/pkg/xapi"
)

var (
	// Search command flags
	accessToken   string
	baseURL       string
	accountName   string
	searchMode    string
	maxResults    int
	seedMarker    string
	seedAuthor    string
	maxReplies    int
	fetchWorkers  int
	chronological bool
	rateLimit     int
	outputFormat  string
	outputDir     string
	saveResults   bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search X and reconstruct the matching threads",
	Long: `Search X for a query and reconstruct every thread whose first post matches
the seed marker (🧵 by default).

For each seed, replies written by the same author are followed recursively,
at most --max-replies per post. Replies that cannot be fetched are pruned and
reported; they never fail the run. When no search result looks like a thread,
the top results are returned as single-post threads.

An access token is required. It is taken from, in order:
  - the --access-token flag or THREADSCRAPER_ACCESS_TOKEN
  - the configuration file
  - stored credentials (use 'threadscraper auth login' to store)`,
	Example: `  # Reconstruct threads about Go
  threadscraper search golang

  # The search command is the default
  threadscraper "rust async" --mode latest

  # Only threads by one author, without the marker requirement
  threadscraper search kubernetes --author kelseyhightower --marker ""

  # Machine readable output, saved under ./threads
  threadscraper search golang --format json --save`,
	Args: cobra.MinimumNArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		runSearch(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)

	// The root command accepts the same flags so that search can be the default
	addSearchFlags(rootCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&accessToken, "access-token", "", "X API bearer token")
	f.StringVar(&baseURL, "base-url", "", "X API base URL")
	f.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	f.StringVarP(&searchMode, "mode", "m", "", "search ranking: top or latest")
	f.IntVar(&maxResults, "max-results", 0, "search results per query (10-100)")
	f.StringVar(&seedMarker, "marker", "", "text a post must contain to start a thread (empty matches all)")
	f.StringVar(&seedAuthor, "author", "", "only start threads from this handle")
	f.IntVar(&maxReplies, "max-replies", 0, "same-author replies followed per post")
	f.IntVar(&fetchWorkers, "workers", 0, "concurrent reply fetches")
	f.BoolVar(&chronological, "chronological", false, "order thread entries by creation time")
	f.IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	f.StringVarP(&outputFormat, "format", "f", "", "output format: text, json or yaml")
	f.StringVarP(&outputDir, "output", "o", "", "directory for saved results")
	f.BoolVar(&saveResults, "save", false, "save the result as <output>/<run_id>.json")
}

// searchFlags collects the flags explicitly set on cmd into a config flag map
func searchFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()

	strs := map[string]string{
		"access-token": accessToken,
		"base-url":     baseURL,
		"mode":         searchMode,
		"marker":       seedMarker,
		"author":       seedAuthor,
		"format":       outputFormat,
		"output":       outputDir,
	}
	for name, v := range strs {
		if f.Changed(name) {
			flags[name] = v
		}
	}

	ints := map[string]int{
		"max-results": maxResults,
		"max-replies": maxReplies,
		"workers":     fetchWorkers,
		"rate-limit":  rateLimit,
	}
	for name, v := range ints {
		if f.Changed(name) {
			flags[name] = v
		}
	}

	if f.Changed("chronological") {
		flags["chronological"] = chronological
	}
	if f.Changed("save") {
		flags["save"] = saveResults
	}
	return flags
}

func runSearch(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(searchFlags(cmd))
	if err != nil {
		fail("Failed to load configuration", err)
	}
	log := initLogger(cfg)

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		query = strings.TrimSpace(cfg.Search.Query)
	}
	if query == "" {
		fail("A search query is required", nil)
	}

	mode, err := models.ParseSearchMode(cfg.Search.Mode)
	if err != nil {
		fail("Invalid search mode", err)
	}

	resolveCredentials(cfg, accountName, log)

	if !quiet {
		console.Info("Query", query)
		console.Info("Mode", string(mode))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := xapi.NewClientFromConfig(cfg, log)
	engine := thread.NewEngine(client, thread.OptionsFromConfig(cfg), log)

	res, err := engine.Run(ctx, query, mode)
	if err != nil {
		log.WithError(err).Error("Thread run failed")
		if errs.IsAuth(err) {
			console.Error("X rejected the access token", err)
			console.Dim("Run 'threadscraper auth login' to store a valid token")
			os.Exit(1)
		}
		fail("Thread run failed", err)
	}

	p, err := presenter.New(cfg.Output.Format)
	if err != nil {
		fail("Invalid output format", err)
	}
	if tp, ok := p.(*presenter.TextPresenter); ok {
		tp.ShowPruned = verbose
	}
	if err := p.Present(os.Stdout, res); err != nil {
		fail("Failed to write result", err)
	}

	if cfg.Output.SaveResults {
		store, err := storage.NewManager(cfg.Output.Directory)
		if err != nil {
			fail("Failed to open output directory", err)
		}
		path, err := store.SaveResult(res)
		if err != nil {
			fail("Failed to save result", err)
		}
		if !quiet {
			console.Success("Result saved: " + path)
		}
	}
}

// resolveCredentials fills in the access token from stored credentials when
// none was configured, and exits when no token can be found
func resolveCredentials(cfg *config.Config, account string, log logger.Logger) {
	if cfg.X.AccessToken != "" && account == "" {
		log.Debug("Using access token from configuration")
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	if account != "" {
		cfg.X.AccessToken = ""
	}
	if err := manager.ApplyToConfig(cfg, account); err != nil {
		log.WithError(err).Error("No credentials found")
		if account != "" {
			console.Error("Account not found", err)
			console.Dim("Use 'threadscraper auth list' to see stored accounts")
		} else {
			console.Error("No X access token found", nil)
			auth.ShowQuickTokenGuide(os.Stderr)
		}
		os.Exit(1)
	}

	if account != "" {
		log.WithField("account", account).Info("Using stored credentials")
	}
}

// Make search the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			runSearch(cmd, args)
			return nil
		}
		return cmd.Help()
	}
	rootCmd.Args = cobra.ArbitraryArgs
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
