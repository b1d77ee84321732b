package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/presenter"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFormat  string
	quiet      bool
	verbose    bool

	// console writes status messages to stderr so stdout stays clean for results
	console = presenter.NewConsole(os.Stderr)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "threadscraper",
	Short: "Reconstruct X threads from a search query",
	Long: `threadscraper searches X for a query, picks the posts that start a thread
and follows each author's chain of self-replies to rebuild the full thread.

Features:
  - Seed selection by marker text (default 🧵) and optional author
  - Concurrent reply fetching with a shared rate limit
  - Failed branches are pruned without failing the whole run
  - Text, JSON and YAML output, optional persistence of every run
  - HTTP API with health, readiness and Prometheus metrics endpoints
  - Secure token storage using the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		} else if verbose {
			logLevel = "debug"
		}

		if !quiet && isatty.IsTerminal(os.Stderr.Fd()) && cmd.Name() != "help" && cmd.Name() != "show" {
			console.Logo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./threadscraper.yaml or ~/.config/threadscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything except results and errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and pruned branch details")

	rootCmd.SetVersionTemplate(`threadscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with the global flags merged in
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}
	return config.Load(configFile, flags)
}

// initLogger installs the global logger for cfg
func initLogger(cfg *config.Config) logger.Logger {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		fail("Failed to initialize logger", err)
	}
	return logger.GetLogger()
}

// fail prints msg and exits with a non-zero status
func fail(msg string, err error) {
	console.Error(msg, err)
	os.Exit(1)
}
