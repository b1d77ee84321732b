package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"threadscraper/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage threadscraper configuration files.

Configuration is loaded from:
  - Command line flags (highest priority)
  - Environment variables (THREADSCRAPER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as 'threadscraper.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

The access token is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Output and log directory accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# threadscraper configuration file
#
# Every option can also be set with an environment variable prefixed with
# THREADSCRAPER_, for example THREADSCRAPER_ACCESS_TOKEN.

# X API connection
x:
  base_url: "https://api.x.com"
  # Bearer token. Prefer 'threadscraper auth login' over storing it here.
  access_token: ""
  user_agent: "threadscraper/1.0"
  timeout: 45s

# Default search parameters
search:
  # Used when no query is given on the command line
  query: ""
  # top or latest
  mode: "top"
  # Results per search request (10-100)
  max_results: 20

# Seed selection
seeds:
  # Text a post must contain to start a thread. Empty matches every post.
  marker: "🧵"
  # Only start threads from this handle (optional)
  author: ""

# Thread reconstruction
engine:
  # Same-author replies followed per post
  max_replies_per_post: 15
  # Search results returned as single-post threads when no seed matches
  fallback_seeds: 3
  # Concurrent reply fetches (1-64)
  fetch_workers: 8
  # Order entries by creation time instead of traversal order
  chronological: false

# Rate limiting shared by every request of a run
rate_limit:
  requests_per_minute: 60
  burst_size: 10

# Retries for search and session checks
retry:
  enabled: true
  max_attempts: 3
  base_delay: 1s
  max_delay: 1m
  multiplier: 2.0
  jitter_factor: 0.1

# Output
output:
  # text, json or yaml
  format: "text"
  # Where saved runs are written as <run_id>.json
  directory: "./threads"
  save_results: false

# HTTP server (threadscraper serve)
server:
  addr: ":8080"
  # Bounds session verification and search of one request
  run_timeout: 2m

# Logging
logging:
  # debug, info, warn, error, disabled
  level: "info"
  # console or json
  format: "console"
  # Optional log file, in addition to stderr
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "threadscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		console.Error("Configuration file already exists: "+configPath, nil)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		fail("Failed to create configuration file", err)
	}

	console.Success("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'threadscraper auth login' to store your X access token")
	fmt.Println("2. Run 'threadscraper config validate' to check the configuration")
	fmt.Println("3. Reconstruct threads with 'threadscraper search <query>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	display := *cfg
	display.X.AccessToken = maskToken(display.X.AccessToken)

	data, err := yaml.Marshal(&display)
	if err != nil {
		fail("Failed to format configuration", err)
	}
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		fail("No configuration file found", fmt.Errorf("specify a file with --config"))
	}

	console.Info("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		fail("Configuration validation failed", err)
	}

	var problems, warnings []string

	if cfg.X.AccessToken == "" {
		warnings = append(warnings, "no access token configured; stored credentials will be used")
	}
	if cfg.Seeds.Marker == "" && cfg.Seeds.Author == "" {
		warnings = append(warnings, "empty marker without an author makes every search result a thread seed")
	}

	if cfg.Output.SaveResults {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		console.Error("Configuration has errors:", nil)
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		console.Warning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	console.Success("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Search mode: %s (%d results)\n", cfg.Search.Mode, cfg.Search.MaxResults)
	fmt.Printf("  Seed marker: %q\n", cfg.Seeds.Marker)
	fmt.Printf("  Max replies per post: %d\n", cfg.Engine.MaxRepliesPerPost)
	fmt.Printf("  Fetch workers: %d\n", cfg.Engine.FetchWorkers)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
