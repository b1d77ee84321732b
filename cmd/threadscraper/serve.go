package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"threadscraper/internal/httpserver"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
	"threadscraper/pkg/storage"
	"threadscraper/pkg/thread"
	"threadscraper/pkg/xapi"
)

var (
	// Serve command flags
	serveAddr    string
	corsOrigins  string
	serveAccount string
	serveSave    bool
	readyTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve thread reconstruction over HTTP",
	Long: `Start an HTTP server exposing the thread reconstruction engine.

Endpoints:
  GET /v1/threads?q=<query>&mode=top|latest   reconstruct threads
  GET /v1/runs                                list saved runs (with --save)
  GET /v1/runs/{id}                           fetch a saved run (with --save)
  GET /healthz                                liveness
  GET /readyz                                 checks the X access token
  GET /metrics                                Prometheus metrics

Each request gets an X-Request-Id header, which is also attached to every log
line written while serving it.`,
	Example: `  # Serve on the default address (:8080)
  threadscraper serve

  # Custom address, restricted CORS and saved results
  threadscraper serve --addr 127.0.0.1:9000 --cors-origins https://app.example.com --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "comma separated allowed CORS origins (default all)")
	serveCmd.Flags().StringVarP(&serveAccount, "account", "a", "", "use a specific stored account")
	serveCmd.Flags().BoolVar(&serveSave, "save", false, "save every result under the output directory")
	serveCmd.Flags().DurationVar(&readyTimeout, "ready-timeout", 5*time.Second, "timeout of the readiness session check")
}

func runServe(cmd *cobra.Command) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("addr") {
		flags["addr"] = serveAddr
	}
	if cmd.Flags().Changed("save") {
		flags["save"] = serveSave
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fail("Failed to load configuration", err)
	}
	log := initLogger(cfg)

	resolveCredentials(cfg, serveAccount, log)

	mode, err := models.ParseSearchMode(cfg.Search.Mode)
	if err != nil {
		fail("Invalid search mode", err)
	}

	client := xapi.NewClientFromConfig(cfg, log)
	engine := thread.NewEngine(client, thread.OptionsFromConfig(cfg), log)

	opts := httpserver.ThreadsOptions{
		DefaultMode: mode,
		RunTimeout:  cfg.Server.RunTimeout,
	}
	var store *storage.Manager
	if cfg.Output.SaveResults {
		store, err = storage.NewManager(cfg.Output.Directory)
		if err != nil {
			fail("Failed to open output directory", err)
		}
		opts.Saver = store
	}

	router := chi.NewRouter()
	httpserver.SetupRouter(router, httpserver.RouterConfig{
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
			defer cancel()
			return client.VerifySession(ctx)
		},
		AllowedOrigins: corsOrigins,
		Logger:         log,
	})
	router.Get("/v1/threads", httpserver.Threads(engine, opts, log))
	if store != nil {
		httpserver.MountRuns(router, store, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		console.Info("Listening", cfg.Server.Addr)
	}
	startFields := map[string]interface{}{
		"addr":        cfg.Server.Addr,
		"mode":        string(mode),
		"run_timeout": cfg.Server.RunTimeout.String(),
		"save":        cfg.Output.SaveResults,
	}
	if store != nil {
		startFields["output_dir"] = store.GetOutputDir()
		startFields["saved_runs"] = store.GetSavedCount()
	}
	logger.LogComponentStart(log, "threads-api", startFields)

	srv := httpserver.New(httpserver.Options{
		Addr:   cfg.Server.Addr,
		Logger: log,
		Router: router,
	})
	return srv.Run(ctx)
}
