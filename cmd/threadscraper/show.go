package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"threadscraper/pkg/presenter"
	"threadscraper/pkg/storage"
)

var (
	// Show command flags
	showFormat string
	showDir    string
)

// showCmd prints a saved run
var showCmd = &cobra.Command{
	Use:   "show [run_id]",
	Short: "Show a saved run",
	Long: `Print a result saved with --save. Without a run ID, list the saved runs.`,
	Example: `  # List saved runs
  threadscraper show

  # Print one as JSON
  threadscraper show 3f9c2a1e-... --format json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runShow(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showFormat, "format", "f", "", "output format: text, json or yaml")
	showCmd.Flags().StringVarP(&showDir, "output", "o", "", "directory holding saved results")
}

func runShow(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("format") {
		flags["format"] = showFormat
	}
	if cmd.Flags().Changed("output") {
		flags["output"] = showDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fail("Failed to load configuration", err)
	}
	log := initLogger(cfg)

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		fail("Failed to open output directory", err)
	}

	if len(args) == 0 {
		ids := store.ListRunIDs()
		if len(ids) == 0 {
			console.Warning("No saved runs in " + store.GetOutputDir())
			return
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		if !quiet {
			console.Dim(fmt.Sprintf("%d saved runs in %s", store.GetSavedCount(), store.GetOutputDir()))
		}
		return
	}

	runID := args[0]
	if !store.IsSaved(runID) {
		console.Error("Run not found: "+runID, nil)
		console.Dim("Use 'threadscraper show' to list saved runs")
		os.Exit(1)
	}

	res, err := store.LoadResult(runID)
	if err != nil {
		log.WithError(err).WithField("run_id", runID).Error("Failed to load saved run")
		if errors.Is(err, storage.ErrNotFound) {
			fail("Run not found", err)
		}
		fail("Failed to load saved run", err)
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
}
