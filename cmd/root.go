package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"beetest/internal/banner"
	"beetest/internal/bee"
	"beetest/internal/cli"
	"beetest/internal/config"
	"beetest/internal/export"
	"beetest/internal/logging"
	"beetest/internal/runner"
	"beetest/internal/storage"
	"beetest/internal/tui/live"
)

var (
	cfgFile     string
	useTUI      bool
	logLevel    string
	historyPath string
)

var rootCmd = &cobra.Command{
	Use:   "beetest",
	Short: "BeeTest - Bee node rchash test harness",
	Long: `
BeeTest repeatedly asks a Bee node to compute a reserve commitment hash
and records the node's state after every attempt.

Settings are read from the [bee_test] table of the config file.
Each iteration is appended to the configured log file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest(cmd.Context(), cmd.OutOrStdout())
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	defaultHistory, err := storage.DefaultPath()
	if err != nil {
		defaultHistory = ""
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "config file with a [bee_test] table")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", defaultHistory, "session history database (empty disables it)")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "show the interactive live view")

	rootCmd.AddCommand(mockNodeCmd, historyCmd, initCmd)
}

func runTest(ctx context.Context, out io.Writer) error {
	logger, err := logging.New(logLevel)
	if err != nil {
		return errors.Annotate(err, "init logger")
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile, logging.Component(logger, "config"))
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := bee.NewClient(cfg.NodeURL, nil, cfg.RequestTimeout, logging.Component(logger, "bee"))
	csvLog, err := export.OpenCSVLog(cfg.LogFile)
	if err != nil {
		return errors.Annotate(err, "open log file")
	}
	defer csvLog.Close()

	updates := make(runner.ProgressChan, 100)
	run := runner.NewRunner(*cfg, client, csvLog, updates, logging.Component(logger, "runner"))
	started := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- run.Run(ctx)
	}()

	interrupted := false
	if useTUI {
		interrupted, err = live.Run(updates, cancel, cfg.NumRuns, cfg.NodeURL)
		if err != nil {
			logger.Error("live view failed, stopping run", zap.Error(err))
			cancel()
		}
	} else {
		fmt.Fprint(out, banner.GetString())
		cli.PrintHeader(out, *cfg, client.RCHashURL(cfg.StorageRadius, cfg.Neighbourhood, cfg.Neighbourhood), csvLog.Created())
		cli.Monitor(out, updates)
	}

	runErr := <-done
	if errors.Cause(runErr) == context.Canceled {
		interrupted = true
		runErr = nil
	}

	sum := run.Stats.Summary()
	cli.PrintSummary(out, sum, run.Stats.ErrorCounts(), time.Since(started), cfg.LogFile)

	item := storage.HistoryItem{
		ID:          run.ID,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Config:      *cfg,
		LogFile:     cfg.LogFile,
		Interrupted: interrupted,
		Summary:     sum,
	}
	summaryPath := export.SummaryPath(cfg.LogFile)
	if err := export.ExportJSON(item, summaryPath); err != nil {
		logger.Warn("failed to write summary", zap.String("path", summaryPath), zap.Error(err))
	}
	saveHistory(item, logger)

	return runErr
}

// saveHistory never fails the run.
func saveHistory(item storage.HistoryItem, logger *zap.Logger) {
	if historyPath == "" {
		return
	}
	store, err := storage.Open(historyPath)
	if err != nil {
		logger.Warn("history unavailable", zap.String("path", historyPath), zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.Save(item); err != nil {
		logger.Warn("failed to save session", zap.String("id", item.ID), zap.Error(err))
		return
	}
	logger.Debug("session saved", zap.String("id", item.ID), zap.String("history", store.Path()))
}
