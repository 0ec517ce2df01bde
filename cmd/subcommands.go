package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"beetest/internal/config"
	"beetest/internal/logging"
	"beetest/internal/mocknode"
	"beetest/internal/storage"
	"beetest/internal/tui/history"
)

var mockNodeCmd = &cobra.Command{
	Use:   "mock-node",
	Short: "Serve a fake Bee API for local runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(logLevel)
		if err != nil {
			return errors.Annotate(err, "init logger")
		}
		defer logger.Sync()

		port, _ := cmd.Flags().GetInt("port")
		radius, _ := cmd.Flags().GetInt("radius")
		failEvery, _ := cmd.Flags().GetInt("fail-every")
		delay, _ := cmd.Flags().GetDuration("rchash-delay")

		srv := mocknode.New(mocknode.Config{
			Port:          port,
			StorageRadius: radius,
			FailEvery:     failEvery,
			RCHashDelay:   delay,
		}, logging.Component(logger, "mocknode"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List past sessions or show one of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyPath == "" {
			return errors.New("history is disabled")
		}
		store, err := storage.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			item, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(out, history.Detail(*item))
			return nil
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		if interactive, _ := cmd.Flags().GetBool("tui"); interactive {
			return history.Show(items)
		}
		fmt.Fprint(out, history.Plain(items))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil {
			return errors.Errorf("%s already exists", cfgFile)
		}
		if err := os.WriteFile(cfgFile, []byte(config.Sample), 0o644); err != nil {
			return errors.Annotatef(err, "write %s", cfgFile)
		}
		logger, err := logging.New(logLevel)
		if err == nil {
			logger.Info("sample config written", zap.String("path", cfgFile))
			logger.Sync()
		}
		return nil
	},
}

func init() {
	mockNodeCmd.Flags().IntP("port", "p", 1633, "Port to run the fake node on")
	mockNodeCmd.Flags().Int("radius", 10, "storage radius reported by /status")
	mockNodeCmd.Flags().Int("fail-every", 0, "fail every Nth request (0 disables)")
	mockNodeCmd.Flags().Duration("rchash-delay", 0, "time /rchash takes to answer")

	historyCmd.Flags().Bool("tui", false, "browse sessions in a table")
}
