package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/config"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run generation work outside the API server",
	Long: `worker executes generation commands.

  serve   consume commands published by the API server over NATS JetStream
  batch   expand one topic, generate it end to end and export the scripts`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetDefaultLogger(logger.NewFromEnv(logger.LoadFromEnv()))
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv("CONFIG_PATH"), "Path to the config file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
